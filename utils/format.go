package utils

import (
	"fmt"
	"math"
	"time"
)

// MessageType selects the color a CLI message is printed in.
type MessageType int

const (
	DefaultMessage MessageType = iota
	SuccessMessage
	ErrorMessage
	StatusMessage
)

// ANSI escapes of the message colors. DefaultColor also resets the terminal.
const (
	DefaultColor = "\x1b[0m"
	StatusColor  = "\x1b[36m"
	SuccessColor = "\x1b[32m"
	ErrorColor   = "\x1b[31m"
)

var messageColors = map[MessageType]string{
	DefaultMessage: DefaultColor,
	StatusMessage:  StatusColor,
	SuccessMessage: SuccessColor,
	ErrorMessage:   ErrorColor,
}

// DecorateText wraps s in the color of its message type.
// Unknown message types are returned undecorated.
func DecorateText(s string, msgType MessageType) string {
	c, ok := messageColors[msgType]
	if !ok {
		return s
	}
	return c + s + DefaultColor
}

// Decoratef formats according to a format specifier and decorates the result.
func Decoratef(msgType MessageType, format string, args ...any) string {
	return DecorateText(fmt.Sprintf(format, args...), msgType)
}

// FormatTime prints d in seconds with two decimals, preceded by the whole
// minutes, hours and days it spans once it gets that long.
func FormatTime(d time.Duration) string {
	var (
		secs  = math.Mod(d.Seconds(), 60)
		mins  = int64(d.Minutes()) % 60
		hours = int64(d.Hours()) % 24
		days  = int64(d.Hours()) / 24
	)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %.2fs", mins, secs)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm %.2fs", hours, mins, secs)
	}
	return fmt.Sprintf("%dd %dh %dm %.2fs", days, hours, mins, secs)
}
