package facemark

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ExemplarSet holds one landmark's labelled training descriptors.
// Rows in Positive were taken on the landmark, rows in Negative off it.
type ExemplarSet struct {
	Positive []Descriptor
	Negative []Descriptor
}

// Dim returns the common descriptor dimension of the set, or an error
// wrapping ErrEmptyClass or ErrDimensionMismatch if the set cannot be trained on.
func (s ExemplarSet) Dim() (int, error) {
	if len(s.Positive) == 0 {
		return 0, fmt.Errorf("%w: no positive exemplars", ErrEmptyClass)
	}
	if len(s.Negative) == 0 {
		return 0, fmt.Errorf("%w: no negative exemplars", ErrEmptyClass)
	}
	dim := len(s.Positive[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: zero length exemplar", ErrDimensionMismatch)
	}
	classes := []struct {
		label string
		rows  []Descriptor
	}{
		{"positive", s.Positive},
		{"negative", s.Negative},
	}
	for _, c := range classes {
		for i, row := range c.rows {
			if len(row) != dim {
				return 0, fmt.Errorf("%w: %s row %d has %d values, want %d",
					ErrDimensionMismatch, c.label, i+1, len(row), dim)
			}
		}
	}
	return dim, nil
}

// ReadExemplars parses whitespace separated rows of floats, one descriptor per line.
// Blank lines are skipped.
func ReadExemplars(r io.Reader) ([]Descriptor, error) {
	var rows []Descriptor

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		row := make(Descriptor, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteExemplars writes the rows in the format ReadExemplars accepts.
func WriteExemplars(w io.Writer, rows []Descriptor) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// LoadExemplarSet reads the positive and negative exemplar files of a landmark.
func LoadExemplarSet(posPath, negPath string) (ExemplarSet, error) {
	var (
		set ExemplarSet
		err error
	)
	if set.Positive, err = readExemplarFile(posPath); err != nil {
		return set, err
	}
	if set.Negative, err = readExemplarFile(negPath); err != nil {
		return set, err
	}
	return set, nil
}

func readExemplarFile(path string) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the exemplar file: %w", err)
	}
	defer f.Close()

	rows, err := ReadExemplars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// AppendExemplars appends rows to the exemplar file at path, creating it if needed.
func AppendExemplars(path string, rows []Descriptor) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open the exemplar file: %w", err)
	}
	if err := WriteExemplars(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
