package facemark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_DefaultRadii(t *testing.T) {
	s := DefaultSchedule()
	assert.Equal(t, []int{25, 15, 5}, s.Radii(DefaultRadius))
	assert.Equal(t, []int{3}, s.Radii(3))
	assert.Equal(t, []int{10, 3}, s.Radii(10))
	assert.Nil(t, s.Radii(0))
	assert.Nil(t, s.Radii(-4))
}

func TestSchedule_Next(t *testing.T) {
	s := DefaultSchedule()
	cases := map[int]int{
		1:  -2,
		3:  0,
		4:  -3,
		11: 4,
		12: 2,
		25: 15,
		40: 30,
	}
	for r, want := range cases {
		assert.Equal(t, want, s.Next(r), "radius %d", r)
	}
}

func TestSchedule_AlwaysTerminates(t *testing.T) {
	s := DefaultSchedule()
	for start := 1; start <= 200; start++ {
		radii := s.Radii(start)
		if !assert.NotEmpty(t, radii, "radius %d", start) {
			continue
		}
		assert.Equal(t, start, radii[0])
		for i := 1; i < len(radii); i++ {
			assert.Less(t, radii[i], radii[i-1], "radius %d does not decrease", start)
			assert.Positive(t, radii[i])
		}
		assert.LessOrEqual(t, s.Next(radii[len(radii)-1]), 0)
	}
}

func TestSchedule_Validate(t *testing.T) {
	assert.NoError(t, DefaultSchedule().Validate())

	s := DefaultSchedule()
	s.MidStep = 0
	assert.Error(t, s.Validate())
	assert.Nil(t, s.Radii(25))

	s = DefaultSchedule()
	s.Low, s.High = 20, 10
	assert.Error(t, s.Validate())
}
