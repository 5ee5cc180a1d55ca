package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func TestInterval_Overlaps(t *testing.T) {
	existing := NewInterval(at(10, 0), at(11, 0))

	tests := []struct {
		name string
		b    Interval
		want bool
	}{
		{name: "starts inside", b: NewInterval(at(10, 30), at(11, 30)), want: true},
		{name: "ends inside", b: NewInterval(at(9, 30), at(10, 30)), want: true},
		{name: "encloses", b: NewInterval(at(9, 0), at(12, 0)), want: true},
		{name: "enclosed", b: NewInterval(at(10, 15), at(10, 45)), want: true},
		{name: "identical", b: NewInterval(at(10, 0), at(11, 0)), want: true},
		{name: "touches end", b: NewInterval(at(11, 0), at(12, 0)), want: false},
		{name: "touches start", b: NewInterval(at(9, 0), at(10, 0)), want: false},
		{name: "disjoint", b: NewInterval(at(13, 0), at(14, 0)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, existing.Overlaps(tt.b))
			assert.Equal(t, existing.Overlaps(tt.b), tt.b.Overlaps(existing), "overlap must be symmetric")
		})
	}
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, NewInterval(at(10, 0), at(10, 30)).Valid())
	assert.False(t, NewInterval(at(10, 0), at(10, 0)).Valid())
	assert.False(t, NewInterval(at(10, 30), at(10, 0)).Valid())
	assert.Equal(t, 30*time.Minute, NewInterval(at(10, 0), at(10, 30)).Duration())
}
