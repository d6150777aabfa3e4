package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRecurrence(t *testing.T) {
	tests := []struct {
		name  string
		weeks []int
		want  Recurrence
		count int
	}{
		{name: "contiguous", weeks: []int{1, 2, 3, 4}, want: Weekly, count: 4},
		{name: "contiguous unsorted", weeks: []int{4, 2, 3, 1}, want: Weekly, count: 4},
		{name: "single week", weeks: []int{7}, want: Weekly, count: 1},
		{name: "odd weeks", weeks: []int{1, 3, 5, 7}, want: Biweekly, count: 4},
		{name: "even weeks", weeks: []int{8, 2, 6, 4}, want: Biweekly, count: 4},
		{name: "cancelled week", weeks: []int{1, 2, 4}, want: Irregular, count: 3},
		{name: "mixed gaps", weeks: []int{1, 3, 4}, want: Irregular, count: 3},
		{name: "empty", weeks: nil, want: Irregular, count: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRecurrence(tt.weeks))
			assert.Equal(t, tt.count, OccurrenceCount(tt.weeks))
		})
	}
}

func TestRecurrenceInterval(t *testing.T) {
	assert.Equal(t, 1, Weekly.Interval())
	assert.Equal(t, 2, Biweekly.Interval())
	assert.Equal(t, 0, Irregular.Interval())
	assert.Equal(t, "biweekly", Biweekly.String())
}
