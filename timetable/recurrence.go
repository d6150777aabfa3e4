package timetable

// Recurrence classifies how a course repeats across weeks.
type Recurrence int

const (
	// Irregular courses have to be enumerated one occurrence per week.
	Irregular Recurrence = iota
	Weekly
	Biweekly
)

func (r Recurrence) String() string {
	switch r {
	case Weekly:
		return "weekly"
	case Biweekly:
		return "biweekly"
	default:
		return "irregular"
	}
}

// Interval is the number of weeks between occurrences, or 0 for irregular courses.
func (r Recurrence) Interval() int {
	switch r {
	case Weekly:
		return 1
	case Biweekly:
		return 2
	default:
		return 0
	}
}

// ClassifyRecurrence inspects the week set. A gap in otherwise contiguous
// weeks makes the course irregular.
func ClassifyRecurrence(weeks []int) Recurrence {
	sorted := sortedUnique(weeks)
	if len(sorted) == 0 {
		return Irregular
	}
	if sorted[len(sorted)-1]-sorted[0] == len(sorted)-1 {
		return Weekly
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] != 2 {
			return Irregular
		}
	}
	return Biweekly
}

// OccurrenceCount is the number of occurrences of a weekly or biweekly
// week set, suitable for an RRULE COUNT. Irregular sets count their weeks.
func OccurrenceCount(weeks []int) int {
	sorted := sortedUnique(weeks)
	if len(sorted) == 0 {
		return 0
	}
	interval := ClassifyRecurrence(sorted).Interval()
	if interval == 0 {
		return len(sorted)
	}
	return (sorted[len(sorted)-1]-sorted[0])/interval + 1
}
