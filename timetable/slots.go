package timetable

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// TimeOfDay is a wall clock time in the campus time zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

// ClassTimeSlot is one of the fixed daily lesson slots.
type ClassTimeSlot struct {
	ID    int
	Start TimeOfDay
	End   TimeOfDay
}

// SlotCount is the number of lesson slots in a day.
const SlotCount = 14

var slotTable = [SlotCount]ClassTimeSlot{
	{1, TimeOfDay{8, 0}, TimeOfDay{8, 45}},
	{2, TimeOfDay{8, 55}, TimeOfDay{9, 40}},
	{3, TimeOfDay{9, 55}, TimeOfDay{10, 40}},
	{4, TimeOfDay{10, 50}, TimeOfDay{11, 35}},
	{5, TimeOfDay{11, 45}, TimeOfDay{12, 30}},
	{6, TimeOfDay{13, 30}, TimeOfDay{14, 15}},
	{7, TimeOfDay{14, 25}, TimeOfDay{15, 10}},
	{8, TimeOfDay{15, 25}, TimeOfDay{16, 10}},
	{9, TimeOfDay{16, 20}, TimeOfDay{17, 5}},
	{10, TimeOfDay{17, 15}, TimeOfDay{18, 0}},
	{11, TimeOfDay{18, 30}, TimeOfDay{19, 15}},
	{12, TimeOfDay{19, 25}, TimeOfDay{20, 10}},
	{13, TimeOfDay{20, 20}, TimeOfDay{21, 5}},
	{14, TimeOfDay{21, 15}, TimeOfDay{22, 0}},
}

// Slot returns the slot with the given 1-based id.
func Slot(id int) (ClassTimeSlot, error) {
	if id < 1 || id > SlotCount {
		return ClassTimeSlot{}, errors.Wrapf(ErrSlotOutOfRange, "slot %d", id)
	}
	return slotTable[id-1], nil
}

// Slots returns a copy of the whole table.
func Slots() []ClassTimeSlot {
	out := make([]ClassTimeSlot, SlotCount)
	copy(out, slotTable[:])
	return out
}
