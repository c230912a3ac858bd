package model

// DateRange is a closed interval of calendar dates. A vehicle returned on a
// given day cannot be picked up by someone else on that same day.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewDateRange(start, end Date) DateRange {
	return DateRange{Start: start, End: end}
}

func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

func (r DateRange) Contains(date Date) bool {
	return !date.Before(r.Start) && !date.After(r.End)
}

// Days counts both endpoints, so a same-day rental is one day.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}

	return int(r.End.Sub(r.Start.Time)/day) + 1
}

func (r DateRange) String() string {
	return r.Start.String() + "/" + r.End.String()
}
