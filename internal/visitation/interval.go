package visitation

import (
	"encoding/json"
	"math"

	"walk-router/internal/models"
)

// Epsilon is the gap under which two ranges count as contiguous
const Epsilon = 1e-6

// IntervalSet is a sorted, non-overlapping union of ranges within [0,1].
// Values are immutable; Plus and Minus return new sets.
type IntervalSet struct {
	ranges []models.Interval
}

// NewIntervalSet folds the given ranges into a normalized set
func NewIntervalSet(ranges ...models.Interval) IntervalSet {
	var s IntervalSet
	for _, r := range ranges {
		s = s.Plus(r)
	}
	return s
}

// FullInterval is the whole edge
func FullInterval() models.Interval {
	return models.Interval{Start: 0, End: 1}
}

func normalize(r models.Interval) models.Interval {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	r.Start = math.Max(0, math.Min(1, r.Start))
	r.End = math.Max(0, math.Min(1, r.End))
	return r
}

// Plus returns the union of s and r
func (s IntervalSet) Plus(r models.Interval) IntervalSet {
	r = normalize(r)
	result := make([]models.Interval, 0, len(s.ranges)+1)

	inserted := false
	for _, existing := range s.ranges {
		switch {
		case existing.End < r.Start-Epsilon:
			result = append(result, existing)
		case existing.Start > r.End+Epsilon:
			if !inserted {
				result = append(result, r)
				inserted = true
			}
			result = append(result, existing)
		default:
			r.Start = math.Min(r.Start, existing.Start)
			r.End = math.Max(r.End, existing.End)
		}
	}
	if !inserted {
		result = append(result, r)
	}
	return IntervalSet{ranges: result}
}

// Minus returns s with r removed
func (s IntervalSet) Minus(r models.Interval) IntervalSet {
	r = normalize(r)
	if r.End-r.Start <= Epsilon {
		return IntervalSet{ranges: s.Ranges()}
	}
	result := make([]models.Interval, 0, len(s.ranges)+1)

	for _, existing := range s.ranges {
		if existing.End <= r.Start || existing.Start >= r.End {
			result = append(result, existing)
			continue
		}
		if r.Start-existing.Start > Epsilon {
			result = append(result, models.Interval{Start: existing.Start, End: r.Start})
		}
		if existing.End-r.End > Epsilon {
			result = append(result, models.Interval{Start: r.End, End: existing.End})
		}
	}
	return IntervalSet{ranges: result}
}

// Union returns the union of two sets
func (s IntervalSet) Union(other IntervalSet) IntervalSet {
	result := s
	for _, r := range other.ranges {
		result = result.Plus(r)
	}
	return result
}

// Ranges returns a copy of the normalized ranges
func (s IntervalSet) Ranges() []models.Interval {
	return append([]models.Interval(nil), s.ranges...)
}

// IsEmpty reports whether the set holds no range
func (s IntervalSet) IsEmpty() bool {
	return len(s.ranges) == 0
}

// Covers reports whether a single range of the set contains r within Epsilon
func (s IntervalSet) Covers(r models.Interval) bool {
	r = normalize(r)
	for _, existing := range s.ranges {
		if existing.Start <= r.Start+Epsilon && existing.End >= r.End-Epsilon {
			return true
		}
	}
	return false
}

// IsFull reports whether the set covers the whole edge
func (s IntervalSet) IsFull() bool {
	return s.Covers(FullInterval())
}

// Length returns the covered fraction of the edge
func (s IntervalSet) Length() float64 {
	total := 0.0
	for _, r := range s.ranges {
		total += r.End - r.Start
	}
	return total
}

// Equal compares two sets range by range within Epsilon
func (s IntervalSet) Equal(other IntervalSet) bool {
	if len(s.ranges) != len(other.ranges) {
		return false
	}
	for i := range s.ranges {
		if math.Abs(s.ranges[i].Start-other.ranges[i].Start) > Epsilon ||
			math.Abs(s.ranges[i].End-other.ranges[i].End) > Epsilon {
			return false
		}
	}
	return true
}

func (s IntervalSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ranges())
}

func (s *IntervalSet) UnmarshalJSON(data []byte) error {
	var ranges []models.Interval
	if err := json.Unmarshal(data, &ranges); err != nil {
		return err
	}
	*s = NewIntervalSet(ranges...)
	return nil
}
