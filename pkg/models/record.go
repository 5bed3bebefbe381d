package models

import "time"

// Record is a single line of a capacity log: elapsed milliseconds and the
// queue capacity at that moment.
type Record struct {
	Time     float64 `json:"time"`
	Capacity float64 `json:"capacity"`
}

// Run is one imported capacity log
type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Checksum   string    `json:"checksum"`
	ImportedAt time.Time `json:"imported_at"`
	Count      int       `json:"count"`
	Published  bool      `json:"published"`
}

// Summary describes a sequence of records as the queue saw it
type Summary struct {
	Count       int     `json:"count"`
	FirstTime   float64 `json:"first_time"`
	LastTime    float64 `json:"last_time"`
	MinCapacity float64 `json:"min_capacity"`
	MaxCapacity float64 `json:"max_capacity"`
	Growths     int     `json:"growths"`
	Shrinks     int     `json:"shrinks"`
}

// Duration returns the elapsed time covered by the records, in milliseconds
func (s Summary) Duration() float64 {
	return s.LastTime - s.FirstTime
}

// Resizes returns how many times the capacity changed between adjacent records
func (s Summary) Resizes() int {
	return s.Growths + s.Shrinks
}

// Summarize walks records in order. An empty slice yields a zero Summary.
func Summarize(records []Record) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}

	s.Count = len(records)
	s.FirstTime = records[0].Time
	s.LastTime = records[len(records)-1].Time
	s.MinCapacity = records[0].Capacity
	s.MaxCapacity = records[0].Capacity

	for i, r := range records {
		if r.Capacity < s.MinCapacity {
			s.MinCapacity = r.Capacity
		}
		if r.Capacity > s.MaxCapacity {
			s.MaxCapacity = r.Capacity
		}
		if i == 0 {
			continue
		}
		switch prev := records[i-1].Capacity; {
		case r.Capacity > prev:
			s.Growths++
		case r.Capacity < prev:
			s.Shrinks++
		}
	}

	return s
}
