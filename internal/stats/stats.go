// Package stats computes rolling counts over the live event history.
package stats

import (
	"time"

	"boxfeed/internal/event"
)

// Window is the trailing horizon for Total/ByType counts.
const Window = 24 * time.Hour

// Stats is a point-in-time read; computing it never mutates state.
type Stats struct {
	Total     int            `json:"total"`
	ByType    map[string]int `json:"by_type"`
	Pending   int            `json:"pending"`
	Processed int            `json:"processed"`
}

// Compute counts events whose timestamp falls within the trailing 24-hour
// window ending at now. The window is evaluated fresh on every call.
// Pending is the toast queue length, Processed the processed-set size.
func Compute(history []event.LiveEvent, now time.Time, pending, processed int) Stats {
	cutoff := now.Add(-Window).UnixMilli()
	st := Stats{
		ByType:    map[string]int{},
		Pending:   pending,
		Processed: processed,
	}
	for _, ev := range history {
		if ev.Timestamp < cutoff || ev.Timestamp > now.UnixMilli() {
			continue
		}
		st.Total++
		st.ByType[ev.Type]++
	}
	return st
}
