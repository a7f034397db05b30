// Package domain defines the core types shared by the step aggregator and the
// group membership coordinator.
package domain

import "time"

// DayFormat is the calendar-day key used for the daily record. Days are
// evaluated in the local time zone.
const DayFormat = "2006-01-02"

// DailyStepRecord is the durable daily counter. Exactly one record is current;
// Steps never decreases within a day and resets to zero on day change.
type DailyStepRecord struct {
	Date  string
	Steps int
}

// Day returns t's calendar day in the record key format.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// UploadCursor tracks the last value pushed to the remote store. It is
// process-scoped and never persisted; resetting to zero on restart is
// accepted behaviour.
type UploadCursor struct {
	LastUploadedSteps int
	LastUploadTime    time.Time
}

// StepUpdate is the local notification payload broadcast to in-process
// observers whenever the persisted count changes.
type StepUpdate struct {
	CurrentStepCount int
}
