package domain

import "time"

// Timestamps provides the creation and modification times shared by mutable entities.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Now returns the current time truncated to milliseconds in UTC.
// Stored timestamps use millisecond precision so that values round-trip
// through sort keys unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Touch updates the UpdatedAt timestamp to the current time.
func (t *Timestamps) Touch() {
	t.UpdatedAt = Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (t *Timestamps) InitTimestamps() {
	now := Now()
	t.CreatedAt = now
	t.UpdatedAt = now
}
