// Package confirmation derives appointment reminder entries ("confirmation
// stages") from a booked appointment and moves them through the reminder
// queue: persistence, fan-out and delivery.
package confirmation

import "time"

// Stage names a fixed lead time before an appointment.
type Stage string

const (
	Stage48h Stage = "48h"
	Stage24h Stage = "24h"
	Stage2h  Stage = "2h"
)

// StageSpec defines how far before the appointment a stage fires.
type StageSpec struct {
	Stage       Stage
	OffsetHours int
}

// Offset returns the stage lead time as a duration.
func (s StageSpec) Offset() time.Duration {
	return time.Duration(s.OffsetHours) * time.Hour
}

// Stages is the fixed, ordered stage table. Output order always follows it.
var Stages = [...]StageSpec{
	{Stage: Stage48h, OffsetHours: 48},
	{Stage: Stage24h, OffsetHours: 24},
	{Stage: Stage2h, OffsetHours: 2},
}

// Status tracks a reminder through delivery.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)
