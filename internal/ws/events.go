package ws

import "time"

type EventType string

const (
	EventAttendanceMarked  EventType = "attendance.marked"
	EventAttendanceUpdated EventType = "attendance.updated"
)

type Event struct {
	Class     string    `json:"class"`
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
