package models

import "time"

// ChatTurn is a single entry in a session transcript.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Extraction is the outcome of one intent-extraction call. Exactly one of
// the two shapes is populated: a function call with typed arguments, or the
// model's free-text reply.
type Extraction struct {
	Call    *FunctionCall
	Message string
}

// FunctionCall carries a structured action chosen by the model.
type FunctionCall struct {
	Name string
	Args ScheduleArgs
}

// Function names the model may invoke.
const (
	FunctionScheduleEvent = "schedule_event"
	FunctionDeleteEvent   = "delete_event"
)

// ScheduleArgs covers both functions; delete_event uses Date and StartTime
// only.
type ScheduleArgs struct {
	Intent     string `json:"intent"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Recurrence string `json:"recurrence"`
	Location   string `json:"location"`
	Notes      string `json:"notes"`
}

// Draft converts extracted arguments into an EventDraft.
func (a ScheduleArgs) Draft() EventDraft {
	return EventDraft{
		Intent:     ParseIntent(a.Intent),
		Title:      a.Title,
		Date:       a.Date,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		Recurrence: a.Recurrence,
		Location:   a.Location,
		Notes:      a.Notes,
	}
}

// CalendarEvent is a value view of an event owned by the remote calendar.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Recurrence  string    `json:"recurrence,omitempty"`
}
