package models

// Intent classifies what the user is trying to do with their calendar.
type Intent string

const (
	IntentSchedule   Intent = "schedule"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
	IntentUnknown    Intent = "unknown"
)

// ParseIntent maps free-form model output onto a known intent.
func ParseIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentSchedule, IntentReschedule, IntentCancel:
		return Intent(raw)
	default:
		return IntentUnknown
	}
}

// EventDraft is the working representation of an event assembled across
// conversation turns. Empty string means the field is not known yet.
type EventDraft struct {
	Intent     Intent `json:"intent"`
	Title      string `json:"title"`
	Date       string `json:"date"`       // YYYY-MM-DD
	StartTime  string `json:"start_time"` // HH:MM, 24-hour
	EndTime    string `json:"end_time"`   // HH:MM, 24-hour
	Recurrence string `json:"recurrence,omitempty"`
	Location   string `json:"location,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Complete reports whether the draft carries everything a calendar mutation
// needs: title, date, start and end time.
func (d EventDraft) Complete() bool {
	return d.Title != "" && d.Date != "" && d.StartTime != "" && d.EndTime != ""
}

// Empty reports whether no field has been collected yet.
func (d EventDraft) Empty() bool {
	return d == EventDraft{}
}

// Merge fills empty fields of the draft from other. The merge is monotonic:
// a field that already holds a value is never replaced. Returns true when at
// least one field was filled.
func (d *EventDraft) Merge(other EventDraft) bool {
	changed := false

	if d.Intent == "" || d.Intent == IntentUnknown {
		if other.Intent != "" && other.Intent != IntentUnknown {
			d.Intent = other.Intent
			changed = true
		}
	}

	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}

	fill(&d.Title, other.Title)
	fill(&d.Date, other.Date)
	fill(&d.StartTime, other.StartTime)
	fill(&d.EndTime, other.EndTime)
	fill(&d.Recurrence, other.Recurrence)
	fill(&d.Location, other.Location)
	fill(&d.Notes, other.Notes)

	return changed
}

// followupOrder fixes the order follow-up questions are asked in.
var followupOrder = []struct {
	field  string
	prompt string
}{
	{"start_time", "What time does it start?"},
	{"end_time", "What time does it end?"},
	{"recurrence", "Does this repeat?"},
	{"location", "Where is this happening?"},
	{"notes", "Any notes?"},
}

// MissingPrompts returns one follow-up question per field the draft is still
// missing, in a fixed order.
func (d EventDraft) MissingPrompts() []string {
	values := map[string]string{
		"start_time": d.StartTime,
		"end_time":   d.EndTime,
		"recurrence": d.Recurrence,
		"location":   d.Location,
		"notes":      d.Notes,
	}

	var prompts []string
	for _, f := range followupOrder {
		if values[f.field] == "" {
			prompts = append(prompts, f.prompt)
		}
	}
	return prompts
}
