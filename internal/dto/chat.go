package dto

import "github.com/noah-isme/schedbot-api/internal/models"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse mirrors the original chat contract: a user-facing message and
// the structured draft when one is in play.
type ChatResponse struct {
	Response   string             `json:"response"`
	Structured *models.EventDraft `json:"structured"`
}

// EventRecord is a single row of GET /events.
type EventRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// DeleteEventRequest is the body of POST /delete-event.
type DeleteEventRequest struct {
	EventID string `json:"event_id" binding:"required"`
}
