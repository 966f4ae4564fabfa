package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedbot-api/internal/dto"
	"github.com/noah-isme/schedbot-api/internal/models"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
	"github.com/noah-isme/schedbot-api/pkg/response"
)

const upcomingEventsLimit = 50

type eventsService interface {
	ListUpcoming(ctx context.Context, max int64) ([]models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// EventsHandler exposes the calendar listing and direct-delete endpoints
// backing the sidebar in the chat UI.
type EventsHandler struct {
	service eventsService
}

// NewEventsHandler builds a new handler.
func NewEventsHandler(service eventsService) *EventsHandler {
	return &EventsHandler{service: service}
}

// List returns upcoming events.
func (h *EventsHandler) List(c *gin.Context) {
	events, err := h.service.ListUpcoming(c.Request.Context(), upcomingEventsLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	records := make([]dto.EventRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, dto.EventRecord{
			ID:    ev.ID,
			Title: ev.Title,
			Start: ev.Start.Format(time.RFC3339),
			End:   ev.End.Format(time.RFC3339),
		})
	}
	response.JSON(c, http.StatusOK, records)
}

// Delete removes a single event by ID.
func (h *EventsHandler) Delete(c *gin.Context) {
	var req dto.DeleteEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid delete payload"))
		return
	}
	if err := h.service.DeleteEvent(c.Request.Context(), req.EventID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
