package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schedbot-api/internal/models"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
	"github.com/noah-isme/schedbot-api/pkg/llm"
)

type completionClient interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// ExtractorService asks the language model to turn an utterance into either
// a structured function call or a free-text follow-up. Stateless between
// calls apart from the transcript passed in.
type ExtractorService struct {
	client  completionClient
	metrics *MetricsService
	logger  *zap.Logger
}

// NewExtractorService constructs the extractor.
func NewExtractorService(client completionClient, metrics *MetricsService, logger *zap.Logger) *ExtractorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractorService{client: client, metrics: metrics, logger: logger}
}

const extractorSystemPrompt = "You are a helpful, informal scheduling assistant. " +
	"Respond casually to scheduling requests and ask follow-up questions when information is missing. " +
	"When the user wants to put something on their calendar, call schedule_event with everything you know so far. " +
	"When the user wants to remove an event, call delete_event. " +
	"Dates are YYYY-MM-DD and times are 24-hour HH:MM. " +
	"Resolve relative phrases like \"tomorrow\" or \"next Friday\" against the current time given below. " +
	"Never show structured data or JSON to the user.\n" +
	"Current time: %s (%s)."

// Extract performs one extraction call. Transport and malformed-response
// failures surface as ErrExtraction; callers must not show them to the user.
func (s *ExtractorService) Extract(ctx context.Context, utterance string, transcript []models.ChatTurn, now time.Time) (*models.Extraction, error) {
	messages := make([]llm.Message, 0, len(transcript)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf(extractorSystemPrompt, now.Format(time.RFC3339), now.Weekday()),
	})
	for _, turn := range transcript {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: utterance})

	started := time.Now()
	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Tools:       extractorTools(),
		Temperature: 0.3,
		MaxTokens:   300,
	})
	s.metrics.ObserveExternalCall("llm", err, time.Since(started))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExtraction.Code, appErrors.ErrExtraction.Status, "model call failed")
	}

	for _, call := range resp.ToolCalls {
		if call.Name != models.FunctionScheduleEvent && call.Name != models.FunctionDeleteEvent {
			s.logger.Warn("model called unknown function", zap.String("name", call.Name))
			continue
		}

		var args models.ScheduleArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrExtraction.Code, appErrors.ErrExtraction.Status, "unparseable function arguments")
		}
		return &models.Extraction{Call: &models.FunctionCall{Name: call.Name, Args: args}}, nil
	}

	return &models.Extraction{Message: resp.Content}, nil
}

func extractorTools() []llm.ToolDefinition {
	timeProp := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}

	return []llm.ToolDefinition{
		{
			Name:        models.FunctionScheduleEvent,
			Description: "Record scheduling details the user has provided so far. Call with every field you know; omit fields the user has not given.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"intent":     map[string]interface{}{"type": "string", "enum": []string{"schedule", "reschedule", "cancel", "unknown"}},
					"title":      timeProp("Short event title"),
					"date":       timeProp("Event date, YYYY-MM-DD"),
					"start_time": timeProp("Start time, HH:MM 24-hour"),
					"end_time":   timeProp("End time, HH:MM 24-hour"),
					"recurrence": timeProp("RRULE string when the event repeats"),
					"location":   timeProp("Where the event happens"),
					"notes":      timeProp("Free-form notes"),
				},
				"required": []string{"intent"},
			},
		},
		{
			Name:        models.FunctionDeleteEvent,
			Description: "Remove an existing event identified by its date and start time.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"date":       timeProp("Event date, YYYY-MM-DD"),
					"start_time": timeProp("Start time, HH:MM 24-hour"),
				},
				"required": []string{"date", "start_time"},
			},
		},
	}
}
