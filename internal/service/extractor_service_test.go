package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schedbot-api/internal/models"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
	"github.com/noah-isme/schedbot-api/pkg/llm"
)

type completionStub struct {
	resp     *llm.CompletionResponse
	err      error
	captured llm.CompletionRequest
}

func (s *completionStub) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.captured = req
	return s.resp, s.err
}

func TestExtractorReturnsScheduleCall(t *testing.T) {
	client := &completionStub{resp: &llm.CompletionResponse{
		ToolCalls: []llm.ToolCall{{
			Name:      models.FunctionScheduleEvent,
			Arguments: json.RawMessage(`{"intent":"schedule","title":"Lunch","date":"2026-08-29","start_time":"12:00","end_time":"13:00"}`),
		}},
	}}
	svc := NewExtractorService(client, nil, nil)

	result, err := svc.Extract(context.Background(), "lunch tomorrow", nil, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.Call)
	assert.Equal(t, models.FunctionScheduleEvent, result.Call.Name)
	assert.Equal(t, "Lunch", result.Call.Args.Title)
	assert.Equal(t, "12:00", result.Call.Args.StartTime)
}

func TestExtractorReturnsFreeText(t *testing.T) {
	client := &completionStub{resp: &llm.CompletionResponse{Content: "What time works?"}}
	svc := NewExtractorService(client, nil, nil)

	result, err := svc.Extract(context.Background(), "schedule a meeting", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, result.Call)
	assert.Equal(t, "What time works?", result.Message)
}

func TestExtractorPassesTranscriptAndReferenceInstant(t *testing.T) {
	client := &completionStub{resp: &llm.CompletionResponse{Content: "ok"}}
	svc := NewExtractorService(client, nil, nil)
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	transcript := []models.ChatTurn{
		{Role: "user", Content: "schedule a meeting"},
		{Role: "assistant", Content: "when?"},
	}
	_, err := svc.Extract(context.Background(), "friday", transcript, now)
	require.NoError(t, err)

	require.Len(t, client.captured.Messages, 4)
	assert.Equal(t, "system", client.captured.Messages[0].Role)
	assert.Contains(t, client.captured.Messages[0].Content, "2026-08-28T09:00:00Z")
	assert.Equal(t, "schedule a meeting", client.captured.Messages[1].Content)
	assert.Equal(t, "friday", client.captured.Messages[3].Content)
	require.Len(t, client.captured.Tools, 2)
}

func TestExtractorTransportFailureIsExtractionError(t *testing.T) {
	client := &completionStub{err: assert.AnError}
	svc := NewExtractorService(client, nil, nil)

	_, err := svc.Extract(context.Background(), "lunch", nil, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExtraction.Code, appErrors.FromError(err).Code)
}

func TestExtractorMalformedArgumentsIsExtractionError(t *testing.T) {
	client := &completionStub{resp: &llm.CompletionResponse{
		ToolCalls: []llm.ToolCall{{
			Name:      models.FunctionScheduleEvent,
			Arguments: json.RawMessage(`{not json`),
		}},
	}}
	svc := NewExtractorService(client, nil, nil)

	_, err := svc.Extract(context.Background(), "lunch", nil, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExtraction.Code, appErrors.FromError(err).Code)
}

func TestExtractorSkipsUnknownFunctions(t *testing.T) {
	client := &completionStub{resp: &llm.CompletionResponse{
		Content: "fallback",
		ToolCalls: []llm.ToolCall{{
			Name:      "send_email",
			Arguments: json.RawMessage(`{}`),
		}},
	}}
	svc := NewExtractorService(client, nil, nil)

	result, err := svc.Extract(context.Background(), "email bob", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, result.Call)
	assert.Equal(t, "fallback", result.Message)
}
