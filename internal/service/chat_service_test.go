package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schedbot-api/internal/models"
	"github.com/noah-isme/schedbot-api/pkg/config"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
)

type extractorStub struct {
	results []*models.Extraction
	err     error
	calls   int
}

func (s *extractorStub) Extract(ctx context.Context, utterance string, transcript []models.ChatTurn, now time.Time) (*models.Extraction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx], nil
}

type gatewayStub struct {
	conflict    bool
	conflictErr error
	link        string
	createErr   error
	createCalls int
	lastDraft   models.EventDraft
	findID      string
	findErr     error
	deleteErr   error
	deletedID   string
}

func (s *gatewayStub) HasConflict(ctx context.Context, date, startTime, endTime string) (bool, error) {
	return s.conflict, s.conflictErr
}

func (s *gatewayStub) CreateEvent(ctx context.Context, draft models.EventDraft) (string, error) {
	s.createCalls++
	s.lastDraft = draft
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.link, nil
}

func (s *gatewayStub) DeleteEvent(ctx context.Context, eventID string) error {
	s.deletedID = eventID
	return s.deleteErr
}

func (s *gatewayStub) FindEvent(ctx context.Context, date, startTime string) (string, error) {
	return s.findID, s.findErr
}

type resolverStub struct {
	date  string
	clock string
	ok    bool
}

func (s resolverStub) Resolve(phrase string, base time.Time) (string, string, bool) {
	return s.date, s.clock, s.ok
}

func scheduleCall(args models.ScheduleArgs) *models.Extraction {
	return &models.Extraction{Call: &models.FunctionCall{Name: models.FunctionScheduleEvent, Args: args}}
}

func deleteCall(date, start string) *models.Extraction {
	return &models.Extraction{Call: &models.FunctionCall{
		Name: models.FunctionDeleteEvent,
		Args: models.ScheduleArgs{Date: date, StartTime: start},
	}}
}

func newTestChatService(extractor *extractorStub, gateway *gatewayStub, resolver phraseResolver) (*ChatService, *SessionStore) {
	store := NewSessionStore(config.SessionConfig{TTL: time.Minute, MaxEntries: 16})
	if resolver == nil {
		resolver = resolverStub{}
	}
	svc := NewChatService(extractor, gateway, resolver, store, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestChatServiceEmptyMessage(t *testing.T) {
	extractor := &extractorStub{}
	svc, _ := newTestChatService(extractor, &gatewayStub{}, nil)

	resp := svc.Handle(context.Background(), "s1", "   ")

	assert.Equal(t, msgClarify, resp.Response)
	assert.Zero(t, extractor.calls)
}

func TestChatServiceSchedulesCompleteDraft(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{
			Intent:     "schedule",
			Title:      "Lunch with Sam",
			Date:       "2026-08-29",
			StartTime:  "12:00",
			EndTime:    "13:00",
			Recurrence: "none",
			Location:   "Cafe",
			Notes:      "bring laptop",
		}),
	}}
	gateway := &gatewayStub{link: "https://calendar.example/event/1"}
	svc, store := newTestChatService(extractor, gateway, nil)

	resp := svc.Handle(context.Background(), "s1", "Lunch with Sam tomorrow 12pm to 1pm")

	assert.Contains(t, resp.Response, "https://calendar.example/event/1")
	require.NotNil(t, resp.Structured)
	assert.Equal(t, "Lunch with Sam", resp.Structured.Title)
	assert.Equal(t, 1, gateway.createCalls)
	assert.Equal(t, "Lunch with Sam", gateway.lastDraft.Title)

	// Draft is cleared after a successful schedule.
	assert.True(t, store.Get("s1").Draft.Empty())
}

func TestChatServicePartialDraftAsksFollowups(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Team meeting", Date: "2026-09-04"}),
	}}
	gateway := &gatewayStub{}
	svc, store := newTestChatService(extractor, gateway, nil)

	resp := svc.Handle(context.Background(), "s1", "Schedule a meeting Friday")

	assert.Zero(t, gateway.createCalls)
	require.NotNil(t, resp.Structured)

	// Follow-up questions come in a fixed order.
	expected := msgFollowupHead +
		"\n- What time does it start?" +
		"\n- What time does it end?" +
		"\n- Does this repeat?" +
		"\n- Where is this happening?" +
		"\n- Any notes?"
	assert.Equal(t, expected, resp.Response)

	draft := store.Get("s1").Draft
	assert.Equal(t, "Team meeting", draft.Title)
	assert.Equal(t, "2026-09-04", draft.Date)
}

func TestChatServiceMergeThenConflictRetainsDraft(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Team meeting", Date: "2026-09-04"}),
		scheduleCall(models.ScheduleArgs{
			Intent: "schedule", StartTime: "15:00", EndTime: "16:00",
			Recurrence: "none", Location: "HQ", Notes: "agenda tbd",
		}),
	}}
	gateway := &gatewayStub{conflict: true}
	svc, store := newTestChatService(extractor, gateway, nil)

	svc.Handle(context.Background(), "s1", "Schedule a meeting Friday")
	resp := svc.Handle(context.Background(), "s1", "3pm to 4pm")

	assert.Equal(t, msgConflict, resp.Response)
	assert.Zero(t, gateway.createCalls, "conflict must short-circuit event creation")

	draft := store.Get("s1").Draft
	assert.Equal(t, "Team meeting", draft.Title)
	assert.Equal(t, "2026-09-04", draft.Date)
	assert.Equal(t, "15:00", draft.StartTime)
	assert.Equal(t, "16:00", draft.EndTime)
}

func TestChatServiceMergeNeverOverwrites(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Dentist", Date: "2026-09-01"}),
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Something else", Date: "2026-12-25"}),
	}}
	svc, store := newTestChatService(extractor, &gatewayStub{}, nil)

	svc.Handle(context.Background(), "s1", "dentist on the 1st")
	svc.Handle(context.Background(), "s1", "actually forget what I said")

	draft := store.Get("s1").Draft
	assert.Equal(t, "Dentist", draft.Title)
	assert.Equal(t, "2026-09-01", draft.Date)
}

func TestChatServiceDeleteFindsAndRemoves(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		deleteCall("2026-08-28", "14:00"),
	}}
	gateway := &gatewayStub{findID: "evt-42"}
	svc, store := newTestChatService(extractor, gateway, nil)

	// Pre-load a draft to prove the delete path leaves it alone.
	store.Get("s1").Draft = models.EventDraft{Title: "Unrelated"}

	resp := svc.Handle(context.Background(), "s1", "cancel my 2pm meeting today")

	assert.Equal(t, msgDeleted, resp.Response)
	assert.Equal(t, "evt-42", gateway.deletedID)
	assert.Equal(t, "Unrelated", store.Get("s1").Draft.Title)
}

func TestChatServiceDeleteNotFound(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		deleteCall("2026-08-28", "14:00"),
	}}
	gateway := &gatewayStub{}
	svc, _ := newTestChatService(extractor, gateway, nil)

	resp := svc.Handle(context.Background(), "s1", "cancel my 2pm meeting today")

	assert.Equal(t, msgNotFound, resp.Response)
	assert.Empty(t, gateway.deletedID)
}

func TestChatServiceResetFromAnyState(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Team meeting", Date: "2026-09-04"}),
	}}
	svc, store := newTestChatService(extractor, &gatewayStub{}, nil)

	svc.Handle(context.Background(), "s1", "Schedule a meeting Friday")
	require.False(t, store.Get("s1").Draft.Empty())

	for _, phrase := range []string{"reset", "Start Over", "CLEAR", "I made a mistake"} {
		resp := svc.Handle(context.Background(), "s1", phrase)
		assert.Equal(t, msgResetAck, resp.Response)
		assert.True(t, store.Get("s1").Draft.Empty())
		assert.Empty(t, store.Get("s1").Transcript)
	}

	// Reset is terminal: only the initial scheduling turn hit the extractor.
	assert.Equal(t, 1, extractor.calls)
}

func TestChatServiceFreeTextCarriesDateHint(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		{Message: "Sure - what day works for you?"},
	}}
	svc, store := newTestChatService(extractor, &gatewayStub{}, resolverStub{date: "2026-08-29", clock: "15:00", ok: true})

	resp := svc.Handle(context.Background(), "s1", "maybe tomorrow at 3?")

	assert.Equal(t, "Sure - what day works for you?", resp.Response)
	require.NotNil(t, resp.Structured)
	assert.Equal(t, "2026-08-29", resp.Structured.Date)
	assert.Equal(t, "15:00", resp.Structured.StartTime)
	assert.True(t, store.Get("s1").Draft.Empty(), "free text must not mutate the draft")
}

func TestChatServiceExtractionFailureKeepsState(t *testing.T) {
	first := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Team meeting", Date: "2026-09-04"}),
	}}
	svc, store := newTestChatService(first, &gatewayStub{}, nil)
	svc.Handle(context.Background(), "s1", "Schedule a meeting Friday")

	first.err = appErrors.Clone(appErrors.ErrExtraction, "")
	resp := svc.Handle(context.Background(), "s1", "3pm to 4pm")

	assert.Equal(t, msgGenericError, resp.Response)
	assert.Equal(t, "Team meeting", store.Get("s1").Draft.Title)
}

func TestChatServiceGatewayFailurePreservesDraft(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{
			Intent: "schedule", Title: "Lunch", Date: "2026-08-29",
			StartTime: "12:00", EndTime: "13:00",
			Recurrence: "none", Location: "Cafe", Notes: "n/a",
		}),
	}}
	gateway := &gatewayStub{createErr: appErrors.Clone(appErrors.ErrGateway, "")}
	svc, store := newTestChatService(extractor, gateway, nil)

	resp := svc.Handle(context.Background(), "s1", "lunch tomorrow noon")

	assert.Equal(t, msgGenericError, resp.Response)
	assert.Equal(t, "Lunch", store.Get("s1").Draft.Title)
}

func TestChatServiceUnauthenticatedPointsToAuthorize(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{
			Intent: "schedule", Title: "Lunch", Date: "2026-08-29",
			StartTime: "12:00", EndTime: "13:00",
		}),
	}}
	gateway := &gatewayStub{conflictErr: appErrors.Clone(appErrors.ErrUnauthenticated, "")}
	svc, _ := newTestChatService(extractor, gateway, nil)

	resp := svc.Handle(context.Background(), "s1", "lunch tomorrow noon")

	assert.Equal(t, msgAuthRequired, resp.Response)
	assert.Zero(t, gateway.createCalls)
}

func TestChatServiceSessionsAreIsolated(t *testing.T) {
	extractor := &extractorStub{results: []*models.Extraction{
		scheduleCall(models.ScheduleArgs{Intent: "schedule", Title: "Team meeting", Date: "2026-09-04"}),
	}}
	svc, store := newTestChatService(extractor, &gatewayStub{}, nil)

	svc.Handle(context.Background(), "alice", "Schedule a meeting Friday")

	assert.False(t, store.Get("alice").Draft.Empty())
	assert.True(t, store.Get("bob").Draft.Empty())
}
