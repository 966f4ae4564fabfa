package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schedbot-api/internal/dto"
	"github.com/noah-isme/schedbot-api/internal/models"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
)

type intentExtractor interface {
	Extract(ctx context.Context, utterance string, transcript []models.ChatTurn, now time.Time) (*models.Extraction, error)
}

type calendarGateway interface {
	HasConflict(ctx context.Context, date, startTime, endTime string) (bool, error)
	CreateEvent(ctx context.Context, draft models.EventDraft) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
	FindEvent(ctx context.Context, date, startTime string) (string, error)
}

type phraseResolver interface {
	Resolve(phrase string, base time.Time) (date string, clock string, ok bool)
}

type sessionProvider interface {
	Get(id string) *Session
}

// Fixed user-facing messages. External failures always collapse into one of
// these; raw provider errors never reach the user.
const (
	msgClarify      = "I didn't catch that. Can you say it again?"
	msgResetAck     = "Alright! We can start over. What did you need to schedule, again?"
	msgConflict     = "You already have something scheduled at that time. Want to pick another time?"
	msgScheduled    = "Done! I've added this to your calendar. [View it here](%s)"
	msgDeleted      = "Got it, that event is off your calendar."
	msgNotFound     = "I couldn't find an event at that time."
	msgAuthRequired = "I need access to your calendar first. Head to /authorize to connect it."
	msgGenericError = "Something went wrong. Try again shortly."
	msgFollowupHead = "Before I add this to your calendar:"
)

// resetPhrases trigger a terminal session reset without an extractor call.
var resetPhrases = map[string]struct{}{
	"reset":            {},
	"start over":       {},
	"clear":            {},
	"i made a mistake": {},
}

// ChatService is the conversational scheduling state machine. It owns the
// per-session draft memory, merges newly extracted fields into it, decides
// whether enough information exists to act, and drives the calendar gateway.
type ChatService struct {
	extractor intentExtractor
	calendar  calendarGateway
	resolver  phraseResolver
	sessions  sessionProvider
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewChatService constructs the orchestrator.
func NewChatService(extractor intentExtractor, calendar calendarGateway, resolver phraseResolver, sessions sessionProvider, metrics *MetricsService, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		extractor: extractor,
		calendar:  calendar,
		resolver:  resolver,
		sessions:  sessions,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle processes one user message for one session and always produces a
// user-facing response. The session lock is held for the whole turn, so a
// later message cannot finalize against a draft an earlier in-flight message
// is still updating.
func (s *ChatService) Handle(ctx context.Context, sessionID, message string) *dto.ChatResponse {
	message = strings.TrimSpace(message)
	if message == "" {
		return &dto.ChatResponse{Response: msgClarify}
	}

	session := s.sessions.Get(sessionID)
	session.Lock()
	defer session.Unlock()

	if _, isReset := resetPhrases[strings.ToLower(message)]; isReset {
		session.Reset()
		s.observeTurn("reset")
		return &dto.ChatResponse{Response: msgResetAck}
	}

	session.Transcript = append(session.Transcript, models.ChatTurn{Role: "user", Content: message})

	resp := s.handleTurn(ctx, session, message)

	session.Transcript = append(session.Transcript, models.ChatTurn{Role: "assistant", Content: resp.Response})
	return resp
}

func (s *ChatService) handleTurn(ctx context.Context, session *Session, message string) *dto.ChatResponse {
	extraction, err := s.extractor.Extract(ctx, message, session.Transcript[:len(session.Transcript)-1], s.now())
	if err != nil {
		s.logger.Error("intent extraction failed", zap.String("session_id", session.ID), zap.Error(err))
		s.observeTurn("extraction_error")
		return &dto.ChatResponse{Response: msgGenericError}
	}

	switch {
	case extraction.Call != nil && extraction.Call.Name == models.FunctionScheduleEvent:
		return s.handleSchedule(ctx, session, extraction.Call.Args)
	case extraction.Call != nil && extraction.Call.Name == models.FunctionDeleteEvent:
		return s.handleDelete(ctx, extraction.Call.Args)
	default:
		return s.handleFreeText(message, extraction.Message)
	}
}

// handleSchedule merges extracted fields into the draft and advances the
// state machine: follow-up questions while incomplete, conflict check and
// create once complete.
//
// The merge happens regardless of the intent value carried in the arguments.
// The source behavior was inconsistent about gating on intent; merging
// unconditionally is the deliberate choice here, since the model already
// expressed scheduling intent by calling schedule_event.
func (s *ChatService) handleSchedule(ctx context.Context, session *Session, args models.ScheduleArgs) *dto.ChatResponse {
	session.Draft.Merge(args.Draft())
	draft := session.Draft

	if !draft.Complete() {
		s.observeTurn("followup")
		return &dto.ChatResponse{
			Response:   followupMessage(draft),
			Structured: &draft,
		}
	}

	conflict, err := s.calendar.HasConflict(ctx, draft.Date, draft.StartTime, draft.EndTime)
	if err != nil {
		return s.failure(session.ID, "conflict check", err, &draft)
	}
	if conflict {
		s.observeTurn("conflict")
		return &dto.ChatResponse{Response: msgConflict, Structured: &draft}
	}

	link, err := s.calendar.CreateEvent(ctx, draft)
	if err != nil {
		return s.failure(session.ID, "create event", err, &draft)
	}

	session.Reset()
	s.observeTurn("scheduled")
	return &dto.ChatResponse{
		Response:   fmt.Sprintf(msgScheduled, link),
		Structured: &draft,
	}
}

// handleDelete resolves a user-stated (date, start time) to a provider event
// ID and deletes it. This path never touches session memory.
func (s *ChatService) handleDelete(ctx context.Context, args models.ScheduleArgs) *dto.ChatResponse {
	eventID, err := s.calendar.FindEvent(ctx, args.Date, args.StartTime)
	if err != nil {
		return s.failure("", "event lookup", err, nil)
	}
	if eventID == "" {
		s.observeTurn("delete_not_found")
		return &dto.ChatResponse{Response: msgNotFound}
	}

	if err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
		return s.failure("", "delete event", err, nil)
	}

	s.observeTurn("deleted")
	return &dto.ChatResponse{Response: msgDeleted}
}

// handleFreeText relays the model's reply verbatim, attaching a best-effort
// structured date hint when the raw utterance parses as one. The draft is
// not mutated.
func (s *ChatService) handleFreeText(message, reply string) *dto.ChatResponse {
	if reply == "" {
		reply = msgClarify
	}

	resp := &dto.ChatResponse{Response: reply}
	if date, clock, ok := s.resolver.Resolve(message, s.now()); ok {
		resp.Structured = &models.EventDraft{Date: date, StartTime: clock}
	}
	s.observeTurn("free_text")
	return resp
}

// failure logs the underlying error and converts it into one of the fixed
// user-facing strings. Draft state is preserved so the user can retry.
func (s *ChatService) failure(sessionID, op string, err error, draft *models.EventDraft) *dto.ChatResponse {
	s.logger.Error("calendar operation failed",
		zap.String("session_id", sessionID),
		zap.String("op", op),
		zap.Error(err),
	)
	s.observeTurn("gateway_error")

	if appErrors.FromError(err).Code == appErrors.ErrUnauthenticated.Code {
		return &dto.ChatResponse{Response: msgAuthRequired, Structured: draft}
	}
	return &dto.ChatResponse{Response: msgGenericError, Structured: draft}
}

func (s *ChatService) observeTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveChatTurn(outcome)
	}
}

func followupMessage(draft models.EventDraft) string {
	prompts := draft.MissingPrompts()
	if len(prompts) == 0 {
		// Incomplete but times are known: title or date is the gap.
		return "What should I call this event, and what date is it on?"
	}

	var b strings.Builder
	b.WriteString(msgFollowupHead)
	for _, prompt := range prompts {
		b.WriteString("\n- ")
		b.WriteString(prompt)
	}
	return b.String()
}
