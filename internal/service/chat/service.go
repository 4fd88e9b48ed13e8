// Package chat coordinates one conversation exchange: session resolution,
// turn persistence, prompt composition and the streamed upstream reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	chatmodel "github.com/mkessel/prompter/backend/internal/model/chat"
	promptmodel "github.com/mkessel/prompter/backend/internal/model/prompt"
	"github.com/mkessel/prompter/backend/internal/service/llm"
	"github.com/mkessel/prompter/backend/internal/service/prompt"
	"github.com/mkessel/prompter/backend/internal/service/token"
	"github.com/mkessel/prompter/backend/internal/store"
)

var (
	ErrMessageRequired = errors.New("message text is required")
	ErrSessionNotFound = store.ErrSessionNotFound
)

// Streamer relays a composed prompt upstream, forwarding each delta before
// accumulating it. *llm.Client satisfies this.
type Streamer interface {
	Model() string
	Stream(ctx context.Context, messages []promptmodel.Message, onDelta func(string) error) (string, error)
}

// Service is the per-request exchange coordinator.
type Service struct {
	store    *store.Store
	strategy prompt.Strategy
	counter  *token.Counter
	relay    Streamer
}

// NewService wires the coordinator.
func NewService(st *store.Store, strategy prompt.Strategy, counter *token.Counter, relay Streamer) *Service {
	return &Service{
		store:    st,
		strategy: strategy,
		counter:  counter,
		relay:    relay,
	}
}

// SendResult summarizes a completed exchange.
type SendResult struct {
	Session        chatmodel.Session
	CreatedSession bool
	Reply          string
	OutputTokens   int
}

// SendMessage runs one exchange. Deltas are forwarded to sink as they arrive
// from upstream.
//
// An error return means nothing was streamed and the caller can still send a
// structured error response. Once the first delta has been forwarded, every
// later failure (decode, bot-turn persistence) is appended to the stream as a
// trailing diagnostic delta instead, because the caller connection is
// one-directional text at that point.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string, sink func(string) error) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageRequired
	}

	session, created, err := s.resolveSession(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	// History is loaded before the user turn is recorded so composition sees
	// only prior turns; the new text is appended by the strategy itself.
	history, err := s.store.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.AppendMessage(ctx, session.ID, chatmodel.SenderUser, text); err != nil {
		return nil, err
	}

	if recorder, ok := s.strategy.(prompt.TurnRecorder); ok {
		if err := recorder.RecordUserText(ctx, text); err != nil {
			return nil, err
		}
	}

	messages, err := s.strategy.Compose(ctx, history, text)
	if err != nil {
		return nil, err
	}

	result := &SendResult{Session: session, CreatedSession: created}

	reply, streamErr := s.relay.Stream(ctx, messages, func(delta string) error {
		// Forward before counting so caller-visible latency tracks upstream
		// latency.
		if err := sink(delta); err != nil {
			return err
		}
		result.OutputTokens += s.counter.CountDelta(s.relay.Model(), delta)
		return nil
	})
	result.Reply = reply

	if streamErr != nil {
		var upstream *llm.UpstreamError
		switch {
		case errors.As(streamErr, &upstream):
			// Short-circuited before any delta; surface as a structured error.
			return nil, upstream
		case errors.Is(streamErr, llm.ErrStreamDecode):
			log.Printf("[chat] stream decode failed for session=%s: %v", session.ID, streamErr)
			s.appendDiagnostic(sink, streamErr.Error())
		case reply == "":
			// Request never produced output: connection or payload failure.
			return nil, streamErr
		default:
			// The caller went away mid-stream. Whatever accumulated still
			// gets persisted below.
			log.Printf("[chat] stream aborted for session=%s: %v", session.ID, streamErr)
		}
	}

	if strings.TrimSpace(reply) == "" {
		// An empty bot turn is never written.
		result.OutputTokens = 0
		log.Printf("[chat] empty reply for session=%s, skipping bot turn", session.ID)
		return result, nil
	}

	if _, err := s.store.AppendMessage(ctx, session.ID, chatmodel.SenderBot, reply); err != nil {
		// The stream already succeeded from the caller's point of view; this
		// must not resurface as a failed request.
		log.Printf("[chat] failed to persist bot turn for session=%s: %v", session.ID, err)
		s.appendDiagnostic(sink, fmt.Sprintf("failed to save response: %v", err))
		return result, nil
	}

	log.Printf("[chat] completed exchange for session=%s output_tokens=%d", session.ID, result.OutputTokens)
	return result, nil
}

// appendDiagnostic pushes a trailing error delta into the open text stream.
// A sink failure here just means the caller is already gone.
func (s *Service) appendDiagnostic(sink func(string) error, message string) {
	if err := sink("\n[Error]: " + message); err != nil {
		log.Printf("[chat] could not deliver diagnostic delta: %v", err)
	}
}

// resolveSession loads the supplied session or creates a new one titled from
// the first user message. A supplied id must exist; this fails before any
// upstream call is made.
func (s *Service) resolveSession(ctx context.Context, sessionID, text string) (chatmodel.Session, bool, error) {
	if sessionID != "" {
		session, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return chatmodel.Session{}, false, err
		}
		return session, false, nil
	}

	session, err := s.store.CreateSession(ctx, deriveTitle(text))
	if err != nil {
		return chatmodel.Session{}, false, err
	}
	return session, true, nil
}

// CountInputTokens composes the prompt exactly as SendMessage would and
// returns its token count. Nothing is persisted.
func (s *Service) CountInputTokens(ctx context.Context, sessionID, newMessage string) (int, error) {
	newMessage = strings.TrimSpace(newMessage)
	if newMessage == "" {
		return 0, ErrMessageRequired
	}

	var history []chatmodel.Message
	if sessionID != "" {
		var err error
		history, err = s.store.ListMessages(ctx, sessionID)
		if err != nil {
			return 0, err
		}
	}

	messages, err := s.strategy.Compose(ctx, history, newMessage)
	if err != nil {
		return 0, err
	}
	return s.counter.CountMessages(s.relay.Model(), messages), nil
}

// ListSessions returns session metadata, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]chatmodel.Session, error) {
	return s.store.ListSessions(ctx)
}

// GetSession returns one session's metadata.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chatmodel.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// LoadTranscript returns stored messages for the provided session in
// timestamp order.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chatmodel.Message, error) {
	return s.store.ListMessages(ctx, sessionID)
}
