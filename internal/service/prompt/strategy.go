// Package prompt assembles the ordered message list sent upstream. Two
// strategies exist: Simple replays the session history behind an optional
// codebase preamble, ScratchPad folds everything into one self-contained
// user message per turn.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkessel/prompter/backend/internal/model/chat"
	promptmodel "github.com/mkessel/prompter/backend/internal/model/prompt"
	"github.com/mkessel/prompter/backend/internal/model/scratchpad"
	"github.com/mkessel/prompter/backend/internal/service/contextstore"
)

// Mode selects a composition strategy from configuration.
const (
	ModeSimple     = "simple"
	ModeScratchPad = "scratchpad"
)

// Strategy builds the upstream payload for one turn. Compose never truncates
// for length; overflow is only surfaced through token counting.
type Strategy interface {
	Compose(ctx context.Context, history []chat.Message, userText string) ([]promptmodel.Message, error)
}

// TurnRecorder is implemented by strategies that persist part of the user's
// turn before the upstream call. The coordinator invokes it on real sends
// only, never when counting tokens.
type TurnRecorder interface {
	RecordUserText(ctx context.Context, userText string) error
}

// ForMode returns the strategy configured by mode.
func ForMode(mode string, contexts *contextstore.Store) (Strategy, error) {
	switch mode {
	case "", ModeSimple:
		return &SimpleStrategy{Contexts: contexts}, nil
	case ModeScratchPad:
		return &ScratchPadStrategy{Contexts: contexts}, nil
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", mode)
	}
}

// SimpleStrategy emits the codebase blob as a system preamble, then the full
// prior history role-mapped, then the new user message.
type SimpleStrategy struct {
	Contexts *contextstore.Store
}

func (s *SimpleStrategy) Compose(_ context.Context, history []chat.Message, userText string) ([]promptmodel.Message, error) {
	messages := make([]promptmodel.Message, 0, len(history)+2)

	if blob, ok := s.Contexts.CodebaseContext(); ok {
		messages = append(messages, promptmodel.Message{
			Role:    promptmodel.RoleSystem,
			Content: "You have access to the following codebase:\n\n" + blob,
		})
	}

	for _, msg := range history {
		messages = append(messages, promptmodel.Message{
			Role:    mapRole(msg.Sender),
			Content: msg.Content,
		})
	}

	messages = append(messages, promptmodel.Message{
		Role:    promptmodel.RoleUser,
		Content: userText,
	})
	return messages, nil
}

// mapRole converts a persisted sender to an upstream role. Unknown senders
// default to assistant.
func mapRole(sender string) string {
	switch sender {
	case chat.SenderUser:
		return promptmodel.RoleUser
	case chat.SenderBot:
		return promptmodel.RoleAssistant
	default:
		return promptmodel.RoleAssistant
	}
}

// ScratchPadStrategy concatenates all slots in fixed order into one user
// message, the codebase blob prepended when present. Each turn is
// self-contained: prior history is not replayed.
type ScratchPadStrategy struct {
	Contexts *contextstore.Store
}

func (s *ScratchPadStrategy) Compose(ctx context.Context, _ []chat.Message, userText string) ([]promptmodel.Message, error) {
	sections, err := s.Contexts.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load scratch pad: %w", err)
	}

	var sb strings.Builder
	if blob, ok := s.Contexts.CodebaseContext(); ok {
		sb.WriteString(blob)
		sb.WriteString("\n\n")
	}

	for i, section := range sections {
		content := section.Content
		if section.Label == scratchpad.LabelTask {
			// The new user text stands in for the task slot regardless of
			// whether RecordUserText has persisted it yet.
			content = userText
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s", i+1, section.Label, content)
	}

	return []promptmodel.Message{{
		Role:    promptmodel.RoleUser,
		Content: sb.String(),
	}}, nil
}

// RecordUserText overwrites the task slot before the upstream call.
func (s *ScratchPadStrategy) RecordUserText(ctx context.Context, userText string) error {
	return s.Contexts.SetSection(ctx, scratchpad.LabelTask, userText)
}
