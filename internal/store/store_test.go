package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mkessel/prompter/backend/internal/model/chat"
	"github.com/mkessel/prompter/backend/internal/model/scratchpad"
	"github.com/mkessel/prompter/backend/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionMessageRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "login feature")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := s.AppendMessage(ctx, session.ID, chat.SenderUser, "Please add a login feature"); err != nil {
		t.Fatalf("AppendMessage user err: %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, chat.SenderBot, "Sure, here is a plan."); err != nil {
		t.Fatalf("AppendMessage bot err: %v", err)
	}

	messages, err := s.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Sender != chat.SenderUser || messages[1].Sender != chat.SenderBot {
		t.Fatalf("unexpected sender order: %s, %s", messages[0].Sender, messages[1].Sender)
	}
	if messages[0].Content != "Please add a login feature" {
		t.Fatalf("unexpected user content: %q", messages[0].Content)
	}
}

func TestListMessagesIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "test")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, chat.SenderUser, "hello"); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	first, err := s.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("first ListMessages err: %v", err)
	}
	second, err := s.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("second ListMessages err: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("fetches differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fetches differ at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestListMessagesUnknownSession(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ListMessages(context.Background(), "missing")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSession(context.Background(), "missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestScratchPadSeededInOrder(t *testing.T) {
	s := openTestStore(t)

	sections, err := s.ListScratchPad(context.Background())
	if err != nil {
		t.Fatalf("ListScratchPad err: %v", err)
	}

	labels := scratchpad.SeedLabels()
	if len(sections) != len(labels) {
		t.Fatalf("expected %d sections, got %d", len(labels), len(sections))
	}
	for i, section := range sections {
		if section.Label != labels[i] {
			t.Fatalf("section %d: got %q want %q", i, section.Label, labels[i])
		}
		if section.Content != "" {
			t.Fatalf("section %q seeded with non-empty content %q", section.Label, section.Content)
		}
	}
}

func TestSetScratchPad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetScratchPad(ctx, scratchpad.LabelContext, "project uses chi"); err != nil {
		t.Fatalf("SetScratchPad err: %v", err)
	}

	sections, err := s.ListScratchPad(ctx)
	if err != nil {
		t.Fatalf("ListScratchPad err: %v", err)
	}
	for _, section := range sections {
		if section.Label == scratchpad.LabelContext && section.Content != "project uses chi" {
			t.Fatalf("content not updated: %q", section.Content)
		}
	}
}

func TestSetScratchPadUnknownLabel(t *testing.T) {
	s := openTestStore(t)

	err := s.SetScratchPad(context.Background(), "No Such Slot", "content")
	if !errors.Is(err, store.ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}
