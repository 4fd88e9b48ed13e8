package token

import (
	"strings"
	"testing"

	promptmodel "github.com/mkessel/prompter/backend/internal/model/prompt"
)

func TestFramingForPrefixMatch(t *testing.T) {
	legacy := framingFor("gpt-3.5-turbo-0301")
	if legacy.perMessage != 4 || legacy.perName != -1 {
		t.Fatalf("unexpected legacy framing: %+v", legacy)
	}

	modern := framingFor("gpt-3.5-turbo-0613")
	if modern.perMessage != 3 || modern.perName != 1 {
		t.Fatalf("unexpected modern framing: %+v", modern)
	}

	unknown := framingFor("some-future-model")
	if unknown != defaultFraming {
		t.Fatalf("unknown model should use default framing, got %+v", unknown)
	}
}

func TestCountMessagesEmptyContentIsOverheadOnly(t *testing.T) {
	c := NewCounter()

	messages := []promptmodel.Message{
		{Role: promptmodel.RoleUser, Content: ""},
		{Role: promptmodel.RoleAssistant, Content: ""},
	}

	got := c.CountMessages("gpt-3.5-turbo", messages)
	if want := 2*3 + replyPriming; got != want {
		t.Fatalf("got %d want %d", got, want)
	}

	got = c.CountMessages("gpt-3.5-turbo-0301", messages)
	if want := 2*4 + replyPriming; got != want {
		t.Fatalf("legacy framing: got %d want %d", got, want)
	}
}

func TestCountMessagesNoMessages(t *testing.T) {
	c := NewCounter()
	if got := c.CountMessages("gpt-3.5-turbo", nil); got != replyPriming {
		t.Fatalf("got %d want %d", got, replyPriming)
	}
}

func TestCountMessagesExceedsContentSum(t *testing.T) {
	c := NewCounter()
	messages := []promptmodel.Message{
		{Role: promptmodel.RoleUser, Content: "hello streaming relay"},
		{Role: promptmodel.RoleAssistant, Content: "composing a prompt"},
	}

	contentSum := 0
	for _, msg := range messages {
		contentSum += c.CountDelta("gpt-3.5-turbo", msg.Content)
	}

	if got := c.CountMessages("gpt-3.5-turbo", messages); got <= contentSum {
		t.Fatalf("framing overhead missing: count %d, content sum %d", got, contentSum)
	}
}

// Delta sums match a whole-text count when chunks split on whitespace
// boundaries. Token merges across arbitrary boundaries are a documented
// approximation and not asserted here.
func TestCountDeltaWhitespaceChunkAdditivity(t *testing.T) {
	c := NewCounter()
	const model = "gpt-3.5-turbo"

	full := "the relay forwards each delta before accumulating it"
	if c.CountDelta(model, full) == 0 {
		t.Skip("tokenizer data unavailable")
	}

	sum := 0
	for _, chunk := range splitKeepingSpace(full) {
		sum += c.CountDelta(model, chunk)
	}

	if whole := c.CountDelta(model, full); sum != whole {
		t.Fatalf("chunked sum %d != whole count %d", sum, whole)
	}
}

func TestCountDeltaEmpty(t *testing.T) {
	c := NewCounter()
	if got := c.CountDelta("gpt-3.5-turbo", ""); got != 0 {
		t.Fatalf("empty delta counted %d tokens", got)
	}
}

// splitKeepingSpace cuts before each space so every chunk starts on a
// whitespace boundary, the framing tiktoken itself uses for common words.
func splitKeepingSpace(s string) []string {
	words := strings.Split(s, " ")
	chunks := make([]string, 0, len(words))
	for i, word := range words {
		if i == 0 {
			chunks = append(chunks, word)
			continue
		}
		chunks = append(chunks, " "+word)
	}
	return chunks
}
