// Package token counts prompt and reply tokens using model-specific framing
// rules.
package token

import (
	"log"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	promptmodel "github.com/mkessel/prompter/backend/internal/model/prompt"
)

// fallbackEncoding is used when the model name is unknown to the tokenizer.
// Falling back is a logged degradation, never an error.
const fallbackEncoding = "cl100k_base"

// replyPriming is the fixed overhead added once for the anticipated reply
// header.
const replyPriming = 3

// framing holds the per-message overhead constants for a model family.
type framing struct {
	perMessage int
	perName    int
}

// framingTable maps model-name prefixes to framing constants. Longest prefix
// wins; new families are additive entries here, not new conditionals.
var framingTable = []struct {
	prefix string
	framing
}{
	// Legacy family with the larger per-message frame and the name-field
	// adjustment.
	{"gpt-3.5-turbo-0301", framing{perMessage: 4, perName: -1}},
}

var defaultFraming = framing{perMessage: 3, perName: 1}

func framingFor(model string) framing {
	best := defaultFraming
	bestLen := -1
	for _, entry := range framingTable {
		if strings.HasPrefix(model, entry.prefix) && len(entry.prefix) > bestLen {
			best = entry.framing
			bestLen = len(entry.prefix)
		}
	}
	return best
}

// Counter resolves tokenizers per model and applies the framing table.
// Encoders are cached per model name.
type Counter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{encoders: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encoderFor(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encoders[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Printf("[token] no tokenizer for model %q, falling back to %s: %v", model, fallbackEncoding, err)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			// The fallback encoding ships with the library; reaching this
			// means the tokenizer data itself is unavailable.
			log.Printf("[token] fallback encoding unavailable: %v", err)
			return nil
		}
	}

	c.encoders[model] = enc
	return enc
}

// CountMessages returns the token count of a full message list, framing
// overhead included. Zero messages yield only the reply priming, never a
// negative count.
func (c *Counter) CountMessages(model string, messages []promptmodel.Message) int {
	enc := c.encoderFor(model)
	frame := framingFor(model)

	total := 0
	for _, msg := range messages {
		total += frame.perMessage
		if enc != nil {
			total += len(enc.Encode(msg.Content, nil, nil))
		}
	}
	total += replyPriming
	return total
}

// CountDelta tokenizes only the new fragment; running totals are accumulated
// by the caller. Counting chunk by chunk can diverge from counting the joined
// text when a token spans a chunk boundary; the sums match when chunks split
// on whitespace.
func (c *Counter) CountDelta(model, delta string) int {
	if delta == "" {
		return 0
	}
	enc := c.encoderFor(model)
	if enc == nil {
		return 0
	}
	return len(enc.Encode(delta, nil, nil))
}
