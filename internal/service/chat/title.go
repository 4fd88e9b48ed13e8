package chat

import (
	"regexp"
	"strings"
)

// untitledFallback is used when no keywords survive extraction.
const untitledFallback = "Untitled Chat"

// titleKeywordLimit caps how many surviving tokens form the title.
const titleKeywordLimit = 5

var wordPattern = regexp.MustCompile(`\w+`)

// titleStopwords are dropped before a title is assembled from the first user
// message.
var titleStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "be": {}, "do": {}, "does": {},
	"can": {}, "could": {}, "would": {}, "should": {},
	"i": {}, "me": {}, "my": {}, "we": {}, "you": {}, "your": {}, "it": {},
	"this": {}, "that": {}, "these": {}, "those": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "for": {}, "with": {}, "at": {},
	"please": {}, "add": {}, "make": {}, "want": {}, "need": {}, "help": {},
	"how": {}, "what": {}, "why": {},
}

// deriveTitle extracts up to titleKeywordLimit non-stopword tokens from the
// first user message, in their original order.
func deriveTitle(message string) string {
	tokens := wordPattern.FindAllString(strings.ToLower(message), -1)

	keywords := make([]string, 0, titleKeywordLimit)
	for _, token := range tokens {
		if _, skip := titleStopwords[token]; skip {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) == titleKeywordLimit {
			break
		}
	}

	if len(keywords) == 0 {
		return untitledFallback
	}
	return strings.Join(keywords, " ")
}
