package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	promptmodel "github.com/mkessel/prompter/backend/internal/model/prompt"
)

func newTestClient(upstream *httptest.Server) *Client {
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: upstream.URL,
		Model:   "gpt-3.5-turbo",
	})
}

func chunkLine(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

func userMessages() []promptmodel.Message {
	return []promptmodel.Message{{Role: promptmodel.RoleUser, Content: "hi"}}
}

func TestStreamForwardsDeltasInOrder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer header, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunkLine("Hel"))
		fmt.Fprint(w, chunkLine("lo"))
		fmt.Fprint(w, `data: {"choices":[{"delta":{}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	var got []string
	full, err := newTestClient(upstream).Stream(context.Background(), userMessages(), func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}

	if full != "Hello" {
		t.Fatalf("accumulated %q want %q", full, "Hello")
	}
	if len(got) != 2 || got[0] != "Hel" || got[1] != "lo" {
		t.Fatalf("unexpected deltas: %v", got)
	}
}

func TestStreamSentinelOnly(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	calls := 0
	full, err := newTestClient(upstream).Stream(context.Background(), userMessages(), func(string) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	if full != "" {
		t.Fatalf("expected empty accumulation, got %q", full)
	}
	if calls != 0 {
		t.Fatalf("no deltas expected, sink called %d times", calls)
	}
}

func TestStreamMalformedEvent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chunkLine("partial"))
		fmt.Fprint(w, "data: {not json\n\n")
	}))
	defer upstream.Close()

	full, err := newTestClient(upstream).Stream(context.Background(), userMessages(), func(string) error {
		return nil
	})
	if !errors.Is(err, ErrStreamDecode) {
		t.Fatalf("expected ErrStreamDecode, got %v", err)
	}
	if full != "partial" {
		t.Fatalf("partial accumulation lost: %q", full)
	}
}

func TestStreamDropWithoutSentinel(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chunkLine("half"))
		// Connection closes without [DONE].
	}))
	defer upstream.Close()

	full, err := newTestClient(upstream).Stream(context.Background(), userMessages(), func(string) error {
		return nil
	})
	if !errors.Is(err, ErrStreamDecode) {
		t.Fatalf("drop without sentinel must not be success, got %v", err)
	}
	if full != "half" {
		t.Fatalf("accumulated %q want %q", full, "half")
	}
}

func TestStreamUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer upstream.Close()

	calls := 0
	_, err := newTestClient(upstream).Stream(context.Background(), userMessages(), func(string) error {
		calls++
		return nil
	})

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status: got %d want %d", upstreamErr.StatusCode, http.StatusTooManyRequests)
	}
	if upstreamErr.Message != "rate limited" {
		t.Fatalf("message: got %q", upstreamErr.Message)
	}
	if calls != 0 {
		t.Fatalf("no deltas may be forwarded on upstream error, sink called %d times", calls)
	}
}

func TestStreamSinkFailureStopsRelay(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chunkLine("one"))
		fmt.Fprint(w, chunkLine("two"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	sinkErr := errors.New("caller gone")
	calls := 0
	full, err := newTestClient(upstream).Stream(context.Background(), userMessages(), func(string) error {
		calls++
		if calls == 2 {
			return sinkErr
		}
		return nil
	})

	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	// The failed delta never reached the caller, so it is not authoritative.
	if full != "one" {
		t.Fatalf("accumulated %q want %q", full, "one")
	}
}
