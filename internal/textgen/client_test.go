package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, apiKey string, handler fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	opts = append([]Option{
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithBackoff(time.Millisecond),
		WithTimeout(2 * time.Second),
	}, opts...)
	return NewClient("http://textgen.test", apiKey, "test-model", opts...)
}

func writeText(ctx *fasthttp.RequestCtx, text string) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(messagesResponse{
		ID:      "msg_1",
		Content: []contentBlock{{Type: "text", Text: text}},
	})
	ctx.SetBody(body)
}

func TestGenerateSendsMessagesRequest(t *testing.T) {
	var got messagesRequest
	var headers map[string]string
	c := newTestClient(t, "sk-test", func(ctx *fasthttp.RequestCtx) {
		headers = map[string]string{
			"path":              string(ctx.Path()),
			"x-api-key":         string(ctx.Request.Header.Peek("x-api-key")),
			"anthropic-version": string(ctx.Request.Header.Peek("anthropic-version")),
		}
		if err := json.Unmarshal(ctx.PostBody(), &got); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		writeText(ctx, "  A knight leaps where pawns cannot.  ")
	})

	text, err := c.Generate(context.Background(), Request{
		System:      "be brief",
		Prompt:      "riddle please",
		MaxTokens:   300,
		Temperature: 0.9,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "A knight leaps where pawns cannot." {
		t.Fatalf("unexpected text %q", text)
	}

	wantHeaders := map[string]string{
		"path":              "/v1/messages",
		"x-api-key":         "sk-test",
		"anthropic-version": DefaultAPIVersion,
	}
	if diff := cmp.Diff(wantHeaders, headers); diff != "" {
		t.Fatalf("headers (-want +got):\n%s", diff)
	}
	want := messagesRequest{
		Model:       "test-model",
		MaxTokens:   300,
		Temperature: 0.9,
		System:      "be brief",
		Messages:    []messageParam{{Role: "user", Content: "riddle please"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request body (-want +got):\n%s", diff)
	}
}

func TestGenerateRetriesOverloaded(t *testing.T) {
	var calls int32
	c := newTestClient(t, "sk-test", func(ctx *fasthttp.RequestCtx) {
		if atomic.AddInt32(&calls, 1) < 3 {
			ctx.SetStatusCode(529)
			return
		}
		writeText(ctx, "third time lucky")
	})

	text, err := c.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "third time lucky" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("got %q after %d calls", text, calls)
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, "sk-test", func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString(`{"type":"error"}`)
	})

	_, err := c.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestGenerateRejectsEmptyAndMalformed(t *testing.T) {
	c := newTestClient(t, "sk-test", func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"content":[{"type":"tool_use"}]}`)
	})
	if _, err := c.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}

	c = newTestClient(t, "sk-test", func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`not json`)
	})
	if _, err := c.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	c := NewClient("", "  ", "m")
	if _, err := c.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestRetryAndAPIVersionOptions(t *testing.T) {
	var calls int32
	var version string
	c := newTestClient(t, "sk-test", func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		version = string(ctx.Request.Header.Peek("anthropic-version"))
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	}, WithRetry(1), WithAPIVersion("2024-01-01"))

	_, err := c.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != fasthttp.StatusServiceUnavailable {
		t.Fatalf("expected 503 APIError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("WithRetry(1) should make one attempt, got %d", calls)
	}
	if version != "2024-01-01" {
		t.Fatalf("anthropic-version = %q", version)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"abécd", 3, "ab"},
		{"你好", 4, "你"},
		{"你", 2, ""},
	}
	for _, tc := range tests {
		got := truncate(tc.in, tc.n)
		if got != tc.want || !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
