package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type staticKey string

func (k staticKey) APIKey() string { return string(k) }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func completion(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": text}}},
		"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 40},
	})
	return string(b)
}

func newTestClient(t *testing.T, cfg Config, key string, rt roundTripperFunc) *Client {
	t.Helper()
	cfg.BaseURL = "http://upstream"
	return NewWithHTTPClient(testLogger(t), cfg, staticKey(key), &http.Client{Transport: rt})
}

func TestGenerateContent(t *testing.T) {
	c := newTestClient(t, Config{}, "sk-test", func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != chatCompletionsPath {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization=%q", got)
		}
		var in chatRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != DefaultModel {
			t.Fatalf("model=%q", in.Model)
		}
		if in.Temperature != DefaultTemperature {
			t.Fatalf("temperature=%v", in.Temperature)
		}
		if len(in.Messages) != 2 || !strings.Contains(in.Messages[1].Content, "Intro to Go") || !strings.Contains(in.Messages[1].Content, "basics") {
			t.Fatalf("unexpected messages: %+v", in.Messages)
		}
		return jsonResponse(http.StatusOK, completion("  Full chapter text.  ")), nil
	})

	text, err := c.GenerateContent(context.Background(), "Intro to Go", "basics")
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if text != "  Full chapter text.  " {
		t.Fatalf("text=%q", text)
	}
}

func TestGenerateContentFailures(t *testing.T) {
	cases := []struct {
		name       string
		resp       func() (*http.Response, error)
		wantErr    error
		wantStatus int
	}{
		{
			name:       "non_2xx",
			resp:       func() (*http.Response, error) { return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"bad key"}}`), nil },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "not_json",
			resp:    func() (*http.Response, error) { return jsonResponse(http.StatusOK, "<html>oops</html>"), nil },
			wantErr: ErrInvalidJSON,
		},
		{
			name:    "no_choices",
			resp:    func() (*http.Response, error) { return jsonResponse(http.StatusOK, `{"choices":[]}`), nil },
			wantErr: ErrNoChoices,
		},
		{
			name:    "empty_text",
			resp:    func() (*http.Response, error) { return jsonResponse(http.StatusOK, completion("   ")), nil },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "transport",
			resp:    func() (*http.Response, error) { return nil, context.DeadlineExceeded },
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, Config{}, "sk-test", func(req *http.Request) (*http.Response, error) { return tc.resp() })
			_, err := c.GenerateContent(context.Background(), "T", "")
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("expected *GenerationError, got %T %v", err, err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v in chain, got %v", tc.wantErr, err)
			}
			if tc.wantStatus != 0 && ge.StatusCode != tc.wantStatus {
				t.Fatalf("status=%d want %d", ge.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestGenerateContentMissingKey(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{}, "", func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusOK, completion("x")), nil
	})
	_, err := c.GenerateContent(context.Background(), "T", "")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no upstream call without a key")
	}
}

func TestRetriesOnlyWhenConfigured(t *testing.T) {
	var calls int32
	rt := func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return jsonResponse(http.StatusServiceUnavailable, `{"error":{"message":"busy"}}`), nil
		}
		return jsonResponse(http.StatusOK, completion("recovered")), nil
	}

	noRetry := newTestClient(t, Config{}, "sk-test", rt)
	if _, err := noRetry.GenerateContent(context.Background(), "T", ""); err == nil {
		t.Fatalf("expected failure without retries")
	}

	atomic.StoreInt32(&calls, 0)
	withRetry := newTestClient(t, Config{MaxRetries: 1, RetryBase: time.Millisecond, RetryMax: 5 * time.Millisecond}, "sk-test", rt)
	text, err := withRetry.GenerateContent(context.Background(), "T", "")
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if text != "recovered" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("text=%q calls=%d", text, calls)
	}
}
