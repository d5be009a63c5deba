package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/neurobridge-courseview/internal/observability"
	"github.com/yungbote/neurobridge-courseview/internal/platform/httpx"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

const chatCompletionsPath = "/v1/chat/completions"

// KeySource supplies the credential for each request.
type KeySource interface {
	APIKey() string
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	log        *logger.Logger
	cfg        Config
	keys       KeySource
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config, keys KeySource) *Client {
	cfg = cfg.withDefaults()
	return NewWithHTTPClient(log, cfg, keys, &http.Client{Timeout: cfg.Timeout})
}

func NewWithHTTPClient(log *logger.Logger, cfg Config, keys KeySource, httpClient *http.Client) *Client {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		log:        log.With("client", "OpenAIClient"),
		cfg:        cfg,
		keys:       keys,
		httpClient: httpClient,
	}
}

func (c *Client) Model() string { return c.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

const contentSystemPrompt = "You are an expert educational writer. Write clear, well structured course chapters " +
	"for self-paced learners. Use short paragraphs separated by blank lines and plain text only."

// GenerateContent produces the full text of a chapter from its title and outline hint.
func (c *Client) GenerateContent(ctx context.Context, title, hint string) (string, error) {
	user := fmt.Sprintf("Write the complete content for the course chapter titled %q.", strings.TrimSpace(title))
	if h := strings.TrimSpace(hint); h != "" {
		user += "\nUse this outline as the starting point and expand every point:\n" + h
	}
	user += "\nCover the concepts in depth with examples, and end with a short summary."
	return c.complete(ctx, "generate_content", contentSystemPrompt, user)
}

func (c *Client) complete(ctx context.Context, op, system, user string) (string, error) {
	ctx, span := otel.Tracer("courseview/openai").Start(ctx, "openai."+op)
	defer span.End()
	span.SetAttributes(attribute.String("openai.model", c.cfg.Model))

	text, err := c.chat(ctx, op, chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func (c *Client) chat(ctx context.Context, op string, req chatRequest) (string, error) {
	apiKey := ""
	if c.keys != nil {
		apiKey = strings.TrimSpace(c.keys.APIKey())
	}
	if apiKey == "" {
		return "", &GenerationError{Op: op, Err: ErrMissingAPIKey}
	}

	start := time.Now()
	resp, raw, err := c.doWithRetry(ctx, apiKey, req)
	metrics := observability.Current()
	if err != nil {
		if metrics != nil {
			metrics.ObserveLLMRequest(req.Model, chatCompletionsPath, statusFromRespErr(resp, err), time.Since(start), 0, 0)
		}
		ge := &GenerationError{Op: op, Err: err}
		var se *httpStatusError
		if errors.As(err, &se) {
			ge.StatusCode = se.StatusCode
		}
		return "", ge
	}

	var out chatResponse
	if uErr := json.Unmarshal(raw, &out); uErr != nil {
		if metrics != nil {
			metrics.ObserveLLMRequest(req.Model, chatCompletionsPath, "invalid_json", time.Since(start), 0, 0)
		}
		return "", &GenerationError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrInvalidJSON, uErr)}
	}
	if metrics != nil {
		metrics.ObserveLLMRequest(req.Model, chatCompletionsPath, strconv.Itoa(resp.StatusCode), time.Since(start), out.Usage.PromptTokens, out.Usage.CompletionTokens)
	}
	if len(out.Choices) == 0 {
		return "", &GenerationError{Op: op, StatusCode: resp.StatusCode, Err: ErrNoChoices}
	}
	text := out.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", &GenerationError{Op: op, StatusCode: resp.StatusCode, Err: ErrEmptyContent}
	}
	return text, nil
}

func (c *Client) doWithRetry(ctx context.Context, apiKey string, body chatRequest) (*http.Response, []byte, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		resp, raw, err := c.doOnce(ctx, apiKey, body)
		if err == nil {
			return resp, raw, nil
		}
		if attempt >= c.cfg.MaxRetries || !httpx.IsRetryableError(err) {
			return resp, raw, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, httpx.Backoff(attempt, c.cfg.RetryBase, c.cfg.RetryMax), c.cfg.RetryMax)
		sleepFor = httpx.JitterSleep(sleepFor)
		c.log.Warn("OpenAI request retrying",
			"path", chatCompletionsPath,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return resp, raw, err
		}
	}
}

func (c *Client) doOnce(ctx context.Context, apiKey string, body chatRequest) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+chatCompletionsPath, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpStatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return resp, raw, nil
}

func errorMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && strings.TrimSpace(eb.Error.Message) != "" {
		return strings.TrimSpace(eb.Error.Message)
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func statusFromRespErr(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) || httpx.IsRetryableError(err) {
		return "timeout"
	}
	return "error"
}
