package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-pro"
	defaultMaxRetries = 3
	baseRetryDelay    = 2 * time.Second
	// Quota errors asking to wait longer than this are returned right away.
	maxRetryDelay = 30 * time.Second
)

// sleep is replaced in tests.
var sleep = time.Sleep

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

// genaiChats adapts the SDK chats service to chatCreator.
type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateContent sends one message in a fresh chat and returns the textual reply.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	var output string
	err := g.withRetries(ctx, func() error {
		chat, err := g.chats.Create(ctx, g.model, g.config(system, false), nil)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		output, err = send(ctx, chat, message)
		return err
	})
	return output, err
}

// Conversation is a multi turn chat.
type Conversation struct {
	g    *Generator
	chat chatSession
}

// StartConversation opens a chat. With grounded set the model may use Google Search.
func (g *Generator) StartConversation(ctx context.Context, system string, grounded bool) (*Conversation, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	var chat chatSession
	err := g.withRetries(ctx, func() error {
		var err error
		chat, err = g.chats.Create(ctx, g.model, g.config(system, grounded), nil)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Conversation{g: g, chat: chat}, nil
}

// Send sends the next turn, retrying temporary failures on the same chat.
func (c *Conversation) Send(ctx context.Context, message string) (string, error) {
	var output string
	err := c.g.withRetries(ctx, func() error {
		var err error
		output, err = send(ctx, c.chat, message)
		return err
	})
	return output, err
}

func (g *Generator) ready() error {
	if g == nil || g.chats == nil {
		return errors.New("gemini generator is not initialized")
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return nil
}

func (g *Generator) config(system string, grounded bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system = strings.TrimSpace(system); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if grounded {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

func (g *Generator) withRetries(ctx context.Context, fn func() error) error {
	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		delay, retry := retryDelay(lastErr, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.logger.Warn("retrying gemini request",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		sleep(delay)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return fmt.Errorf("generate content: %w", lastErr)
}

var retryAfter = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

// retryDelay reports whether err is temporary and how long to wait before the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return 0, false
		}
		apiErr = *ptr
	}

	backoff := baseRetryDelay * time.Duration(1<<(attempt-1))

	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return backoff, true
	case http.StatusTooManyRequests:
		if d, ok := quotaDelay(apiErr); ok {
			return d, d <= maxRetryDelay
		}
		return backoff, true
	}
	return 0, false
}

func quotaDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		if raw, ok := detail["retryDelay"].(string); ok {
			if d, err := time.ParseDuration(raw); err == nil {
				return d, true
			}
		}
	}
	if m := retryAfter.FindStringSubmatch(apiErr.Message); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return 0, false
}

func send(ctx context.Context, chat chatSession, message string) (string, error) {
	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}
