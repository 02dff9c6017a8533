package cv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker in front of the remote service.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max-requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min-requests"`
	FailureThreshold float64       `mapstructure:"failure-threshold"`
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
}

// RemoteService renders documents through an external HTTP API.
type RemoteService struct {
	baseURL    string
	token      string
	HTTPClient *http.Client
	cb         *gobreaker.CircuitBreaker[*Document]
	logger     *zap.Logger
}

func NewRemoteService(baseURL, token string, cfg BreakerConfig, logger *zap.Logger) *RemoteService {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        "cv-remote",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		// Only an unavailable service counts against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrServiceUnavailable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &RemoteService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		cb:         gobreaker.NewCircuitBreaker[*Document](settings),
		logger:     logger,
	}
}

type renderRequest struct {
	UserID     string `json:"user_id"`
	TemplateID string `json:"template_id"`
	Profile    any    `json:"profile"`
	Posting    any    `json:"posting"`
}

type renderResponse struct {
	DocumentURL  string       `json:"document_url"`
	Optimization Optimization `json:"optimization"`
}

func (s *RemoteService) Render(ctx context.Context, req Request) (*Document, error) {
	doc, err := s.cb.Execute(func() (*Document, error) {
		return s.render(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return doc, err
}

func (s *RemoteService) render(ctx context.Context, req Request) (*Document, error) {
	body, err := json.Marshal(renderRequest{
		UserID:     req.UserID,
		TemplateID: req.TemplateID,
		Profile:    req.Profile,
		Posting:    req.Posting,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/cv", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	s.logger.Debug("make request", zap.String("url", httpReq.URL.String()), zap.String("template", req.TemplateID))
	resp, err := s.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: bad status: %s", ErrServiceUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if strings.TrimSpace(out.DocumentURL) == "" {
		return nil, errors.New("document service returned no document url")
	}

	return &Document{URL: out.DocumentURL, Optimization: out.Optimization}, nil
}
