package cv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spigell/jobscout/internal/profile"
)

func TestRemoteServiceRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cv" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemplateID != "modern" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(renderResponse{
			DocumentURL:  "https://docs.example/cv/1.pdf",
			Optimization: Optimization{Projects: 1, Skills: 3, Relevance: 0.7},
		})
	}))
	defer srv.Close()

	s := NewRemoteService(srv.URL+"/", "secret", DefaultBreakerConfig(), zaptest.NewLogger(t))
	doc, err := s.Render(context.Background(), Request{
		UserID: "u1", TemplateID: "modern", Profile: &profile.Profile{Summary: "x"}, Posting: posting,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if doc.URL != "https://docs.example/cv/1.pdf" || doc.Optimization.Skills != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestRemoteServiceClientErrorIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown template", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewRemoteService(srv.URL, "", DefaultBreakerConfig(), nil)
	_, err := s.Render(context.Background(), Request{TemplateID: "nope", Posting: posting})
	if err == nil || errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestRemoteServiceBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	s := NewRemoteService(srv.URL, "", cfg, nil)

	for i := 0; i < 4; i++ {
		_, err := s.Render(context.Background(), Request{TemplateID: "modern", Posting: posting})
		if !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("call %d: expected ErrServiceUnavailable, got %v", i, err)
		}
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("expected the breaker to stop calls after 2 failures, server saw %d", got)
	}
}

func TestRemoteServiceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewRemoteService(url, "", DefaultBreakerConfig(), nil)
	_, err := s.Render(context.Background(), Request{TemplateID: "modern", Posting: posting})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}
