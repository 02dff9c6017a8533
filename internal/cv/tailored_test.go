package cv

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

type stubTailorer struct {
	cv  *ai.TailoredCV
	err error
}

func (s *stubTailorer) Tailor(context.Context, *profile.Profile, *discovery.Posting, string) (*ai.TailoredCV, error) {
	return s.cv, s.err
}

type stubObjects struct {
	objects map[string][]byte
	putErr  error
}

func (s *stubObjects) Put(_ context.Context, name string, data []byte, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[name] = data
	return nil
}

func (s *stubObjects) PresignedURL(_ context.Context, name string, expiry time.Duration) (string, error) {
	return "https://minio.example/" + name + "?expires=" + expiry.String(), nil
}

func TestTailoredServiceStoresAndPresigns(t *testing.T) {
	objects := &stubObjects{}
	s := NewTailoredService(&stubTailorer{cv: &ai.TailoredCV{Markdown: "# CV", Projects: 2, Skills: 3, Relevance: 0.9}}, objects, time.Hour, nil)

	doc, err := s.Render(context.Background(), Request{UserID: "u1", TemplateID: "modern", Posting: posting})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(doc.URL, "https://minio.example/cv/u1/modern/c1-frontend-developer-0-") {
		t.Fatalf("unexpected url %q", doc.URL)
	}
	if len(objects.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(objects.objects))
	}
	for _, data := range objects.objects {
		if string(data) != "# CV" {
			t.Fatalf("unexpected object content %q", data)
		}
	}
	if doc.Optimization.Relevance != 0.9 {
		t.Fatalf("unexpected optimization %+v", doc.Optimization)
	}
}

func TestTailoredServiceFailuresAreUnavailable(t *testing.T) {
	s := NewTailoredService(&stubTailorer{err: errors.New("quota")}, &stubObjects{}, 0, nil)
	if _, err := s.Render(context.Background(), Request{Posting: posting}); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}

	s = NewTailoredService(&stubTailorer{cv: &ai.TailoredCV{Markdown: "# CV"}}, &stubObjects{putErr: errors.New("bucket missing")}, 0, nil)
	if _, err := s.Render(context.Background(), Request{Posting: posting}); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}
