package cv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/ai"
)

// ObjectStore keeps rendered documents and hands out links to them.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, name string, expiry time.Duration) (string, error)
}

// TailoredService asks an AI tailorer for a markdown CV and stores it.
type TailoredService struct {
	tailorer ai.Tailorer
	objects  ObjectStore
	expiry   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewTailoredService(tailorer ai.Tailorer, objects ObjectStore, expiry time.Duration, logger *zap.Logger) *TailoredService {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TailoredService{tailorer: tailorer, objects: objects, expiry: expiry, logger: logger, now: time.Now}
}

func (s *TailoredService) Render(ctx context.Context, req Request) (*Document, error) {
	tailored, err := s.tailorer.Tailor(ctx, req.Profile, req.Posting, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	name := fmt.Sprintf("cv/%s/%s/%s-%d.md", req.UserID, req.TemplateID, req.Posting.Key, s.now().UnixNano())
	if err := s.objects.Put(ctx, name, []byte(tailored.Markdown), "text/markdown; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("%w: storing document: %v", ErrServiceUnavailable, err)
	}

	url, err := s.objects.PresignedURL(ctx, name, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: presigning document: %v", ErrServiceUnavailable, err)
	}

	s.logger.Debug("tailored cv stored", zap.String("object", name))
	return &Document{
		URL: strings.TrimSpace(url),
		Optimization: Optimization{
			Projects:  tailored.Projects,
			Skills:    tailored.Skills,
			Relevance: tailored.Relevance,
		},
	}, nil
}
