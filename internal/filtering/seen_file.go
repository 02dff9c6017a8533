package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
)

// SeenPostings is the content of a seen file: postings shown in earlier runs.
type SeenPostings struct {
	Items []*SeenPosting
}

type SeenPosting struct {
	Identity  string
	Key       string
	URL       string
	CompanyID string
	Title     string
	SeenAt    time.Time
}

// ToSeen converts postings to seen records stamped with now.
func ToSeen(postings []discovery.Posting, now time.Time) *SeenPostings {
	seen := &SeenPostings{}
	for i := range postings {
		p := &postings[i]
		seen.Items = append(seen.Items, &SeenPosting{
			Identity:  p.Identity(),
			Key:       p.Key,
			URL:       p.URL,
			CompanyID: p.CompanyID,
			Title:     p.Title,
			SeenAt:    now.UTC(),
		})
	}
	return seen
}

// LoadSeenFile reads a seen file. A missing or empty file holds no postings.
func LoadSeenFile(path string) (*SeenPostings, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &SeenPostings{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &SeenPostings{}, nil
	}

	var seen SeenPostings
	if err := json.NewDecoder(file).Decode(&seen); err != nil {
		return nil, err
	}
	return &seen, nil
}

// Append adds records whose identity is not recorded yet.
func (s *SeenPostings) Append(other *SeenPostings) {
	known := s.identities()
	for _, item := range other.Items {
		if _, ok := known[item.Identity]; ok {
			continue
		}
		known[item.Identity] = struct{}{}
		s.Items = append(s.Items, item)
	}
}

func (s *SeenPostings) identities() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		ids[item.Identity] = struct{}{}
	}
	return ids
}

func (s *SeenPostings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RecordSeen appends postings to the seen file at path.
func RecordSeen(path string, postings []discovery.Posting, now time.Time) error {
	seen, err := LoadSeenFile(path)
	if err != nil {
		return fmt.Errorf("reading seen file: %w", err)
	}
	seen.Append(ToSeen(postings, now))
	return seen.ToFile(path)
}

type seenFileFilter struct {
	path string
}

// NewSeenFile creates a filter that removes postings recorded in the seen file.
// It does nothing until a path is configured.
func NewSeenFile() Filter {
	return &seenFileFilter{}
}

func (f *seenFileFilter) Name() string { return "seen_file" }

func (f *seenFileFilter) Disable(string) {}

func (f *seenFileFilter) IsEnabled() bool { return true }

func (f *seenFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.SeenFile)
	}
	return nil
}

func (f *seenFileFilter) Apply(_ context.Context, deps Deps, postings []discovery.Posting) ([]discovery.Posting, Step, error) {
	initial := len(postings)
	if f.path == "" {
		return postings, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	seen, err := LoadSeenFile(f.path)
	if err != nil {
		return postings, Step{}, fmt.Errorf("getting seen postings from file: %w", err)
	}

	ids := seen.identities()
	left, dropped := keep(postings, func(p *discovery.Posting) bool {
		_, ok := ids[p.Identity()]
		return ok
	})

	if len(dropped) > 0 {
		deps.Logger.Info("excluding postings based on seen file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", len(left)),
		)
	}

	return left, Step{Initial: initial, Dropped: len(dropped), Left: len(left)}, nil
}

func (f *seenFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
