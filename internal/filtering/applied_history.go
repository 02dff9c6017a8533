package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/utils"
)

const forceFlagSetMsg = "force flag is set"

type appliedHistoryFilter struct {
	ignore bool
}

// NewAppliedHistory creates a filter that removes postings the user already
// has an application record for. With ignore set nothing is removed.
func NewAppliedHistory(ignore bool) Filter {
	return &appliedHistoryFilter{ignore: ignore}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Disable(string) {}

func (f *appliedHistoryFilter) IsEnabled() bool { return true }

func (f *appliedHistoryFilter) Validate(*Config) error { return nil }

func (f *appliedHistoryFilter) Apply(ctx context.Context, deps Deps, postings []discovery.Posting) ([]discovery.Posting, Step, error) {
	initial := len(postings)
	if f.ignore {
		deps.Logger.Info("ignoring already applied postings", zap.String("reason", forceFlagSetMsg))
		return postings, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	if deps.History == nil || deps.Session == nil {
		deps.Logger.Debug("application history is not available; skipping applied_history filter")
		return postings, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	applied, err := deps.History.Applied(ctx, deps.Session.UserID)
	if err != nil {
		return postings, Step{}, fmt.Errorf("get my applications: %w", err)
	}

	seen := make(map[string]struct{}, len(applied)*2)
	for _, a := range applied {
		if a.PostingKey != "" {
			seen["key:"+a.PostingKey] = struct{}{}
		}
		if u := normalizeURL(a.URL); u != "" {
			seen["url:"+u] = struct{}{}
		}
		seen["title:"+a.CompanyID+"|"+utils.Fold(a.Title)] = struct{}{}
	}

	left, dropped := keep(postings, func(p *discovery.Posting) bool {
		for _, k := range []string{
			"key:" + p.Key,
			"url:" + normalizeURL(p.URL),
			"title:" + p.CompanyID + "|" + utils.Fold(p.Title),
		} {
			if _, ok := seen[k]; ok && k != "url:" {
				return true
			}
		}
		return false
	})

	if len(dropped) > 0 {
		deps.Logger.Info("excluding postings based on my applications",
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", len(left)),
		)
	}

	return left, Step{Initial: initial, Dropped: len(dropped), Left: len(left)}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(u)), "/")
}
