package cmd

import (
	"errors"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/presenter"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/store"
	"github.com/spigell/jobscout/internal/tracker"
)

var errExit = errors.New("exit requested")

// friendly turns a workflow failure into a short message for the terminal.
// Unknown errors are shown as is.
func friendly(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, profile.ErrInvalidPreferences):
		return "your preferences are incomplete: " + err.Error()
	case errors.Is(err, cv.ErrInsufficientProfile):
		return "add skills or a summary to your profile before generating a CV"
	case errors.Is(err, cv.ErrServiceUnavailable):
		return "the CV service is unavailable right now, try again later"
	case errors.Is(err, presenter.ErrBusy):
		return "a discovery for this company is already running"
	case errors.Is(err, presenter.ErrUnknownPosting):
		return "no such posting, run discover first"
	case errors.Is(err, tracker.ErrInvalidTransition):
		return "that status change is not allowed: " + err.Error()
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return "not found"
	}
	return err.Error()
}
