package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/profile"
)

var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Edit and save your job preferences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApplication(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		stored, err := a.store.GetPreferences(ctx, a.userID())
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}

		answers, err := askAnswers(stored)
		if err != nil {
			return err
		}

		prefs, err := profile.Merge(stored, answers)
		if err != nil {
			a.logger.Error(friendly(err))
			return err
		}

		if err := profile.Save(ctx, a.store, a.userID(), prefs); err != nil {
			a.logger.Error("saving preferences", zap.String("reason", friendly(err)), zap.Error(err))
			return err
		}

		a.logger.Info("preferences saved", zap.String("user_id", a.userID()), zap.String("summary", prefs.Summary()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preferencesCmd)
}

// askAnswers runs the preference form. Every prompt defaults to the stored value.
func askAnswers(stored profile.Preferences) (*profile.Answers, error) {
	jobTypes := make([]string, 0, len(stored.JobTypes))
	for _, t := range stored.JobTypes {
		jobTypes = append(jobTypes, string(t))
	}

	answers := &profile.Answers{}
	questions := []struct {
		label string
		def   string
		dst   *string
	}{
		{"Skills (comma separated)", strings.Join(stored.Skills, ", "), &answers.Skills},
		{"Locations, most preferred first", strings.Join(stored.Locations, ", "), &answers.Locations},
		{"Minimum salary", amount(stored.Salary.Min), &answers.SalaryMin},
		{"Maximum salary", amount(stored.Salary.Max), &answers.SalaryMax},
		{"Salary currency", stored.Salary.Currency, &answers.Currency},
		{"Job types (full_time, part_time, contract, internship, remote)", strings.Join(jobTypes, ", "), &answers.JobTypes},
		{"Industries", strings.Join(stored.Industries, ", "), &answers.Industries},
	}

	for _, q := range questions {
		p := promptui.Prompt{
			Label:     q.label,
			Default:   q.def,
			AllowEdit: true,
		}
		value, err := p.Run()
		if err != nil {
			return nil, fmt.Errorf("preference form: %w", err)
		}
		*q.dst = strings.TrimSpace(value)
	}

	return answers, nil
}

func amount(v float64) string {
	if v <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0f", v)
}

// openSession collects the session for the configured user, asking the
// form first unless skip is set.
func openSession(ctx context.Context, a *application, skip bool) (*profile.Session, error) {
	if skip {
		return a.session(ctx, nil)
	}

	stored, err := a.store.GetPreferences(ctx, a.userID())
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	answers, err := askAnswers(stored)
	if err != nil {
		return nil, err
	}
	return a.session(ctx, answers)
}
