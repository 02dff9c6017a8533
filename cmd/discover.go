package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/filtering"
	"github.com/spigell/jobscout/internal/presenter"
	"github.com/spigell/jobscout/internal/profile"
)

const (
	PromptReport           = "Report by companies"
	PromptBestMatches      = "Toggle best matches only"
	PromptGenerateCV       = "Generate a CV for a posting"
	PromptPostingsToFile   = "Dump postings to file"
	PromptAppendToSeenFile = "Append all postings to seen file"
	PromptExit             = "Exit"
	PromptBack             = "back"
	PromptYes              = "Yes"
	PromptNo               = "No"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [company-id...]",
	Short: "Discover and rank postings at the given companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return discover(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().BoolP("all", "a", false, "discover every stored company")
	discoverCmd.Flags().BoolP("yes", "y", false, "skip the preference form and the action menu")
	discoverCmd.Flags().BoolP("best", "b", false, "show only postings above the relevance floor")
	discoverCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude postings already applied to")
	discoverCmd.Flags().StringP("seen-file", "e", "", "file with postings to exclude across runs. Default is unset.")

	viper.BindPFlag("seen-file", discoverCmd.Flags().Lookup("seen-file"))
}

func discover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ignoreApplied, _ := cmd.Flags().GetBool("do-not-exclude-applied")
	all, _ := cmd.Flags().GetBool("all")
	yes, _ := cmd.Flags().GetBool("yes")
	best, _ := cmd.Flags().GetBool("best")

	a, err := newApplication(ctx, appOptions{needsDiscovery: true, ignoreApplied: ignoreApplied})
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting the jobscout", zap.String("version", version), zap.String("user_id", a.userID()))

	companies, err := selectCompanies(ctx, a, args, all)
	if err != nil {
		return err
	}

	session, err := openSession(ctx, a, yes)
	if err != nil {
		a.logger.Error("opening a session", zap.String("reason", friendly(err)))
		return err
	}
	a.logger.Info("preferences", zap.String("summary", session.Preferences.Summary()))

	for _, c := range companies {
		if session.Preferences.Excludes(c.ID) {
			a.logger.Info("skipping excluded company", zap.String("company_id", c.ID))
			continue
		}
		snap, err := a.presenter.Discover(ctx, session, c)
		if err != nil {
			a.logger.Warn("discovery not started", zap.String("company_id", c.ID), zap.String("reason", friendly(err)))
			continue
		}
		a.logger.Info("discovery done",
			zap.String("company_id", c.ID),
			zap.String("state", string(snap.State)),
			zap.Int("postings", len(snap.Postings)),
			zap.String("reason", snap.Reason),
		)
	}

	filter := presenter.Filter{BestMatches: best}
	if err := presenter.WriteReport(os.Stdout, a.presenter.Report(filter)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if yes {
		return nil
	}

	for {
		items := []string{PromptReport, PromptBestMatches, PromptGenerateCV, PromptPostingsToFile}
		if a.cfg.SeenFile != "" {
			items = append(items, PromptAppendToSeenFile)
		}
		menu := promptui.Select{
			Label: "What next?",
			Items: append(items, PromptExit),
		}

		_, action, err := menu.Run()
		if err != nil {
			return err
		}

		if err := handleAction(ctx, a, session, action, &filter); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			a.logger.Error("action failed", zap.String("action", action), zap.String("reason", friendly(err)))
		}
	}
}

func selectCompanies(ctx context.Context, a *application, ids []string, all bool) ([]profile.Company, error) {
	if all || len(ids) == 0 {
		companies, err := a.store.ListCompanies(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing companies: %w", err)
		}
		if len(companies) == 0 {
			return nil, errors.New("no companies stored, add one with `jobscout companies add`")
		}
		return companies, nil
	}

	out := make([]profile.Company, 0, len(ids))
	for _, id := range ids {
		c, err := a.store.GetCompany(ctx, strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", id, err)
		}
		out = append(out, *c)
	}
	return out, nil
}

func handleAction(ctx context.Context, a *application, session *profile.Session, action string, filter *presenter.Filter) error {
	switch action {
	case PromptExit:
		a.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReport:
		return presenter.WriteReport(os.Stdout, a.presenter.Report(*filter))
	case PromptBestMatches:
		filter.BestMatches = !filter.BestMatches
		a.logger.Info("best matches filter", zap.Bool("enabled", filter.BestMatches), zap.Float64("floor", a.presenter.RelevanceFloor()))
		return presenter.WriteReport(os.Stdout, a.presenter.Report(*filter))
	case PromptPostingsToFile:
		filename, err := a.presenter.DumpToTmpFile(*filter)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		a.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToSeenFile:
		var postings []discovery.Posting
		for _, snap := range a.presenter.Views(*filter) {
			for _, pv := range snap.Postings {
				postings = append(postings, pv.Posting)
			}
		}
		if err := filtering.RecordSeen(a.cfg.SeenFile, postings, time.Now()); err != nil {
			return err
		}
		a.logger.Info("appended to seen file", zap.String("filename", a.cfg.SeenFile), zap.Int("count", len(postings)))
		return nil
	case PromptGenerateCV:
		return pickAndGenerate(ctx, a, session, *filter)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// pickAndGenerate lets the user choose a posting, generates a CV and
// optionally records the application.
func pickAndGenerate(ctx context.Context, a *application, session *profile.Session, filter presenter.Filter) error {
	type choice struct{ company, key string }

	var (
		items   []string
		choices []choice
	)
	for _, snap := range a.presenter.Views(filter) {
		for _, pv := range snap.Postings {
			items = append(items, fmt.Sprintf("%3d%% %s / %s / %s", pv.Percent(), pv.Title, snap.Company.Name, pv.State))
			choices = append(choices, choice{company: snap.Company.ID, key: pv.Key})
		}
	}
	if len(items) == 0 {
		a.logger.Info("no postings to choose from")
		return nil
	}

	picker := promptui.Select{
		Label: "Choose a posting and press ENTER",
		Items: append(items, PromptBack),
		Size:  15,
	}
	idx, selected, err := picker.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}
	picked := choices[idx]

	if err := a.presenter.MarkViewed(picked.company, picked.key); err != nil {
		return err
	}

	gen, err := a.cvGenerator(ctx)
	if err != nil {
		return err
	}

	g, err := a.presenter.GenerateCV(ctx, gen, session, picked.company, picked.key, a.template(""))
	if err != nil {
		return err
	}
	a.logger.Info("CV ready", zap.String("generation_id", g.ID), zap.String("document_url", g.DocumentURL))

	confirm := promptui.Select{Label: "Record an application for this posting?", Items: []string{PromptYes, PromptNo}}
	if _, answer, err := confirm.Run(); err != nil || answer != PromptYes {
		return nil
	}

	view, err := a.presenter.Posting(picked.company, picked.key)
	if err != nil {
		return err
	}
	app, err := a.tracker.Create(ctx, session, g, &view.Posting)
	if err != nil {
		return err
	}
	a.logger.Info("application recorded", zap.String("application_id", app.ID), zap.String("status", string(app.Status)))
	return nil
}
