package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/presenter"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Generate a CV tailored to one posting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		companyID, _ := flags.GetString("company")
		key, _ := flags.GetString("posting")
		template, _ := flags.GetString("template")
		record, _ := flags.GetBool("apply")

		companyID = strings.TrimSpace(companyID)
		key = strings.TrimSpace(key)
		if companyID == "" || key == "" {
			return errors.New("--company and --posting are required")
		}

		a, err := newApplication(ctx, appOptions{needsDiscovery: true, ignoreApplied: true})
		if err != nil {
			return err
		}
		defer a.Close()

		company, err := a.store.GetCompany(ctx, companyID)
		if err != nil {
			return fmt.Errorf("company %s: %w", companyID, err)
		}

		session, err := a.session(ctx, nil)
		if err != nil {
			a.logger.Error("opening a session", zap.String("reason", friendly(err)))
			return err
		}

		// Posting keys are only meaningful within a run, so rediscover first.
		snap, err := a.presenter.Discover(ctx, session, *company)
		if err != nil {
			return err
		}
		if snap.State != presenter.StateSuccess {
			return fmt.Errorf("discovery for %s did not succeed: %s", company.Name, snap.Reason)
		}

		gen, err := a.cvGenerator(ctx)
		if err != nil {
			return err
		}

		g, err := a.presenter.GenerateCV(ctx, gen, session, company.ID, key, a.template(template))
		if err != nil {
			a.logger.Error("generating CV", zap.String("reason", friendly(err)), zap.Error(err))
			return err
		}
		fmt.Println(g.DocumentURL)

		if !record {
			return nil
		}

		view, err := a.presenter.Posting(company.ID, key)
		if err != nil {
			return err
		}
		app, err := a.tracker.Create(ctx, session, g, &view.Posting)
		if err != nil {
			return err
		}
		a.logger.Info("application recorded", zap.String("application_id", app.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cvCmd)

	cvCmd.Flags().String("company", "", "company id")
	cvCmd.Flags().String("posting", "", "posting key as shown by discover")
	cvCmd.Flags().String("template", "", "CV template id (default from cv.template)")
	cvCmd.Flags().Bool("apply", false, "record an application for the posting")
}
