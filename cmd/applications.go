package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/tracker"
)

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Track your applications",
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var status tracker.Status
		if raw, _ := cmd.Flags().GetString("status"); raw != "" {
			s, err := tracker.ParseStatus(raw)
			if err != nil {
				return err
			}
			status = s
		}

		a, err := newApplication(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		apps, err := a.tracker.List(ctx, a.userID(), status)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tCOMPANY\tTITLE\tUPDATED")
		for _, app := range apps {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", app.ID, app.Status, app.CompanyID, app.Title, app.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var applicationsUpdateCmd = &cobra.Command{
	Use:   "update <id> <status>",
	Short: "Move an application to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		to, err := tracker.ParseStatus(args[1])
		if err != nil {
			return err
		}
		note, _ := cmd.Flags().GetString("note")

		a, err := newApplication(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		app, err := a.tracker.Transition(ctx, a.userID(), args[0], to, note)
		if err != nil {
			a.logger.Error("updating application", zap.String("reason", friendly(err)))
			return err
		}
		a.logger.Info("application updated", zap.String("application_id", app.ID), zap.String("status", string(app.Status)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applicationsCmd)
	applicationsCmd.AddCommand(applicationsListCmd, applicationsUpdateCmd)

	applicationsListCmd.Flags().String("status", "", "only list applications with this status")
	applicationsUpdateCmd.Flags().String("note", "", "note stored with the transition")
}
