package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/utils"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage the companies to discover",
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApplication(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		companies, err := a.store.ListCompanies(ctx)
		if err != nil {
			return fmt.Errorf("listing companies: %w", err)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tINDUSTRY\tHEADQUARTERS\tWEBSITE")
		for _, c := range companies {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Industry, c.Headquarters, c.Website)
		}
		return tw.Flush()
	},
}

var companiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a company",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		str := func(name string) string {
			v, _ := flags.GetString(name)
			return strings.TrimSpace(v)
		}

		c := profile.Company{
			ID:           str("id"),
			Name:         str("name"),
			Industry:     str("industry"),
			Website:      str("website"),
			Headquarters: str("headquarters"),
			Size:         str("size"),
			Description:  str("description"),
		}
		c.Founded, _ = flags.GetInt("founded")
		if c.ID == "" {
			c.ID = utils.Slug(c.Name)
		}

		a, err := newApplication(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.SaveCompany(ctx, c); err != nil {
			return fmt.Errorf("saving company: %w", err)
		}
		a.logger.Info("company saved", zap.String("company_id", c.ID), zap.String("name", c.Name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
	companiesCmd.AddCommand(companiesListCmd, companiesAddCmd)

	f := companiesAddCmd.Flags()
	f.String("id", "", "company id (default is derived from the name)")
	f.String("name", "", "company name")
	f.String("industry", "", "industry")
	f.String("website", "", "website")
	f.String("headquarters", "", "headquarters location")
	f.String("size", "", "company size")
	f.Int("founded", 0, "year founded")
	f.String("description", "", "short description")
	_ = companiesAddCmd.MarkFlagRequired("name")
}
