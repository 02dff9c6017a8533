package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/presenter"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rediscover every stored company on a schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		best, _ := cmd.Flags().GetBool("best")

		a, err := newApplication(ctx, appOptions{needsDiscovery: true})
		if err != nil {
			return err
		}
		defer a.Close()

		schedule := "@every 6h"
		addr := ""
		if a.cfg.Watch != nil {
			if a.cfg.Watch.Schedule != "" {
				schedule = a.cfg.Watch.Schedule
			}
			addr = a.cfg.Watch.MetricsAddr
		}

		onCycle := func(p *presenter.Presenter) {
			if err := presenter.WriteReport(os.Stdout, p.Report(presenter.Filter{BestMatches: best})); err != nil {
				a.logger.Warn("writing report", zap.Error(err))
			}
		}
		session := func(ctx context.Context) (*profile.Session, error) {
			return a.session(ctx, nil)
		}

		s, err := scheduler.New(schedule, a.store, a.presenter, session, onCycle, a.logger)
		if err != nil {
			return err
		}

		if addr != "" {
			go func() {
				if err := a.metrics.Serve(ctx, addr, a.logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("metrics server stopped", zap.Error(err))
				}
			}()
		}

		if err := s.Start(ctx); err != nil {
			return err
		}
		a.logger.Info("watching companies", zap.String("schedule", schedule), zap.String("metrics_addr", addr))

		<-ctx.Done()
		s.Stop()
		a.logger.Info("watch stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolP("best", "b", false, "report only postings above the relevance floor")
}
