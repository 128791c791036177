package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/utkarsh5026/taskpool/internal/storage"
	"github.com/utkarsh5026/taskpool/pool"
)

func newProbeCmd(a *app) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "probe [name...]",
		Short: "Report static website hosting for attached accounts",
		Long: `probe reads the blob service properties of every named account (or of
all attached accounts) and reports whether static website hosting is
enabled. Requests run concurrently up to pool.concurrency. Without names,
the emulator account is skipped while the emulator is not running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := a.selectAccounts(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				colorPrintf(a.out, faint, "No accounts to probe.\n")
				return nil
			}

			var bar *progressbar.ProgressBar
			if !noProgress {
				bar = newProgressBar(cmd.ErrOrStderr(), len(accounts))
			}

			start := time.Now()
			statuses, runErr := a.prober(bar).ProbeAll(cmd.Context(), accounts)
			if bar != nil {
				_ = bar.Finish()
			}

			renderHostingStatus(a.out, statuses)
			summarize(a.out, statuses, time.Since(start))

			if runErr != nil {
				return fmt.Errorf("probe failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not show a progress bar")
	return cmd
}

func (a *app) selectAccounts(ctx context.Context, names []string) ([]storage.Account, error) {
	if len(names) == 0 {
		return a.visibleAccounts(ctx)
	}

	accounts := make([]storage.Account, 0, len(names))
	var errs []error
	for _, name := range names {
		acc, err := a.store.Get(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts, errors.Join(errs...)
}

func (a *app) prober(bar *progressbar.ProgressBar) *storage.Prober {
	cfg := a.cfg
	return storage.NewProber(a.clients, storage.ProbeConfig{
		Concurrency:   cfg.Pool.Concurrency,
		FailurePolicy: cfg.FailurePolicy(),
		Timeout:       cfg.Probe.Timeout,
		RateLimit:     cfg.Pool.RateLimit,
		Burst:         cfg.Pool.Burst,
		Logger:        a.logger,
		Retry: pool.RetryPolicy{
			MaxAttempts:  cfg.Probe.RetryAttempts,
			InitialDelay: cfg.Probe.RetryDelay,
			Backoff:      pool.BackoffJittered,
			OnRetry: func(attempt int, err error) {
				a.logger.Debug("retrying probe", "attempt", attempt, "error", err)
			},
		},
		OnProbed: func(int, error, time.Duration) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Probing accounts"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)
}

func summarize(w io.Writer, statuses []storage.HostingStatus, elapsed time.Duration) {
	var enabled, failed int
	for _, st := range statuses {
		switch {
		case st.Err != nil:
			failed++
		case st.Enabled:
			enabled++
		}
	}

	colorPrintf(w, bold, "\n%d accounts probed in %v: ", len(statuses), elapsed.Round(time.Millisecond))
	colorPrintf(w, green, "%d hosting", enabled)
	if failed > 0 {
		colorPrintf(w, red, ", %d failed", failed)
	}
	_, _ = fmt.Fprintln(w)
}
