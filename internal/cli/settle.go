package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"trivia-service/internal/domain"
)

// NewSettleCmd pays out a prize window.
func NewSettleCmd(configPath *string) *cobra.Command {
	var (
		start, end string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle a prize round (defaults to the last completed window)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := buildComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			window, err := resolveWindow(start, end, func() (domain.RoundWindow, bool) {
				return c.schedule.LastCompleted(time.Now())
			})
			if err != nil {
				return err
			}

			if dryRun {
				ranked, err := c.rounds.Preview(cmd.Context(), window)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ranked)
			}
			settlement, err := c.rounds.Settle(cmd.Context(), window)
			if errors.Is(err, domain.ErrRoundAlreadySettled) {
				logger.Warn("round already settled", "start", window.Start, "end", window.End)
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settlement)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start (RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "window end (RFC3339, exclusive)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "rank the window without paying prizes")
	return cmd
}

// resolveWindow parses explicit bounds or falls back to the schedule.
func resolveWindow(start, end string, fallback func() (domain.RoundWindow, bool)) (domain.RoundWindow, error) {
	if start == "" && end == "" {
		w, ok := fallback()
		if !ok {
			return domain.RoundWindow{}, fmt.Errorf("no completed prize window in schedule")
		}
		return w, nil
	}
	if start == "" || end == "" {
		return domain.RoundWindow{}, fmt.Errorf("--start and --end must be given together")
	}
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return domain.RoundWindow{}, fmt.Errorf("parse --start: %w", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return domain.RoundWindow{}, fmt.Errorf("parse --end: %w", err)
	}
	if !e.After(s) {
		return domain.RoundWindow{}, fmt.Errorf("--end must be after --start")
	}
	return domain.RoundWindow{Start: s, End: e}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
