package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"trivia-service/internal/app"
)

// NewResetWeekCmd closes the previous ISO week: archives the weekly board and
// zeroes every user's weekly points.
func NewResetWeekCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-week",
		Short: "Archive last week's leaderboard and reset weekly points",
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

			result, err := c.rounds.ResetWeek(cmd.Context())
			if errors.Is(err, app.ErrWeekAlreadyReset) {
				logger.Warn("last week was already reset")
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}
