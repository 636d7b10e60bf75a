package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"trivia-service/internal/app"
)

// NewDrawCmd runs the weekly streak lottery.
func NewDrawCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "draw",
		Short: "Run the weekly streak draw",
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

			result, err := c.rounds.RunStreakDraw(cmd.Context())
			if errors.Is(err, app.ErrDrawAlreadyRun) {
				logger.Warn("streak draw already ran this week")
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}
