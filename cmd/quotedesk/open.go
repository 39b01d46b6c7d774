package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/quotedesk/internal/app"
)

func newOpenCmd(configPath *string) *cobra.Command {
	var (
		prefsPath string
		poll      time.Duration
		ephemeral bool
	)

	cmd := &cobra.Command{
		Use:   "open [shock-id]",
		Short: "Open a shock in the line editor",
		Long: `Open a shock's line tables. Without a shock id the last opened shock is
reopened.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{
				ConfigPath: *configPath,
				PrefsPath:  prefsPath,
				PollEvery:  poll,
				Ephemeral:  ephemeral,
			}
			if len(args) == 1 {
				id, err := parseShockID(args[0])
				if err != nil {
					return err
				}
				opts.ShockID = id
			}
			return app.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/quotedesk/prefs.toml)")
	cmd.Flags().DurationVar(&poll, "poll", 0, "refresh interval, e.g. 5s (default from config)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep unsaved rows in memory only")
	return cmd
}

func parseShockID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid shock id %q", raw)
	}
	return id, nil
}
