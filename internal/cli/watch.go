package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/client"
)

// NewWatchCmd follows a running session from the terminal the same way the
// player and host screens do.
func NewWatchCmd() *cobra.Command {
	var (
		server string
		pin    string
		player string
		host   bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a game session and print every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logrus.New()
			log.SetOutput(cmd.ErrOrStderr())

			opts := []client.PollerOption{client.WithPollerLogger(log)}
			if host {
				opts = append(opts, client.AsHost())
			} else if player != "" {
				opts = append(opts, client.AsPlayer(player))
			}
			poller := client.NewPoller(client.New(server, nil), pin, opts...)
			err := poller.Run(ctx, printUpdate(cmd.OutOrStdout()))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "base URL of the quiz service")
	cmd.Flags().StringVar(&pin, "pin", "", "game PIN to follow")
	cmd.Flags().StringVar(&player, "player", "", "player name, slows polling once the current question is answered")
	cmd.Flags().BoolVar(&host, "host", false, "poll the full session every tick like the host screen")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func printUpdate(w io.Writer) func(client.Update) {
	return func(u client.Update) {
		fmt.Fprintf(w, "[%s] %s question=%d players=%d version=%d\n",
			u.Session.GamePin, u.Status.Status, u.Status.CurrentQuestionIndex+1, u.Status.PlayerCount, u.Status.Version)
		board := app.BuildLeaderboard(u.Session.Session, u.Session.Quiz.Title)
		for i, entry := range board.Entries {
			fmt.Fprintf(w, "  %2d. %-20s %6d (%d/%d correct)\n", i+1, entry.Name, entry.Score, entry.Correct, entry.Answered)
		}
	}
}
