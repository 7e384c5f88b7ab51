package main

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaitAPI/ChessDestroyer/internal/config"
	"github.com/BaitAPI/ChessDestroyer/internal/obslog"
)

// app is the state shared by the subcommands after the root pre-run.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger

	server   string
	username string
}

func Root() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "chess-client",
		Short: "Play chess against the ChessDestroyer server",
		Long: heredoc.Doc(`
			chess-client plays a game against the ChessDestroyer server from the
			terminal. The server decides every position; moves made here are sent
			to it and its answer replaces the local board.

			Settings come from $XDG_CONFIG_HOME/chessdestroyer/config.yaml, then
			CHESS_* environment variables, then flags.
		`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := obslog.InitFromEnv(); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if s := strings.TrimSpace(a.server); s != "" {
				cfg.ServerURL = s
			}
			if s := strings.TrimSpace(a.username); s != "" {
				cfg.Username = s
			}
			a.cfg = cfg
			a.logger = obslog.L()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.server, "server", "", "Game server base URL")
	root.PersistentFlags().StringVarP(&a.username, "username", "u", "", "Name recorded on the scoreboard")

	root.AddCommand(Play(a))
	root.AddCommand(Scoreboard(a))
	root.AddCommand(History(a))
	root.AddCommand(Ping(a))
	return root
}
