package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaitAPI/ChessDestroyer/internal/adapter/chesspresenter"
	"github.com/BaitAPI/ChessDestroyer/internal/board"
	"github.com/BaitAPI/ChessDestroyer/internal/chessbuilder"
	"github.com/BaitAPI/ChessDestroyer/internal/config"
	"github.com/BaitAPI/ChessDestroyer/internal/gameapi"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/internal/session"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

func Play(a *app) *cobra.Command {
	var (
		difficulty int
		color      string
		assistOn   bool
		newSession bool
		snapshots  string
		boardWS    string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start a game against the server",
		Long: heredoc.Doc(`
			play opens a game and shows the board in the terminal. Type a square
			(e2) to see where its piece can go, a move (e2e4, e7e8q) to play it,
			or quit to leave.

			With --snapshots the board is also written as PNG files; with
			--board-ws it is mirrored to a websocket board.
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("difficulty") {
				cfg.Difficulty = difficulty
			}
			if cmd.Flags().Changed("color") {
				cfg.Color = color
			}
			if cmd.Flags().Changed("assist") {
				cfg.AssistEnabled = assistOn
			}
			if cmd.Flags().Changed("new-session") {
				cfg.NewSession = newSession
			}
			if cmd.Flags().Changed("snapshots") {
				cfg.SnapshotDir = snapshots
			}
			if cmd.Flags().Changed("board-ws") {
				cfg.BoardWSURL = boardWS
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, cmd, cfg, a.logger)
		},
	}

	cmd.Flags().IntVarP(&difficulty, "difficulty", "d", 0, "Opponent strength, 1 to 3")
	cmd.Flags().StringVarP(&color, "color", "c", "", "Side to play: w, b or r")
	cmd.Flags().BoolVar(&assistOn, "assist", false, "Let the advisory service play for you")
	cmd.Flags().BoolVar(&newSession, "new-session", false, "Replace a session that is still running")
	cmd.Flags().StringVar(&snapshots, "snapshots", "", "Directory for PNG board snapshots")
	cmd.Flags().StringVar(&boardWS, "board-ws", "", "Websocket URL of a remote board")
	return cmd
}

func play(ctx context.Context, cmd *cobra.Command, cfg *config.AppConfig, logger *zap.Logger) error {
	out := cmd.OutOrStdout()

	deps, err := chessbuilder.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	settings := chessdto.GameSettings{
		Username:   cfg.Username,
		Difficulty: cfg.Difficulty,
		Color:      cfg.Color,
		NewSession: cfg.NewSession,
	}
	code, err := deps.Client.Open(ctx, settings)
	if errors.Is(err, gameapi.ErrSessionRunning) && !settings.NewSession {
		fmt.Fprintln(out, deps.Catalog.Text("session.running", nil))
		settings.NewSession = true
		code, err = deps.Client.Open(ctx, settings)
	}
	if err != nil {
		return fmt.Errorf("open game: %w", err)
	}
	local, err := rules.ParseSide(code)
	if err != nil {
		return err
	}

	engine := rules.NewAdapter()
	views := board.NewMulti(board.NewTerminalView(out, cmd.InOrStdin(), engine, local))
	defer func() { _ = views.Close() }()
	if cfg.SnapshotDir != "" {
		snap, err := board.NewSnapshotView(cfg.SnapshotDir, engine, local, logger)
		if err != nil {
			return err
		}
		views.Add(snap)
	}
	if cfg.BoardWSURL != "" {
		remote, err := board.DialRemoteView(ctx, cfg.BoardWSURL, local, board.WithRemoteLogger(logger))
		if err != nil {
			return fmt.Errorf("connect board: %w", err)
		}
		views.Add(remote)
	}

	players := chesspresenter.Players{Local: cfg.Username, Opponent: chessdto.OpponentName(cfg.Difficulty)}
	presenter := chesspresenter.NewPresenter(out, chesspresenter.NewFormatter(deps.Catalog), players)
	presenter.Opened(local)

	sdeps := session.Deps{
		Engine:    engine,
		View:      views,
		Server:    deps.Client,
		Presenter: presenter,
		Scores:    deps.Scores,
		Archive:   deps.Archive,
		Logger:    logger,
	}
	if deps.Advisor != nil {
		sdeps.Advisor = deps.Advisor
	}
	ctrl, err := session.New(session.Config{
		LocalSide:       local,
		AssistEnabled:   cfg.AssistEnabled,
		RequestTimeout:  cfg.RequestTimeout,
		StallAfter:      cfg.StallAfter,
		ScoreboardCount: cfg.ScoreboardCount,
		Username:        cfg.Username,
		Opponent:        players.Opponent,
	}, sdeps)
	if err != nil {
		return err
	}

	err = ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
