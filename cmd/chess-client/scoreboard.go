package main

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/BaitAPI/ChessDestroyer/internal/adapter/chesspresenter"
	"github.com/BaitAPI/ChessDestroyer/internal/archive"
	"github.com/BaitAPI/ChessDestroyer/internal/chessbuilder"
)

func Scoreboard(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "scoreboard",
		Short: "Show the server's scoreboard",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("count") {
				a.cfg.ScoreboardCount = count
			}
			deps, err := chessbuilder.New(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			s.Start()
			rows := deps.Scores.FetchTop(cmd.Context(), a.cfg.ScoreboardCount)
			s.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), chesspresenter.NewFormatter(deps.Catalog).Scoreboard(rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of rows")
	return cmd
}

func History(a *app) *cobra.Command {
	var (
		limit   int
		session string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived games or print one as PGN",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := chessbuilder.New(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()
			out := cmd.OutOrStdout()

			if session != "" {
				rec, err := deps.Archive.Get(cmd.Context(), session)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, archive.BuildPGN(rec))
				return nil
			}

			recs, err := deps.Archive.Recent(cmd.Context(), a.cfg.Username, limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No archived games.")
				return nil
			}
			for _, rec := range recs {
				fmt.Fprintf(out, "%s  %s  %-5s %-4s vs %-16s %s (%d moves)\n",
					rec.EndedAt.Local().Format("2006-01-02 15:04"),
					rec.SessionUUID, rec.LocalSide, rec.Result, rec.Opponent,
					rec.Reason, len(rec.MovesSAN))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of games")
	cmd.Flags().StringVar(&session, "session", "", "Print the game with this session id as PGN")
	return cmd
}

func Ping(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the game server answers",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := chessbuilder.New(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			started := time.Now()
			if err := deps.Client.Ping(ctx); err != nil {
				return fmt.Errorf("%s: %w", deps.Client.BaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s answered in %s\n", deps.Client.BaseURL(), time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
}
