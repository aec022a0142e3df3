package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/tradeqa/internal/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show archived turns of a conversation",
	Long: `Prints the most recent archived turns of a session, oldest first. The
session id is shown when a chat starts with a database configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of turns")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("no database configured: set database.url or DATABASE_URL")
	}
	a := &app{cfg: cfg}
	if err := a.withStore(ctx); err != nil {
		return err
	}
	defer a.close()

	transcripts, err := a.store.Recent(ctx, args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(transcripts) == 0 {
		color.Yellow("기록이 없습니다: %s", args[0])
		return nil
	}
	printHistory(os.Stdout, transcripts)
	return nil
}

func printHistory(w io.Writer, transcripts []models.Transcript) {
	for _, t := range transcripts {
		fmt.Fprintf(w, "[%s] %s/%s %.1fs\n", t.CreatedAt.Format("2006-01-02 15:04:05"), t.Path, t.Outcome, t.Elapsed.Seconds())
		fmt.Fprintf(w, "Q: %s\n", t.Question)
		fmt.Fprintf(w, "A: %s\n\n", t.Answer)
	}
}
