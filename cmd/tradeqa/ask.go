package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var askFollowUp bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Long: `Answers one question. By default this is the quick direct path; with
--research the question is answered from the documents as a follow-up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askFollowUp, "research", false, "research the documents instead of answering directly")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := prepare(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sess := a.newSession()
	question := strings.Join(args, " ")

	if askFollowUp {
		// An opening turn starts the follow-up window for the real question.
		sess.Ask(ctx, question)
	}

	printAnswer(ask(ctx, sess, question))
	return nil
}
