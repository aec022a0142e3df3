package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/orchestrator"
	"github.com/xhad/tradeqa/pkg/session"
)

var resetCommands = map[string]bool{"reset": true, "새 채팅": true, "새 채팅 시작": true}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Starts an interactive conversation. Questions asked within the follow-up
window of the previous answer are researched across the documents; others get
a quick direct answer. Type 'reset' to start a new chat or 'exit' to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// prepare builds everything a question needs: config, generator, corpus
// and the optional archive.
func prepare(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.withGenerator(ctx); err != nil {
		return nil, err
	}
	if err := a.withStore(ctx); err != nil {
		return nil, err
	}
	a.withCorpus(ctx)
	return a, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := prepare(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.notifier.Attach(types.NotifierFunc(func(message string) {
		color.Red("\n%s\n", message)
	}))

	sess := a.newSession()

	color.Cyan("\n덤핑방지관세 상담을 시작합니다. ('reset' 새 채팅, 'exit' 종료)")
	if a.store != nil {
		fmt.Printf("세션 ID: %s\n", sess.ID())
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		switch {
		case question == "":
			continue
		case strings.EqualFold(question, "exit"):
			return nil
		case resetCommands[strings.ToLower(question)]:
			sess.Reset(ctx)
			color.Blue("새 채팅을 시작합니다.")
			continue
		}

		printAnswer(ask(ctx, sess, question))
	}

	return scanner.Err()
}

// ask runs one turn behind a spinner.
func ask(ctx context.Context, sess *session.Session, question string) orchestrator.Answer {
	spinner := getSpinner("🤖 답변을 생성하고 있습니다...")
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				spinner.Add(1)
			}
		}
	}()

	ans := sess.Ask(ctx, question)
	close(done)
	spinner.Finish()
	fmt.Print("\r")
	return ans
}

func printAnswer(ans orchestrator.Answer) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("\nAssistant: %s\n", ans.Text)

	meta := fmt.Sprintf("[%s · %s · %.1fs]", ans.Path, ans.Outcome, ans.Elapsed.Seconds())
	if ans.Category != "" {
		meta = fmt.Sprintf("[%s · %s · %s · %.1fs]", ans.Path, ans.Category, ans.Outcome, ans.Elapsed.Seconds())
	}
	color.New(color.FgHiBlack).Println(meta)
}
