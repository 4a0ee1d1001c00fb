package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/northharbor/sage/internal/interview"
)

var interviewPlanID string

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interview in the terminal",
	Long:  "Starts (or resumes with --plan) an interview session and runs the conversation loop on stdin/stdout. Type 'quit' to stop; progress is saved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		start, err := env.Manager.Start(ctx, "", interviewPlanID)
		if err != nil {
			return err
		}
		fmt.Printf("plan: %s\n\n%s\n\n", start.PlanID, start.AssistantMessage)
		if start.Decision.Complete {
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				fmt.Println("Progress saved. Resume with --plan " + start.PlanID)
				break
			}

			res, err := env.Manager.Respond(ctx, interview.RespondInput{
				SessionID: start.SessionID,
				Message:   line,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n%s\n\n", res.AssistantMessage)
			for _, w := range res.Warnings {
				fmt.Printf("  note: %s\n", w.Message)
			}
			if res.Decision.Complete {
				break
			}
		}
		return scanner.Err()
	},
}

func init() {
	interviewCmd.Flags().StringVar(&interviewPlanID, "plan", "", "resume an existing plan by id")
	rootCmd.AddCommand(interviewCmd)
}
