package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aitoolsintegration-prog/chainref/internal/adapters/render"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/usecases"
)

func newAskCmd(a *app) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask one question and render the chain",
		Example: `  chainref ask "What does scripture say about rest?"
  chainref ask --theme Grace "Why was the law given?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("please enter a question")
			}

			controller := a.newController()
			defer controller.Close()

			controller.Submit(question, a.theme(theme))
			state, err := controller.Wait(cmd.Context())
			if err != nil {
				return err
			}
			return printFinal(cmd, render.NewRenderer(), state)
		},
	}

	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme for the chain (default from config)")
	return cmd
}

func printFinal(cmd *cobra.Command, r *render.Renderer, state usecases.State) error {
	fmt.Fprintln(cmd.OutOrStdout(), r.State(state))
	if state.View() == usecases.ViewFailed {
		return errQueryFailed
	}
	return nil
}
