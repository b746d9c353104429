package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aitoolsintegration-prog/chainref/internal/adapters/filewatcher"
	"github.com/aitoolsintegration-prog/chainref/internal/adapters/render"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/usecases"
)

func newWatchCmd(a *app) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-ask the question in FILE every time it is saved",
		Long: `watch reads a question from FILE, asks it, and asks again whenever the
file is written. A save made while an answer is pending supersedes it; only
the newest question's answer is shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			watcher, err := filewatcher.NewFSNotifyWatcher(a.logger.Named("watch"))
			if err != nil {
				return err
			}
			defer watcher.Stop()

			controller := a.newController()
			defer controller.Close()

			states, unsubscribe := controller.Subscribe()
			done := make(chan struct{})
			go func() {
				defer close(done)
				printStates(cmd.OutOrStdout(), render.NewRenderer(), states)
			}()

			a.logger.Info("watching question file", zap.String("path", args[0]))
			uc := usecases.NewWatchUseCase(watcher, controller, os.ReadFile, a.theme(theme))
			err = uc.Run(cmd.Context(), args[0])

			unsubscribe()
			<-done
			return err
		},
	}

	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme for the chain (default from config)")
	return cmd
}

// printStates renders every state after the first submit until states closes.
func printStates(w io.Writer, r *render.Renderer, states <-chan usecases.State) {
	for state := range states {
		if state.Generation == 0 {
			continue
		}
		fmt.Fprintln(w, r.State(state))
	}
}
