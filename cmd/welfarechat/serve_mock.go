package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creastat/welfarechat/mockbackend"
)

func newServeMockCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run a mock chatbot backend with canned answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := mockbackend.DefaultAnswers()
			if a.cfg.Mock.Answers != "" {
				loaded, err := mockbackend.LoadAnswers(a.cfg.Mock.Answers)
				if err != nil {
					return err
				}
				answers = loaded
			}
			if addr == "" {
				addr = a.cfg.Mock.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mockbackend.NewServer(answers, a.cfg.Mock.Delay).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides mock.addr")
	return cmd
}
