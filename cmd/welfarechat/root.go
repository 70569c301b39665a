package main

import (
	"github.com/spf13/cobra"

	"github.com/creastat/welfarechat/config"
	"github.com/creastat/welfarechat/logging"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfgFile  string
	logLevel string
	driver   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "welfarechat",
		Short:         "Public welfare guidance chatbot client",
		Long:          `Chat with the welfare guidance chatbot from the terminal, manage document checklists and run a mock backend.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./welfarechat.yaml when present)")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "log level, overrides logging.level")
	root.PersistentFlags().StringVar(&a.driver, "storage", "", "storage driver: memory, file, redis, sqlite or supabase")

	root.AddCommand(newChatCmd(a), newChecklistCmd(a), newServeMockCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.driver != "" {
		cfg.Storage.Driver = a.driver
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, nil); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
