package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/creastat/welfarechat/session"
)

func newChecklistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Track which documents are ready for a service application",
	}

	withStore := func(run func(cmd *cobra.Command, store *session.ChecklistStore, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					log.Warn().Err(err).Msg("close storage backend")
				}
			}()
			return run(cmd, session.NewChecklistStore(backend), args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <serviceId>",
			Short: "Show the checklist of a service",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, store *session.ChecklistStore, args []string) error {
				printChecklist(cmd.OutOrStdout(), store.Load(cmd.Context(), args[0]), nil)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "toggle <serviceId> <docId>",
			Short: "Flip one document",
			Args:  cobra.ExactArgs(2),
			RunE: withStore(func(cmd *cobra.Command, store *session.ChecklistStore, args []string) error {
				printChecklist(cmd.OutOrStdout(), store.Toggle(cmd.Context(), args[0], args[1]), nil)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "mark-all <serviceId> <docId>...",
			Short: "Mark every listed document as ready",
			Args:  cobra.MinimumNArgs(2),
			RunE: withStore(func(cmd *cobra.Command, store *session.ChecklistStore, args []string) error {
				printChecklist(cmd.OutOrStdout(), store.MarkAll(cmd.Context(), args[0], args[1:]), args[1:])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear-all <serviceId> <docId>...",
			Short: "Unmark every listed document",
			Args:  cobra.MinimumNArgs(2),
			RunE: withStore(func(cmd *cobra.Command, store *session.ChecklistStore, args []string) error {
				printChecklist(cmd.OutOrStdout(), store.ClearAll(cmd.Context(), args[0], args[1:]), args[1:])
				return nil
			}),
		},
	)
	return cmd
}

// printChecklist lists m in a stable order. With ids the completion summary
// is printed too.
func printChecklist(out io.Writer, m session.CheckMap, ids []string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if len(keys) == 0 {
		fmt.Fprintln(out, dimStyle.Render("(비어 있음)"))
	}
	for _, k := range keys {
		mark := dimStyle.Render("[ ]")
		if m[k] {
			mark = assistantLabelStyle.Render("[x]")
		}
		fmt.Fprintf(out, "%s %s\n", mark, k)
	}
	if len(ids) > 0 && m.AllDone(ids) {
		fmt.Fprintln(out, highlightStyle.Render("서류 준비가 모두 끝났어요."))
	}
}
