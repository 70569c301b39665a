package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/creastat/welfarechat/client"
	"github.com/creastat/welfarechat/widget"
)

const chatHelp = `명령: /open  /close  /reset  /quit`

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask the welfare chatbot interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (a *app) runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	backend, err := openBackend(a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn().Err(err).Msg("close storage backend")
		}
	}()

	chat, err := client.New(a.cfg.Chat.Endpoint, client.WithConnectTimeout(a.cfg.Chat.ConnectTimeout))
	if err != nil {
		return err
	}

	w := widget.New(chat, newChatStore(a.cfg, backend), widget.WithRenderer(newTermRenderer(out)))
	w.Start(ctx)
	defer w.Shutdown()
	w.Open()

	fmt.Fprintln(out, dimStyle.Render(chatHelp))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				waitForAnswer(ctx, w)
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				return nil
			case "/open":
				w.Open()
			case "/close":
				w.Close()
			case "/reset":
				w.Reset()
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("[새 대화 시작: 세션 %d]", w.SessionID())))
			default:
				if w.Submit(line) {
					waitForAnswer(ctx, w)
				}
			}
		}
	}
}

// waitForAnswer blocks until the answer in flight settles. Ctrl-C cancels
// the whole session.
func waitForAnswer(ctx context.Context, w *widget.Widget) {
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for w.Streaming() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
