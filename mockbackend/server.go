package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/creastat/welfarechat/client"
	"github.com/creastat/welfarechat/stream"
)

// ChatPath is where the web build expects the chatbot.
const ChatPath = "/api/chatbot"

// Server streams canned answers.
type Server struct {
	answers *Answers
	delay   time.Duration
	router  *mux.Router
}

// NewServer builds the routes. delay is slept between fragments; nil answers
// means DefaultAnswers.
func NewServer(answers *Answers, delay time.Duration) *Server {
	if answers == nil {
		answers = DefaultAnswers()
	}
	s := &Server{answers: answers, delay: delay, router: mux.NewRouter()}
	s.router.HandleFunc(ChatPath, s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req client.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(req.InputText)
	if question == "" {
		http.Error(w, "input_text is required", http.StatusBadRequest)
		return
	}

	ans := s.answers.Lookup(question)
	log.Debug().Str("component", "mockbackend").Int64("session_id", req.SessionID).Str("question", question).Msg("chat request")
	if ans.Status != 0 {
		http.Error(w, http.StatusText(ans.Status), ans.Status)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for _, frag := range ans.Fragments {
		// One data line per physical line; the client concatenates them.
		for _, line := range strings.Split(frag, "\n") {
			if _, err := fmt.Fprintf(w, "%s %s\n\n", stream.DataPrefix, line); err != nil {
				return
			}
		}
		flusher.Flush()
		if !sleep(r.Context(), s.delay) {
			return
		}
	}
	_, _ = fmt.Fprintf(w, "%s %s\n\n", stream.DataPrefix, stream.Sentinel)
	flusher.Flush()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("component", "mockbackend").Str("addr", addr).Msg("starting mock chat backend")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("component", "mockbackend").Msg("server listen error")
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("component", "mockbackend").Msg("server shutdown error")
			return err
		}
		log.Info().Str("component", "mockbackend").Msg("server shutdown complete")
		return nil
	})
	return eg.Wait()
}
