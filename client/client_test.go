package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/welfarechat"
	"github.com/creastat/welfarechat/stream"
)

func TestNew_EmptyEndpoint(t *testing.T) {
	_, err := New("  ")
	require.ErrorIs(t, err, welfarechat.ErrInvalidConfig)
}

func TestStream_PostsQuestion(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: 기초\ndata: 연금\ndata: [STREAM_END]\n")
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.Endpoint())

	body, err := c.Stream(context.Background(), 123456789, "기초연금 신청")
	require.NoError(t, err)
	defer body.Close()

	deltas, err := stream.Collect(stream.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"기초", "연금"}, deltas)
	assert.Equal(t, ChatRequest{SessionID: 123456789, InputText: "기초연금 신청"}, got)
}

func TestStream_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Stream(context.Background(), 1, "q")
	require.ErrorIs(t, err, welfarechat.ErrRequestFailed)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestStream_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Stream(context.Background(), 1, "q")
	require.ErrorIs(t, err, welfarechat.ErrMissingBody)
}

func TestStream_CancelAbortsRead(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: first\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithConnectTimeout(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	body, err := c.Stream(ctx, 1, "q")
	require.NoError(t, err)
	defer body.Close()

	r := stream.NewReader(body)
	delta, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", delta)

	cancel()
	_, err = r.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestStream_BlankText(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api/chatbot")
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), 1, "  \n")
	require.ErrorIs(t, err, welfarechat.ErrEmptyInput)
}

func TestStream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithConnectTimeout(200*time.Millisecond))
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), 1, "q")
	require.Error(t, err)
}
