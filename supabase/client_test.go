package supabase

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/creastat/welfarechat/session"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	require.Error(t, err)

	_, err = New(Config{URL: "https://project.supabase.co"})
	require.Error(t, err)
}

// TestClient_SharedTable runs against a real project whose widget_state
// table matches the layout documented on row.
func TestClient_SharedTable(t *testing.T) {
	url := os.Getenv("WELFARECHAT_TEST_SUPABASE_URL")
	key := os.Getenv("WELFARECHAT_TEST_SUPABASE_KEY")
	if url == "" || key == "" {
		t.Skip("WELFARECHAT_TEST_SUPABASE_URL / WELFARECHAT_TEST_SUPABASE_KEY not set")
	}

	ctx := context.Background()
	cfg := Config{URL: url, APIKey: key, PollInterval: 100 * time.Millisecond}
	a, err := New(cfg)
	require.NoError(t, err)
	b, err := New(cfg)
	require.NoError(t, err)

	k := "test:" + uuid.NewString()
	changes := make(chan session.Change, 4)
	stop, err := b.Watch(ctx, k, func(c session.Change) { changes <- c })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, a.Set(ctx, k, `{"open":true}`))
	v, found, err := b.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"open":true}`, v)

	select {
	case c := <-changes:
		require.NotNil(t, c.Value)
		require.Equal(t, `{"open":true}`, *c.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("no change observed")
	}

	require.NoError(t, a.Delete(ctx, k))
	_, found, err = b.Get(ctx, k)
	require.NoError(t, err)
	require.False(t, found)
}
