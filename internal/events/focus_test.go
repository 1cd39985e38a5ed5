package events

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTrigger struct {
	n atomic.Int64
}

func (c *countingTrigger) Focus() {
	c.n.Add(1)
}

func dialEvents(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + strings.TrimPrefix(url, "http://")
	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	return conn
}

func TestFocusMessagesReachTrigger(t *testing.T) {
	trigger := &countingTrigger{}
	srv := httptest.NewServer(NewHandler(trigger))
	defer srv.Close()

	conn := dialEvents(t, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx := context.Background()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"focus"}`)))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"focus"}`)))

	assert.Eventually(t, func() bool { return trigger.n.Load() == 2 },
		2*time.Second, 10*time.Millisecond)
}

func TestUnknownAndMalformedMessagesIgnored(t *testing.T) {
	trigger := &countingTrigger{}
	srv := httptest.NewServer(NewHandler(trigger))
	defer srv.Close()

	conn := dialEvents(t, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx := context.Background()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"blur"}`)))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`not json`)))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"focus"}`)))

	// The focus message after the garbage still lands, proving the read
	// loop survived both.
	assert.Eventually(t, func() bool { return trigger.n.Load() == 1 },
		2*time.Second, 10*time.Millisecond)
}
