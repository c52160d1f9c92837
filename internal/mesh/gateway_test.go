package mesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGatewayServer is a minimal stand-in for the gateway daemon: it
// sends the channel list on connect, echoes received tx frames to a
// channel, and can inject rx frames.
type testGatewayServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	conns chan *websocket.Conn
	tx    chan frame
}

func newTestGatewayServer(t *testing.T, channels []string) *testGatewayServer {
	t.Helper()
	s := &testGatewayServer{
		conns: make(chan *websocket.Conn, 1),
		tx:    make(chan frame, 16),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		require.NoError(t, conn.WriteJSON(frame{Type: "channels", Channels: channels}))
		s.conns <- conn

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			s.tx <- f
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testGatewayServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *testGatewayServer) nextTx(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-s.tx:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no tx frame received")
		return frame{}
	}
}

func dialTestGateway(t *testing.T, s *testGatewayServer) *Gateway {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, err := Dial(ctx, s.url())
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	require.NoError(t, g.AwaitChannels(ctx))
	return g
}

func TestGateway_ChannelDiscovery(t *testing.T) {
	s := newTestGatewayServer(t, []string{"Primary", "SecKC-Test", "admin"})
	g := dialTestGateway(t, s)

	idx, ok := g.FindChannel("seckc-test")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = g.FindChannel("Primary")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = g.FindChannel("nope")
	assert.False(t, ok)
}

func TestGateway_SendAndBroadcast(t *testing.T) {
	s := newTestGatewayServer(t, []string{"Primary"})
	g := dialTestGateway(t, s)
	ctx := context.Background()

	require.NoError(t, g.SendText(ctx, "hello", "!abcd1234"))
	f := s.nextTx(t)
	assert.Equal(t, "tx", f.Type)
	assert.Equal(t, "!abcd1234", f.To)
	assert.Equal(t, "hello", f.Text)

	require.NoError(t, g.Broadcast(ctx, "game on", 2))
	f = s.nextTx(t)
	assert.Equal(t, "tx", f.Type)
	assert.Equal(t, Broadcast, f.To)
	assert.Equal(t, 2, f.Channel)
	assert.Equal(t, "game on", f.Text)
}

func TestGateway_ListenDeliversMessages(t *testing.T) {
	s := newTestGatewayServer(t, []string{"Primary"})
	g := dialTestGateway(t, s)

	received := make(chan Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- g.Listen(context.Background(), func(m Message) { received <- m })
	}()

	server := <-s.conns
	require.NoError(t, server.WriteJSON(frame{
		Type: "rx", From: "!abcd1234", FromName: "alice", Channel: 0, Text: "!hj join",
	}))

	select {
	case m := <-received:
		assert.Equal(t, "!abcd1234", m.From)
		assert.Equal(t, "alice", m.FromName)
		assert.True(t, m.IsDM())
		assert.Equal(t, "!hj join", m.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	// Connection loss ends the listen loop with an error.
	server.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrGatewayClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not return after close")
	}
}
