package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
	"github.com/bpawel10/skyless/internal/systems/mapgen"
	"github.com/bpawel10/skyless/internal/systems/network"
	"github.com/bpawel10/skyless/internal/systems/systemstest"
)

func quietEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &client{t: t, ws: c}
}

func (c *client) send(raw string) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (c *client) read() (protocol.BaseMessage, []byte) {
	c.t.Helper()
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c.ws.ReadMessage()
	require.NoError(c.t, err)
	base, err := protocol.DecodeBase(raw)
	require.NoError(c.t, err)
	return base, raw
}

func newTestServer(t *testing.T) (*systemstest.Harness, *httptest.Server) {
	t.Helper()
	v, err := protocol.NewValidator()
	require.NoError(t, err)
	s := NewServer(Config{}, v, quietEntry())

	h := systemstest.NewHarness(t, func(g *game.Game) {
		mapgen.Register(g, mapgen.Config{})
		network.Register(g, network.Config{Spawn: mapgen.Config{}.CenterTile()})
	})
	require.NoError(t, h.G.Spawn(context.Background(), s.Listener()))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return h, srv
}

func TestServer_LoginPingRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv)

	c.send(`{"type":"LOGIN","protocol_version":"1.0","name":"Knight"}`)
	base, raw := c.read()
	require.Equal(t, protocol.TypeWelcome, base.Type)
	var welcome protocol.WelcomeMsg
	require.NoError(t, json.Unmarshal(raw, &welcome))
	assert.Equal(t, uint32(1), welcome.PlayerID)
	assert.NotEmpty(t, welcome.SessionID)

	base, raw = c.read()
	require.Equal(t, protocol.TypeMap, base.Type)
	var m protocol.MapMsg
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Len(t, m.Tiles, 49)

	c.send(`{"type":"PING","protocol_version":"1.0"}`)
	base, _ = c.read()
	assert.Equal(t, protocol.TypePong, base.Type)
}

func TestServer_InvalidMessagesGetErrors(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv)

	cases := []struct {
		raw  string
		code string
	}{
		{`nope`, protocol.ErrProtoBadRequest},
		{`{"type":"FLY","protocol_version":"1.0"}`, protocol.ErrProtoUnknownType},
		{`{"type":"PING","protocol_version":"9.9"}`, protocol.ErrProtoVersion},
		{`{"type":"MOVE","protocol_version":"1.0","direction":2}`, protocol.ErrNotLoggedIn},
	}
	for _, tc := range cases {
		c.send(tc.raw)
		base, raw := c.read()
		require.Equal(t, protocol.TypeError, base.Type, "for %s", tc.raw)
		var e protocol.ErrorMsg
		require.NoError(t, json.Unmarshal(raw, &e))
		assert.Equal(t, tc.code, e.Code, "for %s", tc.raw)
	}

	// The connection survives rejected messages.
	c.send(`{"type":"PING","protocol_version":"1.0"}`)
	base, _ := c.read()
	assert.Equal(t, protocol.TypePong, base.Type)
}

func TestServer_DisconnectRemovesClient(t *testing.T) {
	h, srv := newTestServer(t)
	c := dial(t, srv)
	c.send(`{"type":"LOGIN","protocol_version":"1.0","name":"Knight"}`)
	c.read()
	c.read()

	clients := func() defs.Clients {
		cl, _ := game.GameAttribute[defs.Clients](h.G.Attributes())
		return cl
	}
	require.Len(t, clients(), 1)

	require.NoError(t, c.ws.Close())
	h.Eventually("client removed", func() bool { return len(clients()) == 0 })
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	v, err := protocol.NewValidator()
	require.NoError(t, err)
	s := NewServer(Config{MaxQueue: 1}, v, quietEntry())
	srv2 := httptest.NewServer(s.Handler())
	defer srv2.Close()
	_ = dial(t, srv2)

	var conn *Conn
	select {
	case conn = <-s.accepted:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no accepted connection")
	}
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Send(protocol.PongMsg{Type: protocol.TypePong}), ErrClosed)
	assert.NoError(t, conn.Close())
}
