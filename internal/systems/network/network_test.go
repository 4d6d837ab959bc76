package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
	"github.com/bpawel10/skyless/internal/systems/mapgen"
	"github.com/bpawel10/skyless/internal/systems/movement"
	"github.com/bpawel10/skyless/internal/systems/scripts"
	"github.com/bpawel10/skyless/internal/systems/systemstest"
)

func newHarness(t *testing.T) *systemstest.Harness {
	return newHarnessWith(t, mapgen.Config{})
}

func newHarnessWith(t *testing.T, mapCfg mapgen.Config) *systemstest.Harness {
	return systemstest.NewHarness(t, func(g *game.Game) {
		mapgen.Register(g, mapCfg)
		holding := mapCfg.HoldingTile()
		Register(g, Config{Spawn: mapCfg.CenterTile(), Holding: &holding})
		movement.Register(g, movement.Config{})
		scripts.Register(g, scripts.Config{})
	})
}

// connect accepts conn and waits until its reader task is running.
func connect(h *systemstest.Harness, id string) *systemstest.Sender {
	conn := systemstest.NewSender(id)
	h.Emit(defs.ConnectionAccepted{Conn: conn})
	return conn
}

func login(h *systemstest.Harness, conn *systemstest.Sender, name string) protocol.WelcomeMsg {
	h.T.Helper()
	conn.Push(defs.LoginPayload{ConnID: conn.ID, Name: name})
	h.Eventually("welcome and map", func() bool {
		return len(systemstest.SentOf[protocol.MapMsg](conn)) > 0
	})
	welcomes := systemstest.SentOf[protocol.WelcomeMsg](conn)
	require.Len(h.T, welcomes, 1)
	return welcomes[0]
}

func TestLogin_SpawnsPlayerAndSendsWelcomeThenMap(t *testing.T) {
	h := newHarness(t)
	conn := connect(h, "c1")

	w := login(h, conn, "Knight")
	assert.Equal(t, uint32(1), w.PlayerID)
	assert.Equal(t, "c1", w.SessionID)
	center := mapgen.Config{}.CenterTile()
	assert.Equal(t, center.At(1), w.Position.Model())

	sent := conn.Sent()
	require.Len(t, sent, 2)
	assert.IsType(t, protocol.WelcomeMsg{}, sent[0])
	m := sent[1].(protocol.MapMsg)
	assert.Len(t, m.Tiles, 49)
	var creature *protocol.Creature
	for _, tile := range m.Tiles {
		if tile.Position.Model() == center {
			require.Len(t, tile.Entities, 2)
			assert.Equal(t, defs.ItemGrass, tile.Entities[0].Item)
			creature = tile.Entities[1].Creature
		}
	}
	require.NotNil(t, creature)
	assert.Equal(t, "Knight", creature.Name)
	assert.Equal(t, [2]int{150, 150}, creature.Health)

	e, ok := h.World().Entity(center.At(1))
	require.True(t, ok)
	name, _ := attr.Get[defs.Name](e.Attributes)
	assert.Equal(t, defs.Name("Knight"), name)

	seq, _ := game.GameAttribute[defs.PlayerSeq](h.G.Attributes())
	assert.Equal(t, defs.PlayerSeq(1), seq)
}

func TestLogin_AllocatesDistinctIDsAndRejectsRelogin(t *testing.T) {
	h := newHarness(t)
	a, b := connect(h, "a"), connect(h, "b")

	assert.Equal(t, uint32(1), login(h, a, "A").PlayerID)
	assert.Equal(t, uint32(2), login(h, b, "B").PlayerID)

	a.Push(defs.LoginPayload{ConnID: "a", Name: "again"})
	h.Eventually("relogin error", func() bool {
		return len(systemstest.SentOf[protocol.ErrorMsg](a)) == 1
	})
	assert.Equal(t, protocol.ErrAlreadyLoggedIn, systemstest.SentOf[protocol.ErrorMsg](a)[0].Code)

	clients, _ := game.GameAttribute[defs.Clients](h.G.Attributes())
	assert.Len(t, clients, 2)
}

func TestPing_Pong(t *testing.T) {
	h := newHarness(t)
	conn := connect(h, "c1")

	conn.Push(defs.PingPayload{ConnID: "c1"})
	h.Eventually("pong", func() bool {
		return len(systemstest.SentOf[protocol.PongMsg](conn)) == 1
	})
}

func TestAnonymousActionsAreRejected(t *testing.T) {
	h := newHarness(t)
	conn := connect(h, "c1")

	conn.Push(defs.MovePayload{ConnID: "c1", Direction: defs.North})
	conn.Push(defs.UseItemPayload{ConnID: "c1", Position: mapgen.Config{}.LeverTile().At(1), Item: defs.ItemLeverLeft})
	h.Eventually("two errors", func() bool {
		return len(systemstest.SentOf[protocol.ErrorMsg](conn)) == 2
	})
	for _, e := range systemstest.SentOf[protocol.ErrorMsg](conn) {
		assert.Equal(t, protocol.ErrNotLoggedIn, e.Code)
	}
}

func TestUseItem_TogglesLeverAndBroadcasts(t *testing.T) {
	h := newHarness(t)
	a, b := connect(h, "a"), connect(h, "b")
	login(h, a, "A")
	login(h, b, "B")
	lever := mapgen.Config{}.LeverTile().At(1)

	a.Push(defs.UseItemPayload{ConnID: "a", Position: lever, Item: defs.ItemLeverLeft})
	for _, conn := range []*systemstest.Sender{a, b} {
		h.Eventually("changed entity on "+conn.ID, func() bool {
			return len(systemstest.SentOf[protocol.ChangedEntityMsg](conn)) == 1
		})
		got := systemstest.SentOf[protocol.ChangedEntityMsg](conn)[0]
		assert.Equal(t, defs.ItemLeverRight, got.Item)
		assert.Equal(t, lever, got.Position.Model())
	}

	// Stale item id.
	a.Push(defs.UseItemPayload{ConnID: "a", Position: lever, Item: defs.ItemLeverLeft})
	h.Eventually("invalid target", func() bool {
		return len(systemstest.SentOf[protocol.ErrorMsg](a)) == 1
	})
	assert.Equal(t, protocol.ErrInvalidTarget, systemstest.SentOf[protocol.ErrorMsg](a)[0].Code)
}

func TestMove_BroadcastsMovedEntity(t *testing.T) {
	h := newHarness(t)
	a, b := connect(h, "a"), connect(h, "b")
	login(h, a, "A")
	login(h, b, "B")

	a.Push(defs.MovePayload{ConnID: "a", Direction: defs.West})
	h.Eventually("moved entity on b", func() bool {
		return len(systemstest.SentOf[protocol.MovedEntityMsg](b)) == 1
	})
	got := systemstest.SentOf[protocol.MovedEntityMsg](b)[0]
	center := mapgen.Config{}.CenterTile()
	assert.Equal(t, center.At(1), got.From.Model())
	assert.Equal(t, center.Offset(-1, 0), got.To.Model())

	h.Eventually("re-centred map on a", func() bool {
		return len(systemstest.SentOf[protocol.MapMsg](a)) == 2
	})
	assert.Len(t, systemstest.SentOf[protocol.MapMsg](b), 1)
}

func TestMove_SendsMoverTilesEnteringView(t *testing.T) {
	mapCfg := mapgen.Config{Range: 12}
	h := newHarnessWith(t, mapCfg)
	a := connect(h, "a")
	login(h, a, "A")
	center := mapCfg.CenterTile()
	entering := center.Offset(-9, 0)

	first := systemstest.SentOf[protocol.MapMsg](a)[0]
	assert.False(t, mapHasTile(first, entering))

	a.Push(defs.MovePayload{ConnID: "a", Direction: defs.West})
	h.Eventually("second map", func() bool {
		return len(systemstest.SentOf[protocol.MapMsg](a)) == 2
	})
	second := systemstest.SentOf[protocol.MapMsg](a)[1]
	assert.Equal(t, center.Offset(-1, 0), second.Center.Model())
	assert.True(t, mapHasTile(second, entering))
	assert.False(t, mapHasTile(second, center.Offset(9, 0)))

	// MOVED_ENTITY precedes the map that reflects it.
	sent := a.Sent()
	var order []string
	for _, m := range sent[2:] {
		switch m.(type) {
		case protocol.MovedEntityMsg:
			order = append(order, "moved")
		case protocol.MapMsg:
			order = append(order, "map")
		}
	}
	assert.Equal(t, []string{"moved", "map"}, order)
}

func mapHasTile(m protocol.MapMsg, pos model.Position) bool {
	for _, t := range m.Tiles {
		if t.Position.Model() == pos {
			return true
		}
	}
	return false
}

func TestBroadcast_DeliversInApplyOrder(t *testing.T) {
	h := newHarness(t)
	a := connect(h, "a")
	login(h, a, "A")
	lever := mapgen.Config{}.LeverTile().At(1)

	const toggles = 41
	for i := 0; i < toggles; i++ {
		require.NoError(t, h.G.Submit(context.Background(), game.EmitEvent{Event: defs.Use{Target: lever}}))
	}
	h.Eventually("every toggle delivered", func() bool {
		return len(systemstest.SentOf[protocol.ChangedEntityMsg](a)) == toggles
	})

	got := systemstest.SentOf[protocol.ChangedEntityMsg](a)
	for i, msg := range got {
		want := defs.ItemLeverRight
		if i%2 == 1 {
			want = defs.ItemLeverLeft
		}
		require.Equal(t, want, msg.Item, "message %d", i)
	}
	e, ok := h.World().Entity(lever)
	require.True(t, ok)
	item, _ := attr.Get[defs.Item](e.Attributes)
	assert.Equal(t, uint16(item), got[len(got)-1].Item)
}

func TestConnectionClosed_RemovesClient(t *testing.T) {
	h := newHarness(t)
	a, b := connect(h, "a"), connect(h, "b")
	login(h, a, "A")
	login(h, b, "B")

	require.NoError(t, a.Close())
	h.Emit(defs.ConnectionClosed{ConnID: "a"})

	clients, _ := game.GameAttribute[defs.Clients](h.G.Attributes())
	assert.NotContains(t, clients, "a")
	assert.Contains(t, clients, "b")
	conns, _ := game.GameAttribute[defs.Connections](h.G.Attributes())
	assert.NotContains(t, conns, "a")

	_, _, ok := defs.FindPlayer(h.World(), 1)
	assert.False(t, ok)
	h.Eventually("removed entity on b", func() bool {
		return len(systemstest.SentOf[protocol.RemovedEntityMsg](b)) == 1
	})
	assert.Equal(t, "player", systemstest.SentOf[protocol.RemovedEntityMsg](b)[0].Attribute)
	assert.Empty(t, systemstest.SentOf[protocol.RemovedEntityMsg](a))

	// The body is parked off the floor every client sees.
	w := h.World()
	spawn, ok := w.Tile(mapgen.Config{}.CenterTile())
	require.True(t, ok)
	assert.Len(t, spawn.Entities, 2)
	holding, ok := w.Tile(mapgen.Config{}.HoldingTile())
	require.True(t, ok)
	require.Len(t, holding.Entities, 1)
	name, _ := attr.Get[defs.Name](holding.Entities[0].Attributes)
	assert.Equal(t, defs.Name("A"), name)

	h.Eventually("moved entity on b", func() bool {
		return len(systemstest.SentOf[protocol.MovedEntityMsg](b)) == 1
	})
	for _, tile := range mapMessage(w, mapgen.Config{}.CenterTile()).Tiles {
		for _, e := range tile.Entities {
			if e.Creature != nil {
				assert.NotEqual(t, "A", e.Creature.Name)
			}
		}
	}
}

func TestMapMessage_ViewportAndFloor(t *testing.T) {
	w := model.NewWorld()
	center := model.Pos(100, 100, 7)
	w.SetTile(center, model.NewTile(model.NewEntity(defs.Item(1))))
	w.SetTile(center.Offset(9, 0), model.NewTile())
	w.SetTile(center.Offset(-9, 0), model.NewTile())
	w.SetTile(model.Pos(100, 100, 6), model.NewTile())

	m := mapMessage(w, center.At(3))
	require.Len(t, m.Tiles, 2)
	assert.Equal(t, center, m.Center.Model())
	assert.Equal(t, uint16(1), m.Tiles[0].Entities[0].Item)
	assert.Nil(t, m.Tiles[0].Entities[0].Creature)
}
