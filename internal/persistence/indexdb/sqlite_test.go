package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
)

type item uint16

func (item) AttributeName() string { return "item" }

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan game.CommandRecord, 1)}
	s.ch <- game.CommandRecord{Seq: 1}

	require.NoError(t, s.RecordCommand(game.CommandRecord{Seq: 2}))
	require.NoError(t, s.RecordCommand(game.CommandRecord{Seq: 3}))

	st := s.Stats()
	assert.Equal(t, uint64(2), st.DropTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestSQLiteIndex_RecordsAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "skyless.sqlite")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	from := model.Pos(10, 10, 7).At(1)
	to := model.Pos(11, 10, 7)
	lever := model.Pos(12, 8, 7).At(1)
	recs := []game.CommandRecord{
		{Run: "r1", Seq: 1, At: at, Command: game.CmdEmitEvent, Applied: true, Event: "systems_loaded"},
		{Run: "r1", Seq: 2, At: at, Command: game.CmdMoveEntity, Depth: 1, Applied: true, From: &from, To: &to},
		{Run: "r1", Seq: 3, At: at, Command: game.CmdSetEntityAttribute, Depth: 2, Applied: true, To: &lever, Attribute: "item", Value: item(2773)},
		{Run: "r1", Seq: 4, At: at, Command: game.CmdMoveEntity, Depth: 1, From: &from, To: &to},
	}
	for _, r := range recs {
		require.NoError(t, idx.RecordCommand(r))
	}
	require.NoError(t, idx.Close())
	// Recording after close is a no-op.
	require.NoError(t, idx.RecordCommand(recs[0]))

	idx, err = OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	all, err := idx.CountCommands(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, all)
	moves, err := idx.CountCommands(ctx, game.CmdMoveEntity)
	require.NoError(t, err)
	assert.Equal(t, 2, moves)

	refs, err := idx.TouchedTile(ctx, to, 0)
	require.NoError(t, err)
	assert.Equal(t, []Ref{{Run: "r1", Seq: 2}}, refs)
	assert.Equal(t, "r1/2", refs[0].String())

	var value string
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT value_json FROM commands WHERE run = 'r1' AND seq = 3`).Scan(&value))
	assert.Equal(t, "2773", value)

	var version string
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version))
	assert.Equal(t, schemaVersion, version)
}

func TestSQLiteIndex_RunsDoNotOverwriteEachOther(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skyless.sqlite")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tile := model.Pos(5, 5, 7)

	// Two processes, each numbering its commands from 1.
	for _, run := range []string{"first", "second"} {
		idx, err := OpenSQLite(path)
		require.NoError(t, err)
		for seq := uint64(1); seq <= 3; seq++ {
			require.NoError(t, idx.RecordCommand(game.CommandRecord{
				Run: run, Seq: seq, At: at, Command: game.CmdAddEntity, Applied: true, To: &tile,
			}))
		}
		require.NoError(t, idx.Close())
	}

	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	n, err := idx.CountCommands(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	runs, err := idx.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, runs)

	refs, err := idx.TouchedTile(ctx, tile, 0)
	require.NoError(t, err)
	assert.Equal(t, []Ref{
		{Run: "first", Seq: 1}, {Run: "first", Seq: 2}, {Run: "first", Seq: 3},
		{Run: "second", Seq: 1}, {Run: "second", Seq: 2}, {Run: "second", Seq: 3},
	}, refs)
}

func TestOpenSQLite_ReplacesOutdatedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skyless.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`INSERT INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE commands (seq INTEGER PRIMARY KEY, at TEXT NOT NULL, command TEXT NOT NULL);`,
		`INSERT INTO commands(seq,at,command) VALUES(1,'x','emit_event');`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.CountCommands(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, idx.RecordCommand(game.CommandRecord{Run: "r", Seq: 1, Command: game.CmdEmitEvent}))
}

func TestOpenSQLite_RejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
