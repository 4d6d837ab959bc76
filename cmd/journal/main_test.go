package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	persistlog "github.com/bpawel10/skyless/internal/persistence/log"
)

func writeJournal(t *testing.T, recs ...game.CommandRecord) []string {
	t.Helper()
	dir := t.TempDir()
	j := persistlog.NewJournal(dir)
	for _, r := range recs {
		require.NoError(t, j.RecordCommand(r))
	}
	require.NoError(t, j.Close())
	files, err := persistlog.ListFiles(dir)
	require.NoError(t, err)
	return files
}

func TestSummarize_CountsAndFilters(t *testing.T) {
	at := time.Now()
	to := model.Pos(1, 1, 7)
	files := writeJournal(t,
		game.CommandRecord{Run: "r1", Seq: 1, At: at, Command: game.CmdEmitEvent, Applied: true, Event: "systems_loaded"},
		game.CommandRecord{Run: "r1", Seq: 2, At: at, Command: game.CmdSetWorld, Depth: 1, Applied: true},
		game.CommandRecord{Run: "r1", Seq: 3, At: at, Command: game.CmdMoveEntity, Depth: 2, To: &to},
	)

	sum, err := summarize(files, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Entries)
	assert.Equal(t, []string{"r1"}, sum.Runs)
	assert.Equal(t, uint64(3), sum.LastSeq["r1"])
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.MaxDepth)
	assert.Equal(t, map[string]int{game.CmdEmitEvent: 1, game.CmdSetWorld: 1, game.CmdMoveEntity: 1}, sum.Commands)

	var out bytes.Buffer
	sum, err = summarize(files, game.CmdMoveEntity, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Entries)
	assert.Equal(t, map[string]int{game.CmdMoveEntity: 1}, sum.Commands)
	assert.Contains(t, out.String(), "r1/3 "+game.CmdMoveEntity)
	assert.Contains(t, out.String(), "applied=false")
	assert.Contains(t, out.String(), "to="+to.String())

	var report bytes.Buffer
	sum.write(&report)
	assert.Contains(t, report.String(), "entries=3")
}

func TestSummarize_RejectsOutOfOrderSeqs(t *testing.T) {
	at := time.Now()
	files := writeJournal(t,
		game.CommandRecord{Run: "r1", Seq: 5, At: at, Command: game.CmdEmitEvent},
		game.CommandRecord{Run: "r1", Seq: 4, At: at, Command: game.CmdEmitEvent},
	)
	_, err := summarize(files, "", nil)
	assert.ErrorContains(t, err, "out of order")
}

func TestSummarize_AcceptsDirectorySpanningRuns(t *testing.T) {
	at := time.Now()
	var recs []game.CommandRecord
	for _, run := range []string{"first", "second"} {
		for seq := uint64(1); seq <= 3; seq++ {
			recs = append(recs, game.CommandRecord{Run: run, Seq: seq, At: at, Command: game.CmdEmitEvent, Applied: true})
		}
	}
	files := writeJournal(t, recs...)

	sum, err := summarize(files, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Entries)
	assert.Equal(t, []string{"first", "second"}, sum.Runs)
	assert.Equal(t, map[string]uint64{"first": 3, "second": 3}, sum.LastSeq)

	var report bytes.Buffer
	sum.write(&report)
	assert.Contains(t, report.String(), "runs=2")
	assert.Contains(t, report.String(), "run second last_seq=3")
}
