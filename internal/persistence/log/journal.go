// Package log persists the command journal: one compressed JSON line per
// command the game applied or skipped. The journal is diagnostic output and is
// never loaded back into a game.
package log

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/oklog/ulid/v2"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
)

const journalPrefix = "journal"

// Journal is a game.Recorder writing to <dir>/journal-*.jsonl.zst.
type Journal struct {
	w *JSONLZstdWriter

	mu      sync.Mutex
	entropy io.Reader
}

func NewJournal(dir string) *Journal {
	return &Journal{
		w:       NewJSONLZstdWriter(dir, journalPrefix),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

type line struct {
	ID string `json:"id"`
	game.CommandRecord
}

func (j *Journal) RecordCommand(rec game.CommandRecord) error {
	j.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(rec.At), j.entropy)
	j.mu.Unlock()
	if err != nil {
		return fmt.Errorf("journal id: %w", err)
	}
	return j.w.Write(line{ID: id.String(), CommandRecord: rec})
}

func (j *Journal) Close() error { return j.w.Close() }

// Entry is one decoded journal line. Value keeps the attribute as raw JSON
// since attribute types are open.
type Entry struct {
	ID        string          `json:"id"`
	Run       string          `json:"run"`
	Seq       uint64          `json:"seq"`
	At        time.Time       `json:"at"`
	Command   string          `json:"command"`
	Depth     int             `json:"depth"`
	Applied   bool            `json:"applied"`
	Event     string          `json:"event,omitempty"`
	From      *model.Position `json:"from,omitempty"`
	To        *model.Position `json:"to,omitempty"`
	Attribute string          `json:"attribute,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// ListFiles returns the journal files in dir, oldest first.
func ListFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, journalPrefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadFile calls fn for every entry of one journal file, in order.
func ReadFile(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
