// Package indexdb keeps a queryable sqlite index of the command journal.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
)

// Records are keyed by (run, seq): seqs restart at 1 on every game run.
const schemaVersion = "2"

// SQLiteIndex is a game.Recorder. Records are queued and written by one
// goroutine in batched transactions; a full queue drops records.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan game.CommandRecord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTotal    atomic.Uint64
	writtenTotal atomic.Uint64
	failTotal    atomic.Uint64

	commitEvery   int
	commitMaxWait time.Duration
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
	WrittenTotal  uint64
	FailTotal     uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:            db,
		ch:            make(chan game.CommandRecord, 65536),
		commitEvery:   2000,
		commitMaxWait: time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		return err
	}
	var version string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case version != schemaVersion:
		// The index is rebuilt from new records; the journal keeps the history.
		if _, err := db.Exec(`DROP TABLE IF EXISTS commands;`); err != nil {
			return err
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			run TEXT NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			command TEXT NOT NULL,
			depth INTEGER NOT NULL,
			applied INTEGER NOT NULL,
			event TEXT,
			from_x INTEGER, from_y INTEGER, from_z INTEGER, from_stack INTEGER,
			to_x INTEGER, to_y INTEGER, to_z INTEGER, to_stack INTEGER,
			attribute TEXT,
			value_json TEXT,
			PRIMARY KEY (run, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_command ON commands(command);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_event ON commands(event);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_to ON commands(to_x, to_y, to_z);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordCommand queues rec. It never blocks the game.
func (s *SQLiteIndex) RecordCommand(rec game.CommandRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- rec:
	default:
		// Drop if the indexer falls behind; the journal remains the source of truth.
		s.dropTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropTotal.Load(),
		WrittenTotal:  s.writtenTotal.Load(),
		FailTotal:     s.failTotal.Load(),
	}
}

// CountCommands counts indexed records of command, or all records when
// command is empty. Records still queued are not counted.
func (s *SQLiteIndex) CountCommands(ctx context.Context, command string) (int, error) {
	var n int
	var err error
	if command == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands WHERE command = ?`, command).Scan(&n)
	}
	return n, err
}

// Ref addresses one indexed record.
type Ref struct {
	Run string
	Seq uint64
}

func (r Ref) String() string { return fmt.Sprintf("%s/%d", r.Run, r.Seq) }

// TouchedTile returns the records of applied commands targeting the tile at
// pos, oldest first.
func (s *SQLiteIndex) TouchedTile(ctx context.Context, pos model.Position, limit int) ([]Ref, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run, seq FROM commands WHERE applied = 1 AND to_x = ? AND to_y = ? AND to_z = ? ORDER BY rowid LIMIT ?`,
		pos.X, pos.Y, pos.Z, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ref
	for rows.Next() {
		var (
			ref Ref
			seq int64
		)
		if err := rows.Scan(&ref.Run, &seq); err != nil {
			return nil, err
		}
		ref.Seq = uint64(seq)
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Runs returns the run ids in the index, oldest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run FROM commands GROUP BY run ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(
		run,seq,at,command,depth,applied,event,
		from_x,from_y,from_z,from_stack,
		to_x,to_y,to_z,to_stack,
		attribute,value_json
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.failTotal.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	// Readers share the single connection, so an idle tx must not stay open.
	ticker := time.NewTicker(s.commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Since(lastCommit) >= s.commitMaxWait {
				commit()
			}
			continue
		case rec, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil || insert == nil {
				s.failTotal.Add(1)
				continue
			}
			if _, err := tx.Stmt(insert).Exec(rowArgs(rec)...); err != nil {
				s.failTotal.Add(1)
				rollback()
				continue
			}
			opCount++
			s.writtenTotal.Add(1)
			if opCount >= s.commitEvery || time.Since(lastCommit) >= s.commitMaxWait {
				commit()
			}
		}
	}
}

func rowArgs(rec game.CommandRecord) []any {
	var value any
	if rec.Value != nil {
		if b, err := json.Marshal(rec.Value); err == nil {
			value = string(b)
		}
	}
	fx, fy, fz, fs := posArgs(rec.From)
	tx, ty, tz, ts := posArgs(rec.To)
	return []any{
		rec.Run,
		int64(rec.Seq),
		rec.At.UTC().Format(time.RFC3339Nano),
		rec.Command,
		rec.Depth,
		rec.Applied,
		nullString(rec.Event),
		fx, fy, fz, fs,
		tx, ty, tz, ts,
		nullString(rec.Attribute),
		value,
	}
}

func posArgs(p *model.Position) (x, y, z, stack any) {
	if p == nil {
		return nil, nil, nil, nil
	}
	if i, ok := p.Stack(); ok {
		stack = int64(i)
	}
	return int64(p.X), int64(p.Y), int64(p.Z), stack
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
