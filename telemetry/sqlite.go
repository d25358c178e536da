// Package telemetry provides durable storage and a read-only inspection
// surface for the memory subsystem's counters: a kernel.Stats
// implementation backed by SQLite (grounded on akita's
// tracing/sqlite.go) and a debug HTTP server exposing the frame table
// and fault counters as JSON (grounded on akita's monitoring/monitor.go).
// Neither is exercised by the fault handler's hot path directly; both
// are opt-in collaborators a host process can wire in alongside the
// kernel package's in-memory Stats.
package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteSink is a kernel.Stats implementation that batches counter
// deltas and periodically flushes them to a SQLite database, the way
// akita's SQLiteTraceWriter batches Task rows before writing them.
type SQLiteSink struct {
	mu sync.Mutex

	*sql.DB
	insertStatement *sql.Stmt

	dbName    string
	batchSize int

	ticks            uint64
	totalPageFaults  uint64
	sharedPageFaults uint64

	pendingEvents []counterEvent
}

type counterEvent struct {
	id   string
	kind string
	tick uint64
}

// NewSQLiteSink creates a sink backed by path. If path is empty a unique
// name is generated, matching SQLiteTraceWriter's behaviour when no
// explicit db name is supplied.
func NewSQLiteSink(path string) *SQLiteSink {
	s := &SQLiteSink{
		dbName:    path,
		batchSize: 256,
	}

	atexit.Register(func() { s.Flush() })

	return s
}

// Init establishes the database connection and creates the counter_event
// table, mirroring SQLiteTraceWriter.Init's create-then-prepare sequence.
func (s *SQLiteSink) Init() error {
	if s.dbName == "" {
		s.dbName = "nachosvm_stats_" + xid.New().String()
	}

	filename := s.dbName + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("telemetry: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("telemetry: opening %s: %w", filename, err)
	}
	s.DB = db

	if err := s.mustExecute(`
		CREATE TABLE counter_event (
			id   VARCHAR(200) NOT NULL,
			kind VARCHAR(32)  NOT NULL,
			tick INTEGER      NOT NULL
		);
	`); err != nil {
		return err
	}

	stmt, err := s.Prepare(`INSERT INTO counter_event (id, kind, tick) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("telemetry: preparing insert: %w", err)
	}
	s.insertStatement = stmt

	return nil
}

func (s *SQLiteSink) mustExecute(query string) error {
	_, err := s.Exec(query)
	return err
}

// Ticks reports the virtual clock this sink has observed via Tick.
func (s *SQLiteSink) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Tick advances the virtual clock by one, the SQLite-backed counterpart
// of kernel.InMemoryStats.Tick.
func (s *SQLiteSink) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	return s.ticks
}

// AddPageFault records one page-fault event, buffering it the way
// SQLiteTraceWriter.Write buffers a Task before a batched Flush.
func (s *SQLiteSink) AddPageFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalPageFaults++
	s.pendingEvents = append(s.pendingEvents, counterEvent{id: xid.New().String(), kind: "page_fault", tick: s.ticks})
	if len(s.pendingEvents) >= s.batchSize {
		s.flushLocked()
	}
}

// AddSharedPageFault records one shared-page-fault event.
func (s *SQLiteSink) AddSharedPageFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sharedPageFaults++
	s.pendingEvents = append(s.pendingEvents, counterEvent{id: xid.New().String(), kind: "shared_page_fault", tick: s.ticks})
	if len(s.pendingEvents) >= s.batchSize {
		s.flushLocked()
	}
}

// TotalPageFaults reports the running total for the debug HTTP server.
func (s *SQLiteSink) TotalPageFaults() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPageFaults
}

// SharedPageFaults reports the running total for the debug HTTP server.
func (s *SQLiteSink) SharedPageFaults() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sharedPageFaults
}

// Flush writes every buffered event to the database, matching
// SQLiteTraceWriter.Flush's begin/insert-each/commit shape.
func (s *SQLiteSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *SQLiteSink) flushLocked() {
	if len(s.pendingEvents) == 0 || s.insertStatement == nil {
		return
	}

	_, _ = s.Exec("BEGIN TRANSACTION")
	for _, ev := range s.pendingEvents {
		if _, err := s.insertStatement.Exec(ev.id, ev.kind, ev.tick); err != nil {
			panic(err)
		}
	}
	_, _ = s.Exec("COMMIT TRANSACTION")

	s.pendingEvents = nil
}
