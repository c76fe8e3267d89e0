package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"survey-categorizer/internal/diag"
)

// Event is one persisted diagnostic event.
type Event struct {
	bun.BaseModel `bun:"table:categorizer_events,alias:e"`
	ID            int64     `bun:"id,pk,autoincrement"`
	RunID         string    `bun:"run_id,notnull"`
	Severity      string    `bun:"severity,notnull"`
	Stage         string    `bun:"stage,notnull"`
	Message       string    `bun:"message,notnull"`
	Chunk         *int      `bun:"chunk"`
	Attempt       *int      `bun:"attempt"`
	Row           *int      `bun:"row_number"`
	Question      *int      `bun:"question_index"`
	Answer        *int      `bun:"answer_index"`
	Detail        string    `bun:"detail"`
	Error         string    `bun:"error"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// Store writes diagnostic events to Postgres. It implements diag.Sink.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// ConnectDB opens a pgdriver connection pool. pgdriver panics on a malformed dsn; that is
// reported as an error instead.
func ConnectDB(dsn string) (sqldb *sql.DB, err error) {
	defer func() {
		if r := recover(); r != nil {
			sqldb, err = nil, fmt.Errorf("invalid audit dsn: %v", r)
		}
	}()
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects to dsn and creates the events table if needed.
func Open(ctx context.Context, dsn string, debug bool) (*Store, error) {
	sqldb, err := ConnectDB(dsn)
	if err != nil {
		return nil, err
	}
	s := NewStore(NewDB(sqldb, debug))
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Event)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Emit persists e. Insert failures are logged and otherwise ignored so auditing never
// interrupts a run.
func (s *Store) Emit(ctx context.Context, e diag.Event) {
	rec := s.record(e)
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		log.Warn().Err(err).Str("stage", e.Stage).Msg("Error storing audit event")
	}
}

// EventsForRun returns the stored events of one run in insertion order.
func (s *Store) EventsForRun(ctx context.Context, runID string) ([]Event, error) {
	var events []Event
	err := s.eventsQuery(&events, runID).Scan(ctx)
	return events, err
}

func (s *Store) eventsQuery(dest *[]Event, runID string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(dest).
		Where("run_id = ?", runID).
		OrderExpr("id ASC")
}

func (s *Store) record(e diag.Event) *Event {
	rec := &Event{
		RunID:     e.RunID,
		Severity:  e.Severity.String(),
		Stage:     e.Stage,
		Message:   e.Message,
		Chunk:     index(e.Chunk),
		Attempt:   index(e.Attempt),
		Row:       index(e.Row),
		Question:  index(e.Question),
		Answer:    index(e.Answer),
		Detail:    e.Detail,
		CreatedAt: s.now().UTC(),
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	return rec
}

func index(v int) *int {
	if v == diag.NoIndex {
		return nil
	}
	return &v
}
