// Package session implements the database-client-library side of spec
// §4.1: a single live MySQL connection with open/reopen/health-probe/
// age-tracking semantics. Query execution is a thin pass-through over
// database/sql — the pool core never reasons about SQL.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Endpoint is the (host, port, user, password, db) tuple captured at open
// time, per spec §3, so that Reopen needs no arguments.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
}

// DSN builds the go-sql-driver/mysql data source name for this endpoint.
func (e Endpoint) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=false",
		e.Username, e.Password, e.Host, e.Port, e.DBName)
}

// Session is a single logical MySQL connection. A Session is owned
// exclusively by one holder at a time: the pool's idle queue, or a live
// Handle. There is no shared ownership — none of Session's methods need to
// guard against concurrent callers from different goroutines, only against
// the pool's own background goroutines racing a session's liveness fields
// (Healthy/Touch both update last_active).
type Session interface {
	// Open establishes the underlying connection to endpoint, storing it
	// for future Reopen calls, and sets last_active. Calling Open on an
	// already-open Session closes it first.
	Open(ctx context.Context, endpoint Endpoint) error

	// Reopen closes (ignoring close errors) and reopens using the stored
	// endpoint. Updates last_active on success.
	Reopen(ctx context.Context) error

	// Healthy performs a cheap server-side liveness probe. It must not
	// mutate session state beyond refreshing last_active on success.
	Healthy(ctx context.Context) error

	// Closed reports whether the underlying driver handle has already
	// been released (by Close, or by a failed Open/Reopen).
	Closed() bool

	// Close releases the underlying driver handle.
	Close() error

	// IdleFor returns now - last_active.
	IdleFor() time.Duration

	// Touch sets last_active to now.
	Touch()

	// Endpoint returns the endpoint this session was opened against.
	Endpoint() Endpoint

	// Execute passes text through to the driver, returning the driver's
	// result. Errors are returned, never thrown/panicked through the
	// session boundary.
	Execute(ctx context.Context, text string, args ...any) (sql.Result, error)

	// Query passes text through to the driver, returning a result set, or
	// a nil *sql.Rows and a non-nil error on driver failure.
	Query(ctx context.Context, text string, args ...any) (*sql.Rows, error)
}

// mysqlSession is the go-sql-driver/mysql-backed Session implementation.
// It wraps a *sql.DB pinned to exactly one physical connection
// (SetMaxOpenConns(1)) — database/sql's own pooling is not in play here;
// the pool core in internal/pool owns pooling, and this type supplies it
// with one connection's worth of client-library plumbing, as spec §1
// requires ("the core only requires a Session abstraction").
type mysqlSession struct {
	mu         sync.Mutex
	db         *sql.DB
	endpoint   Endpoint
	lastActive time.Time
	closed     bool
}

// New returns a Session with no open connection. Call Open before using it.
func New() Session {
	return &mysqlSession{closed: true}
}

// sqlOpen is sql.Open, indirected so tests can substitute a sqlmock-backed
// *sql.DB without a live server.
var sqlOpen = sql.Open

func (s *mysqlSession) Open(ctx context.Context, endpoint Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed && s.db != nil {
		s.db.Close()
		s.db = nil
		s.closed = true
	}

	db, err := sqlOpen("mysql", endpoint.DSN())
	if err != nil {
		return fmt.Errorf("opening mysql session: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging mysql session: %w", err)
	}

	s.db = db
	s.endpoint = endpoint
	s.lastActive = time.Now()
	s.closed = false
	return nil
}

func (s *mysqlSession) Reopen(ctx context.Context) error {
	s.mu.Lock()
	endpoint := s.endpoint
	if s.db != nil {
		s.db.Close()
	}
	s.db = nil
	s.closed = true
	s.mu.Unlock()

	return s.Open(ctx, endpoint)
}

func (s *mysqlSession) Healthy(ctx context.Context) error {
	s.mu.Lock()
	db := s.db
	closed := s.closed
	s.mu.Unlock()

	if closed || db == nil {
		return fmt.Errorf("session is closed")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}

	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *mysqlSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *mysqlSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.db == nil {
		s.closed = true
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.closed = true
	return err
}

func (s *mysqlSession) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActive)
}

func (s *mysqlSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

func (s *mysqlSession) Endpoint() Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

func (s *mysqlSession) Execute(ctx context.Context, text string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	db := s.db
	closed := s.closed
	s.mu.Unlock()
	if closed || db == nil {
		return nil, fmt.Errorf("session is closed")
	}

	res, err := db.ExecContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
	return res, nil
}

func (s *mysqlSession) Query(ctx context.Context, text string, args ...any) (*sql.Rows, error) {
	s.mu.Lock()
	db := s.db
	closed := s.closed
	s.mu.Unlock()
	if closed || db == nil {
		return nil, fmt.Errorf("session is closed")
	}

	rows, err := db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
	return rows, nil
}
