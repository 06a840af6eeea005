// Package sqlite provides a storage.Backend persisted in a SQLite database,
// shared by every process that opens the same file.
//
// Writes append to a changes table. Watchers learn about other processes'
// writes from fsnotify events on the database directory, with a slow poll as
// a fallback, and replay every change newer than the last version they saw.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
	"github.com/agentstation/eventdeck/pkg/storage"

	_ "modernc.org/sqlite"
)

// changeLogSize is how many change rows are kept for lagging watchers.
const changeLogSize = 1000

// Backend is a storage.Backend over a SQLite file.
type Backend struct {
	db     *sql.DB
	path   string
	logger *zerolog.Logger
	poll   time.Duration

	mu     sync.Mutex
	pokes  map[uint64]chan struct{}
	nextID uint64
	closed bool
}

var _ storage.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPollInterval sets how often watchers check for changes when no file
// event arrives. Defaults to one second.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.poll = d
		}
	}
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string, opts ...Option) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapResource("open", "database", path, err)
	}
	// One connection keeps the per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", constants.StorageBusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, errors.WrapResource("open", "database", path, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("migrate", "database", path, err)
	}

	b := &Backend{
		db:     db,
		path:   path,
		logger: logging.Component("storage.sqlite"),
		poll:   time.Second,
		pokes:  make(map[uint64]chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS changes (
			version INTEGER PRIMARY KEY AUTOINCREMENT,
			k TEXT NOT NULL,
			origin TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Name implements storage.Backend.
func (b *Backend) Name() string {
	return "sqlite"
}

// Path returns the database file.
func (b *Backend) Path() string {
	return b.path
}

// Load implements storage.Backend.
func (b *Backend) Load(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := b.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapStorage(b.Name(), key, err)
	}
	return v, true, nil
}

// Save implements storage.Backend.
func (b *Backend) Save(ctx context.Context, key, value, origin string) error {
	err := b.write(ctx, key, origin, func(tx *sql.Tx) (bool, error) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv(k, v) VALUES(?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
			key, value)
		return true, err
	})
	return errors.WrapStorage(b.Name(), key, err)
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key, origin string) error {
	err := b.write(ctx, key, origin, func(tx *sql.Tx) (bool, error) {
		res, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		return n > 0, err
	})
	return errors.WrapStorage(b.Name(), key, err)
}

// write runs mutate and, when it changed something, records the change in
// the same transaction.
func (b *Backend) write(ctx context.Context, key, origin string, mutate func(*sql.Tx) (bool, error)) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	changed, err := mutate(tx)
	if err != nil {
		return err
	}
	if changed {
		if _, err := tx.ExecContext(ctx, `INSERT INTO changes(k, origin) VALUES(?, ?)`, key, origin); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM changes WHERE version <= (SELECT MAX(version) FROM changes) - ?`,
			changeLogSize); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if changed {
		b.poke()
	}
	return nil
}

// poke wakes in-process watchers without waiting for a file event.
func (b *Backend) poke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.pokes {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch implements storage.Backend.
func (b *Backend) Watch(ctx context.Context, fn func(storage.Change)) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.ErrClosed
	}
	b.nextID++
	id := b.nextID
	poke := make(chan struct{}, 1)
	b.pokes[id] = poke
	b.mu.Unlock()

	last, err := b.latestVersion(ctx)
	if err != nil {
		b.dropPoke(id)
		return nil, errors.WrapStorage(b.Name(), "", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		b.logger.Warn().Err(err).Msg("File watcher unavailable, falling back to polling")
		watcher = nil
	} else if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		b.logger.Warn().Err(err).Str("path", b.path).Msg("Cannot watch database directory, falling back to polling")
		_ = watcher.Close()
		watcher = nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.watchLoop(ctx, watcher, poke, last, fn)
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
			b.dropPoke(id)
		})
	}
	return stop, nil
}

func (b *Backend) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, poke <-chan struct{}, last int64, fn func(storage.Change)) {
	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	base := filepath.Base(b.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			b.logger.Warn().Err(err).Msg("File watcher error")
			continue
		case <-poke:
		case <-ticker.C:
		}

		last = b.replay(ctx, last, fn)
	}
}

// replay delivers every change after version last and returns the newest
// version seen.
func (b *Backend) replay(ctx context.Context, last int64, fn func(storage.Change)) int64 {
	rows, err := b.db.QueryContext(ctx,
		`SELECT version, k, origin FROM changes WHERE version > ? ORDER BY version`, last)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Warn().Err(err).Msg("Failed to read changes")
		}
		return last
	}

	var changes []storage.Change
	for rows.Next() {
		var c storage.Change
		if err := rows.Scan(&last, &c.Key, &c.Origin); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to scan change")
			break
		}
		changes = append(changes, c)
	}
	_ = rows.Close()

	for _, c := range changes {
		if ctx.Err() != nil {
			break
		}
		fn(c)
	}
	return last
}

func (b *Backend) latestVersion(ctx context.Context) (int64, error) {
	var v sql.NullInt64
	if err := b.db.QueryRowContext(ctx, `SELECT MAX(version) FROM changes`).Scan(&v); err != nil {
		return 0, err
	}
	return v.Int64, nil
}

func (b *Backend) dropPoke(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pokes, id)
}

// Close closes the database. Watchers should be stopped first.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.db.Close()
}
