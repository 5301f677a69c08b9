package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"scrounge.ai/internal/sim/catalogs"
	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/tuning"
	"scrounge.ai/internal/sim/world"
)

// SQLiteIndex is the economy store and a queryable secondary index of
// engine events. Events are written by a background goroutine; economy
// saves are synchronous.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.EventLogEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvents atomic.Uint64
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropEventTotal uint64 `json:"drop_event_total"`
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
		db: db,
		// Faucets emit every few ticks; bursts must not stall the world loop.
		ch: make(chan world.EventLogEntry, 65536),
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
		"PRAGMA foreign_keys=ON;",
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
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS currency (
			name TEXT PRIMARY KEY,
			amount INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS gems (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			rarity TEXT NOT NULL,
			shape TEXT NOT NULL,
			growth REAL NOT NULL,
			size REAL NOT NULL,
			level INTEGER NOT NULL,
			is_growing INTEGER NOT NULL,
			is_offering INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			generation INTEGER NOT NULL,
			mode TEXT NOT NULL,
			pool TEXT,
			idx INTEGER,
			entity_id TEXT,
			in_zone INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_tick ON events(kind, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_id, tick);`,
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

func (s *SQLiteIndex) WriteEvent(entry world.EventLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- entry:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropEvents.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropEventTotal: s.dropEvents.Load(),
	}
}

// Load implements economy.Store.
func (s *SQLiteIndex) Load(ctx context.Context) (economy.State, error) {
	st := economy.State{Currency: map[string]int64{}}
	rows, err := s.db.QueryContext(ctx, `SELECT name, amount FROM currency`)
	if err != nil {
		return st, err
	}
	for rows.Next() {
		var name string
		var amount int64
		if err := rows.Scan(&name, &amount); err != nil {
			rows.Close()
			return st, err
		}
		st.Currency[name] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, type, rarity, shape, growth, size, level, is_growing, is_offering FROM gems ORDER BY id`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var g economy.Gem
		var growing, offering bool
		if err := rows.Scan(&g.ID, &g.Type, &g.Rarity, &g.Shape, &g.Growth, &g.Size, &g.Level, &growing, &offering); err != nil {
			return st, err
		}
		g.Placement = economy.PlacementFromFlags(growing, offering)
		st.Gems = append(st.Gems, g)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	st.Normalize()
	return st, nil
}

// Save implements economy.Store. The whole economy is replaced in one
// transaction.
func (s *SQLiteIndex) Save(ctx context.Context, st economy.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM currency`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM gems`); err != nil {
		return err
	}
	cur, err := tx.PrepareContext(ctx, `INSERT INTO currency(name,amount) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer cur.Close()
	for name, amount := range st.Currency {
		if _, err := cur.ExecContext(ctx, name, amount); err != nil {
			return err
		}
	}
	gem, err := tx.PrepareContext(ctx, `INSERT INTO gems(id,type,rarity,shape,growth,size,level,is_growing,is_offering) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer gem.Close()
	for _, g := range st.Gems {
		growing, offering := g.Placement.Flags()
		if _, err := gem.ExecContext(ctx, g.ID, g.Type, g.Rarity, g.Shape, g.Growth, g.Size, g.Level, growing, offering); err != nil {
			return fmt.Errorf("gem %s: %w", g.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('economy_saved_at',?)`, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertCatalogs records the gem catalog and the applied tuning so event
// rows can be interpreted later.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" && cats != nil {
		if b, err := os.ReadFile(filepath.Join(configDir, "gems.json")); err == nil {
			rows = append(rows, kv{name: "gems", digest: cats.Gems.Digest, json: b})
		}
	}
	if cats != nil {
		palette := map[string][]string{
			"types":    cats.Gems.TypePalette,
			"shapes":   cats.Gems.ShapePalette,
			"rarities": cats.Gems.RarityPalette,
		}
		if b, _ := json.Marshal(palette); len(b) > 0 {
			rows = append(rows, kv{name: "gems_palette", digest: cats.Gems.PaletteDigest, json: b})
		}
	}
	if b, err := json.Marshal(tune); err == nil {
		rows = append(rows, kv{name: "tuning", digest: tune.Digest(), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EventCounts returns the number of indexed events per kind.
func (s *SQLiteIndex) EventCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	insertEvent, _ := s.db.Prepare(`INSERT INTO events(tick,kind,generation,mode,pool,idx,entity_id,in_zone,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 250 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		_ = tx.Commit()
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

	// The single connection is shared with economy saves, so an open batch
	// is committed on a timer even when no further events arrive.
	flush := time.NewTicker(commitMaxWait)
	defer flush.Stop()

	for {
		select {
		case <-flush.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case e, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil || insertEvent == nil {
				continue
			}
			raw, _ := json.Marshal(e)
			if _, err := tx.Stmt(insertEvent).Exec(
				int64(e.Tick),
				e.Kind,
				int64(e.Generation),
				e.Mode,
				e.Pool,
				e.Index,
				e.EntityID,
				e.InZone,
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++
			if opCount >= commitEvery {
				commit()
			}
		}
	}
}
