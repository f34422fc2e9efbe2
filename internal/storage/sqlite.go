package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"fridge/internal/fridge"
	logx "fridge/pkg/logx"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

type sqliteStore struct {
	db   *sql.DB
	log  logx.Logger
	lock *flock.Flock

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	var lock *flock.Flock
	if cfg.Exclusive {
		var err error
		if lock, err = acquireLock(path); err != nil {
			return nil, err
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		unlock(lock)
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, lock: lock, pruneEvery: 500}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		unlock(lock)
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	log.Debug("sqlite opened", logx.String("path", path), logx.Bool("exclusive", lock != nil))
	return st, nil
}

func unlock(l *flock.Flock) {
	if l != nil {
		_ = l.Unlock()
	}
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `INSERT INTO schema_version(version) VALUES(?)`, schemaVersion)
		return err
	case err != nil:
		return err
	case v > schemaVersion:
		return fmt.Errorf("database schema v%d is newer than supported v%d", v, schemaVersion)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	err := s.db.Close()
	unlock(s.lock)
	return err
}

// --- entries ---

func (s *sqliteStore) PutEntry(ctx context.Context, e fridge.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries(id, name, created_at) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
		e.ID, e.Name, e.CreatedTime.UnixMilli())
	return err
}

func (s *sqliteStore) GetEntry(ctx context.Context, id string) (fridge.Entry, error) {
	var (
		name    string
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT name, created_at FROM entries WHERE id = ?`, id).Scan(&name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return fridge.Entry{}, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fridge.Entry{}, err
	}
	return fridge.RestoreEntry(id, name, time.UnixMilli(created)), nil
}

func (s *sqliteStore) ListEntries(ctx context.Context) ([]fridge.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM entries ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fridge.Entry
	for rows.Next() {
		var (
			id, name string
			created  int64
		)
		if err := rows.Scan(&id, &name, &created); err != nil {
			return nil, err
		}
		out = append(out, fridge.RestoreEntry(id, name, time.UnixMilli(created)))
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteEntry(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE entry_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := mustAffect(res, "entry", id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- items ---

const itemColumns = `id, entry_id, name, count, created_at, purchase_at, expire_at, presence, category_id, consumed_at, spoiled_at`

func (s *sqliteStore) PutItem(ctx context.Context, it fridge.Item) error {
	it = it.MakeReal()
	consumed, err := it.ConsumptionDate()
	if err != nil {
		return err
	}
	spoiled, err := it.SpoiledDate()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items(`+itemColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   entry_id=excluded.entry_id, name=excluded.name, count=excluded.count,
		   purchase_at=excluded.purchase_at, expire_at=excluded.expire_at,
		   presence=excluded.presence, category_id=excluded.category_id,
		   consumed_at=excluded.consumed_at, spoiled_at=excluded.spoiled_at`,
		it.ID, it.EntryID, it.Name, it.Count, it.CreatedTime.UnixMilli(),
		nullMillis(it.PurchaseTime), nullMillis(it.ExpireTime), string(it.Presence),
		nullStrPtr(it.CategoryID), nullMillis(consumed), nullMillis(spoiled),
	)
	return err
}

func (s *sqliteStore) GetItem(ctx context.Context, id string) (fridge.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fridge.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return it, err
}

// ListItems returns the items of one entry, or of all entries when entryID is empty.
func (s *sqliteStore) ListItems(ctx context.Context, entryID string) ([]fridge.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if entryID != "" {
		query += ` WHERE entry_id = ?`
		args = append(args, entryID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fridge.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "item", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (fridge.Item, error) {
	var (
		it                                fridge.Item
		presence                          string
		created                           int64
		purchase, expire, consumed, spoil sql.NullInt64
		category                          sql.NullString
	)
	err := sc.Scan(&it.ID, &it.EntryID, &it.Name, &it.Count, &created,
		&purchase, &expire, &presence, &category, &consumed, &spoil)
	if err != nil {
		return fridge.Item{}, err
	}
	it.CreatedTime = time.UnixMilli(created)
	it.PurchaseTime = millisPtr(purchase)
	it.ExpireTime = millisPtr(expire)
	it.Presence = fridge.Presence(presence)
	if category.Valid {
		it.CategoryID = &category.String
	}
	return fridge.RestoreItem(it, millisPtr(consumed), millisPtr(spoil)), nil
}

// --- stores & zones ---

func (s *sqliteStore) PutStore(ctx context.Context, st fridge.NearbyStore) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stores(id, name, lat, lon) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, lat=excluded.lat, lon=excluded.lon`,
		st.ID, st.Name, st.Point.Lat, st.Point.Lon)
	return err
}

func (s *sqliteStore) ListStores(ctx context.Context) ([]fridge.NearbyStore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, lat, lon FROM stores ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fridge.NearbyStore
	for rows.Next() {
		var st fridge.NearbyStore
		if err := rows.Scan(&st.ID, &st.Name, &st.Point.Lat, &st.Point.Lon); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteStore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "store", id)
}

func (s *sqliteStore) PutZone(ctx context.Context, z fridge.NearbyZone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO zones(id, name) VALUES(?,?) ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
		z.ID, z.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_points WHERE zone_id = ?`, z.ID); err != nil {
		return err
	}
	for i, p := range z.Points {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zone_points(zone_id, seq, lat, lon) VALUES(?,?,?,?)`,
			z.ID, i, p.Lat, p.Lon); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ListZones(ctx context.Context) ([]fridge.NearbyZone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT z.id, z.name, p.lat, p.lon
		   FROM zones z LEFT JOIN zone_points p ON p.zone_id = z.id
		  ORDER BY z.name, z.id, p.seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fridge.NearbyZone
	for rows.Next() {
		var (
			id, name string
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &lat, &lon); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].ID != id {
			out = append(out, fridge.NearbyZone{ID: id, Name: name})
		}
		if lat.Valid && lon.Valid {
			z := &out[len(out)-1]
			z.Points = append(z.Points, fridge.Point{Lat: lat.Float64, Lon: lon.Float64})
		}
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteZone(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_points WHERE zone_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := mustAffect(res, "zone", id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- prefs ---

func (s *sqliteStore) GetPref(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sqliteStore) PutPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prefs(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	return err
}

// --- audit ---

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor, action, target, ok, err, meta) VALUES(?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), nullStr(e.Actor), e.Action, nullStr(e.Target),
		boolInt(e.OK), nullStr(e.Error), nullStr(e.Meta),
	)
	return err
}

func (s *sqliteStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, actor, action, target, ok, err, meta FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e                        AuditEntry
			at                       string
			ok                       int
			actor, target, msg, meta sql.NullString
		)
		if err := rows.Scan(&at, &actor, &e.Action, &target, &ok, &msg, &meta); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Actor, e.Target, e.Error, e.Meta = actor.String, target.String, msg.String, meta.String
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- dedup ---

func (s *sqliteStore) PutDedup(ctx context.Context, key string, until time.Time) error {
	if key == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dedup(key, until) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET until=excluded.until`,
		key, until.UnixMilli(),
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if _, perr := s.db.ExecContext(pctx, `DELETE FROM dedup WHERE until < ?`, time.Now().UnixMilli()); perr != nil {
			s.log.Debug("dedup prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) GetDedup(ctx context.Context, key string) (time.Time, bool, error) {
	if key == "" {
		return time.Time{}, false, nil
	}
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT until FROM dedup WHERE key = ?`, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func mustAffect(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullStrPtr(v *string) any {
	if v == nil {
		return nil
	}
	return nullStr(*v)
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
