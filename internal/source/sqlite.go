package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agis/bookcal/internal/contract"
)

var (
	ErrBuildQuery = errors.New("build query")
	ErrQuery      = errors.New("query")
	ErrNoSnapshot = errors.New("no snapshot imported")
)

var (
	cacheDBMu sync.Mutex
	cacheDBs  = map[string]*sql.DB{}
)

var cacheSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		imported_at INTEGER NOT NULL,
		booking_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		start_unix INTEGER,
		status TEXT NOT NULL,
		professional TEXT NOT NULL,
		professional_name TEXT NOT NULL,
		service TEXT NOT NULL,
		service_name TEXT NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_start ON bookings (start_unix)`,
	`CREATE TABLE IF NOT EXISTS working_hours (
		snapshot_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`,
}

// SnapshotInfo describes the snapshot currently held by a cache database.
type SnapshotInfo struct {
	ID         string    `json:"id"`
	Origin     string    `json:"origin"`
	ImportedAt time.Time `json:"imported_at"`
	Bookings   int       `json:"bookings"`
	HasHours   bool      `json:"has_working_hours"`
	Path       string    `json:"path"`
}

// SQLiteSource serves the most recent snapshot imported into a local cache.
type SQLiteSource struct {
	Path string
}

func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{Path: strings.TrimSpace(path)}
}

func cacheDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// openCacheDB returns one handle per path and applies the schema on first use.
func openCacheDB(path string) (*sql.DB, error) {
	cacheDBMu.Lock()
	defer cacheDBMu.Unlock()
	if db, ok := cacheDBs[path]; ok {
		return db, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create cache dir: %v", ErrUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite", cacheDSN(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open cache: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range cacheSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply cache schema: %v", ErrUnavailable, err)
		}
	}
	cacheDBs[path] = db
	return db, nil
}

func (s *SQLiteSource) db() (*sql.DB, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("%w: no cache database configured", ErrUnavailable)
	}
	return openCacheDB(s.Path)
}

func (s *SQLiteSource) Doctor(ctx context.Context) ([]contract.DoctorCheck, error) {
	db, err := s.db()
	if err != nil {
		return []contract.DoctorCheck{{Name: "cache_db", Status: "fail", Message: err.Error()}}, err
	}
	checks := []contract.DoctorCheck{{Name: "cache_db", Status: "ok", Message: s.Path}}
	if err := db.PingContext(ctx); err != nil {
		checks[0] = contract.DoctorCheck{Name: "cache_db", Status: "fail", Message: err.Error()}
		return checks, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	info, err := s.Info(ctx)
	if err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "cache_snapshot", Status: "fail", Message: err.Error()})
		return checks, err
	}
	checks = append(checks, contract.DoctorCheck{
		Name:    "cache_snapshot",
		Status:  "ok",
		Message: fmt.Sprintf("%d bookings imported %s", info.Bookings, info.ImportedAt.Format(time.RFC3339)),
	})
	return checks, nil
}

func (s *SQLiteSource) Info(ctx context.Context) (SnapshotInfo, error) {
	db, err := s.db()
	if err != nil {
		return SnapshotInfo{}, err
	}
	query, args, err := sq.Select("s.id", "s.origin", "s.imported_at", "s.booking_count", "COUNT(w.snapshot_id)").
		From("snapshots s").
		LeftJoin("working_hours w ON w.snapshot_id = s.id").
		GroupBy("s.id").
		OrderBy("s.imported_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: Info - build query: %v", ErrBuildQuery, err)
	}
	var (
		info     SnapshotInfo
		imported int64
		hours    int
	)
	err = db.QueryRowContext(ctx, query, args...).Scan(&info.ID, &info.Origin, &imported, &info.Bookings, &hours)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, ErrNoSnapshot
	}
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: Info: %v", ErrQuery, err)
	}
	info.ImportedAt = time.Unix(imported, 0).UTC()
	info.HasHours = hours > 0
	info.Path = s.Path
	return info, nil
}

// Import replaces the cache contents with snap in a single transaction.
func (s *SQLiteSource) Import(ctx context.Context, origin string, snap Snapshot) (SnapshotInfo, error) {
	db, err := s.db()
	if err != nil {
		return SnapshotInfo{}, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: Import - begin: %v", ErrQuery, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"bookings", "working_hours", "snapshots"} {
		query, args, err := sq.Delete(table).ToSql()
		if err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - build query: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - clear %s: %v", ErrQuery, table, err)
		}
	}

	info := SnapshotInfo{
		ID:         uuid.NewString(),
		Origin:     strings.TrimSpace(origin),
		ImportedAt: time.Now().UTC().Truncate(time.Second),
		Path:       s.Path,
	}
	seen := make(map[string]bool, len(snap.Bookings))
	for _, b := range snap.Bookings {
		id := b.ID
		if id == "" || seen[id] {
			id = uuid.NewString()
			b.ID = id
		}
		seen[id] = true
		payload, err := json.Marshal(b)
		if err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - encode %s: %v", ErrDecode, id, err)
		}
		var start any
		if b.HasStart() {
			start = b.StartTime.Unix()
		}
		query, args, err := sq.Insert("bookings").
			Columns("id", "snapshot_id", "start_unix", "status", "professional", "professional_name", "service", "service_name", "payload").
			Values(id, info.ID, start, string(b.Status),
				strings.ToLower(b.Professional.ID), strings.ToLower(b.Professional.Name),
				strings.ToLower(b.Service.ID), strings.ToLower(b.Service.Name), string(payload)).
			ToSql()
		if err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - build query: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - insert %s: %v", ErrQuery, id, err)
		}
		info.Bookings++
	}

	if snap.WorkingHours != nil {
		payload, err := json.Marshal(snap.WorkingHours)
		if err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - encode working hours: %v", ErrDecode, err)
		}
		query, args, err := sq.Insert("working_hours").Columns("snapshot_id", "payload").Values(info.ID, string(payload)).ToSql()
		if err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - build query: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return SnapshotInfo{}, fmt.Errorf("%w: Import - insert working hours: %v", ErrQuery, err)
		}
		info.HasHours = true
	}

	query, args, err := sq.Insert("snapshots").
		Columns("id", "origin", "imported_at", "booking_count").
		Values(info.ID, info.Origin, info.ImportedAt.Unix(), info.Bookings).
		ToSql()
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: Import - build query: %v", ErrBuildQuery, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: Import - insert snapshot: %v", ErrQuery, err)
	}
	if err := tx.Commit(); err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: Import - commit: %v", ErrQuery, err)
	}
	return info, nil
}

func (s *SQLiteSource) ListBookings(ctx context.Context, f Filter) ([]contract.Booking, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	builder := sq.Select("payload").From("bookings").OrderBy("start_unix", "id")
	if !f.From.IsZero() {
		builder = builder.Where(sq.GtOrEq{"start_unix": f.From.Unix()})
	}
	if !f.To.IsZero() {
		builder = builder.Where(sq.LtOrEq{"start_unix": f.To.Unix()})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, strings.ToLower(strings.TrimSpace(string(st))))
		}
		builder = builder.Where(sq.Eq{"LOWER(status)": statuses})
	}
	if len(f.Professionals) > 0 {
		keys := lowered(f.Professionals)
		builder = builder.Where(sq.Or{sq.Eq{"professional": keys}, sq.Eq{"professional_name": keys}})
	}
	if len(f.Services) > 0 {
		keys := lowered(f.Services)
		builder = builder.Where(sq.Or{sq.Eq{"service": keys}, sq.Eq{"service_name": keys}})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListBookings - build query: %v", ErrBuildQuery, err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListBookings: %v", ErrQuery, err)
	}
	defer rows.Close()

	out := []contract.Booking{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: ListBookings - scan: %v", ErrQuery, err)
		}
		var b contract.Booking
		if err := json.Unmarshal([]byte(payload), &b); err != nil {
			return nil, fmt.Errorf("%w: cached booking: %v", ErrDecode, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListBookings: %v", ErrQuery, err)
	}
	return f.Apply(out), nil
}

func (s *SQLiteSource) GetBooking(ctx context.Context, id string) (*contract.Booking, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	query, args, err := sq.Select("payload").From("bookings").Where(sq.Eq{"id": strings.TrimSpace(id)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBooking - build query: %v", ErrBuildQuery, err)
	}
	var payload string
	err = db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetBooking: %v", ErrQuery, err)
	}
	var b contract.Booking
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, fmt.Errorf("%w: cached booking: %v", ErrDecode, err)
	}
	return &b, nil
}

func (s *SQLiteSource) WorkingHours(ctx context.Context) (*contract.WorkingHours, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	query, args, err := sq.Select("payload").From("working_hours").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: WorkingHours - build query: %v", ErrBuildQuery, err)
	}
	var payload string
	err = db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: WorkingHours: %v", ErrQuery, err)
	}
	var wh contract.WorkingHours
	if err := json.Unmarshal([]byte(payload), &wh); err != nil {
		return nil, fmt.Errorf("%w: cached working hours: %v", ErrDecode, err)
	}
	return &wh, nil
}

func lowered(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if v := strings.ToLower(strings.TrimSpace(it)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
