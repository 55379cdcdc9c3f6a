package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/playperu/spotguess/internal/spotguess"
)

// Store is the libSQL-backed catalog. The schema lives in internal/migrations.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) ListMaps(ctx context.Context) ([]spotguess.MapDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_image, natural_w, natural_h
		FROM maps
		ORDER BY position, name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying maps: %w", err)
	}
	defer rows.Close()

	maps := []spotguess.MapDefinition{}
	for rows.Next() {
		var m spotguess.MapDefinition
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayImageRef, &m.NaturalSize.W, &m.NaturalSize.H); err != nil {
			return nil, fmt.Errorf("scanning map: %w", err)
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

func (s *Store) ListSpots(ctx context.Context) ([]spotguess.Spot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, map_name, json(correct_points), tier0, tier1, tier2
		FROM spots
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying spots: %w", err)
	}
	defer rows.Close()

	spots := []spotguess.Spot{}
	for rows.Next() {
		sp, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (s *Store) GetSpot(ctx context.Context, id string) (spotguess.Spot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, map_name, json(correct_points), tier0, tier1, tier2
		FROM spots
		WHERE id = ?
	`, id)
	sp, err := scanSpot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sp, ErrNotFound
	}
	return sp, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpot(r scanner) (spotguess.Spot, error) {
	var (
		sp     spotguess.Spot
		points string
	)
	err := r.Scan(&sp.ID, &sp.MapName, &points, &sp.Images.Tier0, &sp.Images.Tier1, &sp.Images.Tier2)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sp, err
		}
		return sp, fmt.Errorf("scanning spot: %w", err)
	}
	if err := sonic.UnmarshalString(points, &sp.CorrectPoints); err != nil {
		return sp, fmt.Errorf("decoding points of spot %s: %w", sp.ID, err)
	}
	return sp, nil
}

// Counts reports how many maps and spots are stored.
func (s *Store) Counts(ctx context.Context) (maps, spots int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM maps), (SELECT COUNT(*) FROM spots)
	`).Scan(&maps, &spots)
	return maps, spots, err
}

// PutMap inserts or replaces a map. position orders the map list.
func (s *Store) PutMap(ctx context.Context, m spotguess.MapDefinition, position int) error {
	return putMap(ctx, s.db, m, position)
}

func (s *Store) PutSpot(ctx context.Context, sp spotguess.Spot) error {
	return putSpot(ctx, s.db, sp)
}

func (s *Store) DeleteSpot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM spots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func putMap(ctx context.Context, ex execer, m spotguess.MapDefinition, position int) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO maps (id, name, display_image, natural_w, natural_h, position)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			display_image = excluded.display_image,
			natural_w = excluded.natural_w,
			natural_h = excluded.natural_h,
			position = excluded.position
	`, m.ID, m.Name, m.DisplayImageRef, m.NaturalSize.W, m.NaturalSize.H, position)
	if err != nil {
		return fmt.Errorf("storing map %q: %w", m.ID, err)
	}
	return nil
}

func putSpot(ctx context.Context, ex execer, sp spotguess.Spot) error {
	points, err := sonic.MarshalString(sp.CorrectPoints)
	if err != nil {
		return fmt.Errorf("encoding points of spot %s: %w", sp.ID, err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO spots (id, map_name, correct_points, tier0, tier1, tier2)
		VALUES (?, ?, jsonb(?), ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			map_name = excluded.map_name,
			correct_points = excluded.correct_points,
			tier0 = excluded.tier0,
			tier1 = excluded.tier1,
			tier2 = excluded.tier2
	`, sp.ID, sp.MapName, points, sp.Images.Tier0, sp.Images.Tier1, sp.Images.Tier2)
	if err != nil {
		return fmt.Errorf("storing spot %s: %w", sp.ID, err)
	}
	return nil
}

// Import writes every map and spot of m in one transaction. Existing rows
// with the same ids are replaced; rows not in m are kept.
func (s *Store) Import(ctx context.Context, m Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	for i, mp := range m.MapDefinitions() {
		if err := putMap(ctx, tx, mp, i); err != nil {
			return err
		}
	}
	for _, sp := range m.SpotList() {
		if err := putSpot(ctx, tx, sp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
