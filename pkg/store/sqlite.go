package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homescout/pkg/db"
	"homescout/pkg/model"
)

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Areas ---

const areaColumns = `identifier, name, postcode, lat, lon, status, commute, amenities, nature, crime, score, error_detail, last_attempt_at, explored_at, position, created_at`

func (s *SQLiteStore) GetArea(ctx context.Context, identifier string) (*model.Area, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+areaColumns+` FROM areas WHERE identifier = ?`, identifier)

	area, err := scanArea(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return area, nil
}

func (s *SQLiteStore) SaveArea(ctx context.Context, area *model.Area) error {
	commute, err := marshalOpt(area.Commute)
	if err != nil {
		return err
	}
	amenities, err := marshalOpt(area.Amenities)
	if err != nil {
		return err
	}
	nature, err := marshalOpt(area.Nature)
	if err != nil {
		return err
	}
	crime, err := marshalOpt(area.Crime)
	if err != nil {
		return err
	}
	score, err := marshalOpt(area.Score)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO areas (identifier, name, postcode, lat, lon, status, commute, amenities, nature, crime, score, error_detail, last_attempt_at, explored_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			name = excluded.name,
			postcode = excluded.postcode,
			lat = excluded.lat,
			lon = excluded.lon,
			status = excluded.status,
			commute = excluded.commute,
			amenities = excluded.amenities,
			nature = excluded.nature,
			crime = excluded.crime,
			score = excluded.score,
			error_detail = excluded.error_detail,
			last_attempt_at = excluded.last_attempt_at,
			explored_at = excluded.explored_at,
			position = excluded.position`,
		area.Identifier, area.Name, area.Postcode, area.Coordinate.Lat, area.Coordinate.Lon,
		string(area.Status), commute, amenities, nature, crime, score,
		nullString(area.ErrorDetail), nullTime(area.LastAttemptAt), nullTime(area.ExploredAt),
		area.Position)
	return err
}

func (s *SQLiteStore) ListAreas(ctx context.Context) ([]*model.Area, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+areaColumns+` FROM areas ORDER BY position, identifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*model.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

func (s *SQLiteStore) NextPending(ctx context.Context) (*model.Area, error) {
	// Failed areas queue behind everything else so one broken data source
	// cannot starve areas that have never been tried.
	row := s.db.QueryRowContext(ctx,
		`SELECT `+areaColumns+` FROM areas WHERE status != ?
		 ORDER BY CASE WHEN status = ? THEN 1 ELSE 0 END, position, identifier LIMIT 1`,
		string(model.StatusComplete), string(model.StatusFailed))

	area, err := scanArea(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Queue exhausted
		}
		return nil, err
	}
	return area, nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM areas GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(row rowScanner) (*model.Area, error) {
	var a model.Area
	var status string
	var commute, amenities, nature, crime, score, errDetail sql.NullString
	var lastAttempt, explored, created sql.NullTime

	err := row.Scan(
		&a.Identifier, &a.Name, &a.Postcode, &a.Coordinate.Lat, &a.Coordinate.Lon,
		&status, &commute, &amenities, &nature, &crime, &score,
		&errDetail, &lastAttempt, &explored, &a.Position, &created,
	)
	if err != nil {
		return nil, err
	}

	a.Status = model.Status(status)
	if errDetail.Valid {
		a.ErrorDetail = errDetail.String
	}
	if lastAttempt.Valid {
		a.LastAttemptAt = lastAttempt.Time
	}
	if explored.Valid {
		a.ExploredAt = explored.Time
	}
	if created.Valid {
		a.CreatedAt = created.Time
	}

	if err := unmarshalOpt(commute, &a.Commute); err != nil {
		return nil, err
	}
	if err := unmarshalOpt(amenities, &a.Amenities); err != nil {
		return nil, err
	}
	if err := unmarshalOpt(nature, &a.Nature); err != nil {
		return nil, err
	}
	if err := unmarshalOpt(crime, &a.Crime); err != nil {
		return nil, err
	}
	if err := unmarshalOpt(score, &a.Score); err != nil {
		return nil, err
	}

	return &a, nil
}

// marshalOpt serializes an optional record pointer to a nullable TEXT column.
func marshalOpt[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalOpt[T any](col sql.NullString, dst **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	*dst = &v
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// --- Stations ---

func (s *SQLiteStore) SaveStations(ctx context.Context, stations []model.Station) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (name, lat, lon, town, operator, network)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			town = excluded.town,
			operator = excluded.operator,
			network = excluded.network`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.Name, st.Lat, st.Lon, st.Town, st.Operator, st.Network); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListStations(ctx context.Context) ([]model.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, lat, lon, town, operator, network FROM stations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []model.Station
	for rows.Next() {
		var st model.Station
		var town, operator, network sql.NullString
		if err := rows.Scan(&st.Name, &st.Lat, &st.Lon, &town, &operator, &network); err != nil {
			return nil, err
		}
		st.Town = town.String
		st.Operator = operator.String
		st.Network = network.String
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM persistent_state WHERE key = ?`, key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persistent_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, val)
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM persistent_state WHERE key = ?`, key)
	return err
}
