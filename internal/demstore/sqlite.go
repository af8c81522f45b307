package demstore

import (
	"context"
	"database/sql"
	"embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string, l logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		return nil, err
	}

	l.Info("sqlite dem store initialized", "path", path)

	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(s.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, key dem.Key) ([]byte, bool, error) {
	s.logger.Debug("sqlite dem fetch", "key", key.String())

	query := `SELECT tile_data
	FROM dem_tiles
	WHERE tile_key = ?`

	var tileData []byte
	err := s.db.QueryRowContext(ctx, query, key.String()).Scan(&tileData)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		s.logger.Error("sqlite dem fetch failed", "key", key.String(), "error", err)
		return nil, false, err
	}

	return tileData, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key dem.Key, data []byte) error {
	query := `INSERT INTO dem_tiles (tile_key, tile_data)
	VALUES (?, ?)
	ON CONFLICT(tile_key) DO UPDATE SET tile_data = excluded.tile_data`

	_, err := s.db.ExecContext(ctx, query, key.String(), data)
	if err != nil {
		s.logger.Error("sqlite dem put failed", "key", key.String(), "error", err)
		return err
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
