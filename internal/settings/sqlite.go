package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"taskbridge/internal/platform"
)

// SQLiteStore keeps settings in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS platform_settings (
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			settings TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, platform)
		);

		CREATE TABLE IF NOT EXISTS active_platforms (
			user_id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ActivePlatform implements platform.Resolver.
func (s *SQLiteStore) ActivePlatform(ctx context.Context, userID string) (platform.ID, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT platform FROM active_platforms WHERE user_id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return platform.ID(id), true, nil
}

// Settings implements platform.Resolver.
func (s *SQLiteStore) Settings(ctx context.Context, userID string, id platform.ID) (platform.Settings, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM platform_settings WHERE user_id = ? AND platform = ?`,
		userID, string(platform.NormalizeID(string(id)))).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var out platform.Settings
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false, fmt.Errorf("corrupt settings for %s: %w", id, err)
	}
	if out == nil {
		out = platform.Settings{}
	}
	return out, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, userID string, id platform.ID, settings platform.Settings) error {
	key := string(platform.NormalizeID(string(id)))
	if key == "" {
		return fmt.Errorf("platform identifier required")
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO platform_settings (user_id, platform, settings, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, platform) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`,
		userID, key, string(data), now); err != nil {
		return err
	}
	if err := setActiveTx(ctx, tx, userID, key, now); err != nil {
		return err
	}
	return tx.Commit()
}

// SetActive implements Store.
func (s *SQLiteStore) SetActive(ctx context.Context, userID string, id platform.ID) error {
	key := string(platform.NormalizeID(string(id)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM platform_settings WHERE user_id = ? AND platform = ?`,
		userID, key).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotStored, key)
	}
	if err := setActiveTx(ctx, tx, userID, key, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, userID string, id platform.ID) error {
	key := string(platform.NormalizeID(string(id)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM platform_settings WHERE user_id = ? AND platform = ?`, userID, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM active_platforms WHERE user_id = ? AND platform = ?`, userID, key); err != nil {
		return err
	}
	return tx.Commit()
}

// Platforms implements Store.
func (s *SQLiteStore) Platforms(ctx context.Context, userID string) ([]platform.ID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT platform FROM platform_settings WHERE user_id = ? ORDER BY platform`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []platform.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, platform.ID(id))
	}
	return ids, rows.Err()
}

func setActiveTx(ctx context.Context, tx *sql.Tx, userID, key string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO active_platforms (user_id, platform, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET platform = excluded.platform, updated_at = excluded.updated_at`,
		userID, key, now)
	return err
}
