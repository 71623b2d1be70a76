package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					description TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS feeds (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					url TEXT UNIQUE NOT NULL,
					site_url TEXT,
					category_id INTEGER REFERENCES categories(id),
					last_fetched_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS articles (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					feed_id INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
					guid TEXT NOT NULL,
					title TEXT NOT NULL,
					content TEXT,
					summary TEXT,
					author TEXT,
					link TEXT,
					published_at DATETIME,
					is_read INTEGER DEFAULT 0,
					is_starred INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(feed_id, guid)
				)`,
				`CREATE INDEX idx_articles_feed ON articles(feed_id)`,
				`CREATE INDEX idx_articles_published ON articles(published_at)`,

				`CREATE TABLE IF NOT EXISTS tags (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Rules and conditions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					action_type TEXT NOT NULL,
					action_category_id INTEGER REFERENCES categories(id),
					action_tag_ids TEXT,
					action_priority INTEGER DEFAULT 0,
					priority INTEGER DEFAULT 0,
					confidence REAL DEFAULT 1.0,
					is_enabled INTEGER DEFAULT 1,
					stop_on_match INTEGER DEFAULT 0,
					scope TEXT NOT NULL DEFAULT 'all',
					scope_feed_ids TEXT,
					match_count INTEGER DEFAULT 0,
					last_match_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_priority ON rules(priority, id)`,

				`CREATE TABLE IF NOT EXISTS rule_conditions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					rule_id INTEGER NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
					field_target TEXT NOT NULL,
					operator TEXT NOT NULL,
					value TEXT,
					regex_pattern TEXT,
					case_sensitive INTEGER DEFAULT 0,
					negate INTEGER DEFAULT 0,
					group_id INTEGER DEFAULT 0,
					sort_order INTEGER DEFAULT 0,
					combine_with_next TEXT DEFAULT 'and'
				)`,
				`CREATE INDEX idx_rule_conditions_rule ON rule_conditions(rule_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Tag provenance for rule-applied tags",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS article_tags (
					article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
					tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
					applied_by TEXT NOT NULL DEFAULT 'user',
					rule_id INTEGER REFERENCES rules(id) ON DELETE SET NULL,
					confidence REAL DEFAULT 1.0,
					applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (article_id, tag_id)
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
