package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/config"
	"github.com/haldana/sift/internal/service"
	"github.com/haldana/sift/internal/storage"
)

// getDatabase opens the configured database and returns it with a cleanup
// function.
func getDatabase() (service.Storage, func(), error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		return nil, nil, common.NewUserError(
			"no database path configured; set database.path or pass --db",
			common.ErrMissingConfig)
	}

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}

	cleanup := func() { _ = db.Close() }
	return db, cleanup, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, common.NewUserError(fmt.Sprintf("invalid ID: %s", arg), err)
	}
	return id, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
