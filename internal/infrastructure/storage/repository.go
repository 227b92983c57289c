// Package storage selects the run store backend from configuration.
package storage

import (
	"fmt"
	"strings"

	"walletscope/internal/application"
	"walletscope/internal/infrastructure/mysql"
	"walletscope/internal/infrastructure/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open returns the run store for driver, or nil when driver is empty.
func Open(driver, dsn string) (application.RunStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "":
		return nil, nil
	case DriverMySQL:
		repo, err := mysql.NewRepository(dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql store: %w", err)
		}
		return repo, nil
	case DriverSQLite:
		repo, err := sqlite.NewRepository(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}
