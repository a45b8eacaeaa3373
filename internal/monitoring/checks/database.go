package checks

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/monitoring"
)

// Database pings the gorm connection pool.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}
