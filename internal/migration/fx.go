package migration

import (
	"fmt"

	"github.com/smallbiznis/bursar/internal/config"
	"github.com/smallbiznis/bursar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Applied marks a schema that is ready; depend on it to run after migrations.
type Applied struct{}

var Module = fx.Module("migrations",
	fx.Provide(Run),
	fx.Invoke(func(Applied) {}),
)

// Run migrates the configured database and installs the immutable-table guard.
func Run(conn *gorm.DB, cfg config.Config, log *zap.Logger) (Applied, error) {
	switch cfg.DBType {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return Applied{}, err
		}
		if err := RunPostgres(sqlDB); err != nil {
			return Applied{}, err
		}
	case "sqlite":
		if err := ApplySQLite(conn); err != nil {
			return Applied{}, err
		}
	default:
		return Applied{}, fmt.Errorf("unsupported %s type", cfg.DBType)
	}

	if err := conn.Use(db.NewImmutableTables(ImmutableTables...)); err != nil {
		return Applied{}, err
	}

	log.Named("migration").Info("schema ready", zap.String("type", cfg.DBType))
	return Applied{}, nil
}
