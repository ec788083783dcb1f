// Package gormstore implements the sample store on GORM, backed by an on-device
// SQLite file by default or by PostgreSQL.
package gormstore

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/lifecycle"
	"fieldtrack/internal/infra/persistence/model"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	dbPoolMonitorInterval       = 5 * time.Second
	dbPoolWarnDurationThreshold = 50 * time.Millisecond
)

// WriteGate serializes writers inside this process. Readers never take it.
// Repositories bound to a transaction carry a nil gate because the
// transaction manager already holds it for the transaction's lifetime.
type WriteGate struct {
	mu sync.Mutex
}

// NewWriteGate creates the process wide write gate
func NewWriteGate() *WriteGate {
	return &WriteGate{}
}

func (g *WriteGate) acquire() func() {
	if g == nil {
		return func() {}
	}
	g.mu.Lock()

	return g.mu.Unlock
}

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the configured store, migrates it and ties its lifetime to fx
func New(params Params) (*gorm.DB, error) {
	db, err := Open(params.Config, params.Logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping sample store")
			}

			go monitorDBPool(monitorCtx, params.Logger, sqlDB, dbPoolMonitorInterval)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// Open connects to the configured driver and migrates the schema.
func Open(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err = pgLib.New(cfg.Postgres)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create PostgreSQL client")
		}
	default:
		db, err = OpenSQLite(cfg.Store.Path, cfg.Store.BusyTimeout)
		if err != nil {
			return nil, err
		}
	}

	db = db.Session(&gorm.Session{
		// Explicit transactions go through the transaction manager.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(logger, cfg),
	})

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("Sample store ready",
		slog.String("driver", cfg.Store.Driver),
		slog.String("path", cfg.Store.Path),
	)

	return db, nil
}

// OpenSQLite opens a SQLite file in WAL mode so readers keep seeing the last
// committed snapshot while a writer is active.
func OpenSQLite(path string, busyTimeout time.Duration) (*gorm.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	pragmas := url.Values{
		"_pragma": {
			"busy_timeout(" + strconv.FormatInt(busyTimeout.Milliseconds(), 10) + ")",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(1)",
		},
	}

	db, err := gorm.Open(sqlite.Open(path+"?"+pragmas.Encode()), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite store %s", path)
	}

	return db, nil
}

// Migrate creates or updates the store schema and its secondary indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.LocationSampleModel{}, &model.OutboxEntryModel{}); err != nil {
		return errors.Wrap(err, "failed to migrate sample store")
	}

	return nil
}

func monitorDBPool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB, interval time.Duration) {
	if logger == nil || sqlDB == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sqlDB.Stats()
			waitDelta := cur.WaitCount - prev.WaitCount
			waitDurationDelta := cur.WaitDuration - prev.WaitDuration
			prev = cur
			if waitDelta <= 0 {
				continue
			}

			level := slog.LevelDebug
			if waitDurationDelta >= dbPoolWarnDurationThreshold {
				level = slog.LevelWarn
			}

			logger.LogAttrs(ctx, level, "Store connection pool wait",
				slog.Int64("waitCountDelta", waitDelta),
				slog.Duration("waitDurationDelta", waitDurationDelta),
				slog.Int("openConns", cur.OpenConnections),
				slog.Int("inUseConns", cur.InUse),
				slog.Int("idleConns", cur.Idle),
			)
		}
	}
}
