package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"campus/config"
	"campus/internal/domain/lifecycle"
	"campus/internal/errors"
)

const (
	poolSampleInterval = 5 * time.Second
	poolWaitWarnAfter  = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the gorm handle shared by every repository. The connection is verified on start and
// the pool is sampled until stop.
func New(params Params) (*gorm.DB, error) {
	if params.Config.Postgres == nil {
		return nil, errors.New("postgres section is missing from the config")
	}

	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	// Repositories rely on gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated.
	db.Config.TranslateError = true
	db = db.Session(&gorm.Session{
		// Multi-statement work goes through TransactionManager.Execute.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	monitor := &poolMonitor{stats: sqlDB.Stats, logger: params.Logger}
	monitorCtx, stopMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}
			params.Logger.Info("PostgreSQL connected")

			go monitor.run(monitorCtx, poolSampleInterval)

			return nil
		},
		OnStop: func(_ context.Context) error {
			stopMonitor()

			return errors.WithStack(sqlDB.Close())
		},
	})

	return db, nil
}

// poolMonitor reports connection pool waits. Logins hold a row lock for the whole session
// transaction, so pool starvation shows up here before it shows up as latency.
type poolMonitor struct {
	stats  func() sql.DBStats
	logger *slog.Logger
}

func (m *poolMonitor) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := m.stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := m.stats()
			m.report(ctx, prev, cur)
			prev = cur
		}
	}
}

// report logs the waits between two samples: warn once the added wait time reaches
// poolWaitWarnAfter, debug below it, nothing without new waits.
func (m *poolMonitor) report(ctx context.Context, prev, cur sql.DBStats) {
	waits := cur.WaitCount - prev.WaitCount
	if waits <= 0 {
		return
	}
	waited := cur.WaitDuration - prev.WaitDuration

	level := slog.LevelDebug
	if waited >= poolWaitWarnAfter {
		level = slog.LevelWarn
	}

	m.logger.LogAttrs(ctx, level, "Postgres pool wait",
		slog.Int64("waits", waits),
		slog.Duration("waited", waited),
		slog.Duration("avgWait", waited/time.Duration(waits)),
		slog.Int("openConns", cur.OpenConnections),
		slog.Int("inUseConns", cur.InUse),
		slog.Int("idleConns", cur.Idle),
		slog.Int("maxOpenConns", cur.MaxOpenConnections),
	)
}
