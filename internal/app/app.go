// Package app assembles the analytics service and its optional backends
// from configuration. Both binaries start here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/marketing-analytics/internal/cache"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/database"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/distlock"
	"github.com/ignite/marketing-analytics/internal/pkg/httpretry"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
	"github.com/ignite/marketing-analytics/internal/report"
	"github.com/ignite/marketing-analytics/internal/service/analytics"
	"github.com/ignite/marketing-analytics/internal/snowflake"
	"github.com/ignite/marketing-analytics/internal/storage"
	"github.com/redis/go-redis/v9"
)

// App holds the service and the connections it was built over. A backend
// that is disabled or unreachable is nil; the service runs without it.
type App struct {
	Config    *config.Config
	Service   *analytics.Service
	Storage   *storage.Storage
	Redis     *redis.Client
	DB        *sql.DB
	Snowflake *snowflake.Client

	s3 dataset.S3GetObjectAPI
}

// New connects the configured backends and builds the service. out
// receives the sentiment evaluation printout.
func New(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.Redact())

	a := &App{Config: cfg}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.Storage = store
	opts := []analytics.Option{analytics.WithRunStore(store), analytics.WithOutput(out)}

	if cfg.Postgres.Enabled {
		if db, err := database.Open(cfg.Postgres); err != nil {
			logger.Warn("postgres disabled", "error", err.Error())
		} else if err := database.Ping(ctx, db); err != nil {
			logger.Warn("postgres unreachable, continuing without it", "error", err.Error())
			db.Close()
		} else {
			a.DB = db
		}
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unreachable, clustering cache off", "error", err.Error())
		} else {
			a.Redis = client
			opts = append(opts, analytics.WithCache(cache.New(client, "analytics:cluster", cfg.Redis.CacheTTL())))
		}
	}
	// Redis when up, else the Postgres advisory lock, else none.
	opts = append(opts, analytics.WithLocker(distlock.NewFactory(a.Redis, a.DB, cfg.Redis.LockTTL())))

	if cfg.Snowflake.Enabled {
		sf, err := snowflake.NewClient(cfg.Snowflake)
		if err != nil {
			logger.Warn("snowflake disabled", "error", err.Error())
		} else {
			a.Snowflake = sf
		}
	}

	if cfg.Report.Enabled {
		mailer, err := report.NewMailer(ctx, cfg.Report)
		if err != nil {
			logger.Warn("email reports disabled", "error", err.Error())
		} else {
			opts = append(opts, analytics.WithMailer(mailer))
		}
	}

	if cfg.Report.NarrativeModel != "" {
		narrator, err := report.NewNarrator(ctx, cfg.Report)
		if err != nil {
			logger.Warn("report commentary disabled", "error", err.Error())
		} else {
			opts = append(opts, analytics.WithNarrator(narrator))
		}
	}

	if a.Service, err = analytics.NewService(cfg.Analytics, opts...); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases every connection.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Snowflake != nil {
		a.Snowflake.Close()
	}
}

// Source resolves an input location:
//
//	s3://bucket/key          CSV object
//	http(s)://host/path      CSV download, retried on transient errors
//	postgres:SELECT ...      query against the Postgres pool
//	snowflake:SELECT ...     query against the warehouse
//	anything else            local CSV file
func (a *App) Source(ctx context.Context, loc string) (dataset.Source, error) {
	switch {
	case strings.HasPrefix(loc, "s3://"):
		bucket, key, ok := dataset.ParseS3URI(loc)
		if !ok {
			return nil, fmt.Errorf("invalid s3 location %q", loc)
		}
		if a.s3 == nil {
			awsCfg, err := storage.LoadAWSConfig(ctx, a.Config.Storage.AWSRegion, a.Config.Storage.GetAWSProfile())
			if err != nil {
				return nil, err
			}
			a.s3 = s3.NewFromConfig(awsCfg)
		}
		return dataset.S3Source{Client: a.s3, Bucket: bucket, Key: key}, nil

	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return dataset.URLSource{Client: httpretry.NewRetryClient(nil, 3), URL: loc}, nil

	case strings.HasPrefix(loc, "postgres:"):
		if a.DB == nil {
			return nil, fmt.Errorf("postgres source requested but postgres is not configured")
		}
		return dataset.SQLSource{DB: a.DB, Query: strings.TrimPrefix(loc, "postgres:")}, nil

	case strings.HasPrefix(loc, "snowflake:"):
		if a.Snowflake == nil {
			return nil, fmt.Errorf("snowflake source requested but snowflake is not configured")
		}
		return a.Snowflake.Source(strings.TrimPrefix(loc, "snowflake:")), nil

	default:
		return dataset.FileSource{Path: loc}, nil
	}
}
