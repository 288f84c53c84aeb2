package main

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/tableclean/internal/core"
	"github.com/JonMunkholm/tableclean/internal/export"
	"github.com/JonMunkholm/tableclean/internal/extract"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newService wires the service. The database is connected only when
// withDB is set; the returned func releases it.
func newService(ctx context.Context, withDB bool) (*core.Service, func(), error) {
	closeFn := func() {}

	var store core.Store
	if withDB {
		pool, err := connect(ctx)
		if err != nil {
			return nil, nil, err
		}
		store = pool
		closeFn = pool.Close
	}

	exporter, err := newExporter(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return core.NewService(store, exporter, cfg.Clean), closeFn, nil
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	dsn, err := cfg.Database.DatabaseURL()
	if err != nil {
		return nil, err
	}
	pool, err := extract.Connect(ctx, dsn, int32(cfg.Database.MaxConns))
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database", "max_conns", cfg.Database.MaxConns)
	return pool, nil
}

// newExporter attaches object storage when a bucket is configured.
func newExporter(ctx context.Context) (*export.Exporter, error) {
	if !cfg.Export.StorageEnabled() {
		return export.NewExporter(nil), nil
	}

	storage, err := export.NewObjectStorage(ctx, slog.Default(), export.ObjectStorageOptions{
		Endpoint:     cfg.Export.Endpoint,
		Region:       cfg.Export.Region,
		AccessKey:    cfg.Export.AccessKey,
		SecretKey:    cfg.Export.SecretKey,
		UsePathStyle: cfg.Export.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("object storage enabled", "bucket", cfg.Export.Bucket, "region", cfg.Export.Region)
	return export.NewExporter(storage), nil
}

// exportDefaults fills unset target fields from the export config.
func exportDefaults(targets []export.Target) []export.Target {
	out := make([]export.Target, len(targets))
	for i, t := range targets {
		if t.Format == "" {
			t.Format = export.Format(cfg.Export.Format)
		}
		if t.Dir == "" {
			t.Dir = cfg.Export.Dir
		}
		if t.Bucket == "" && cfg.Export.StorageEnabled() {
			t.Bucket, t.Prefix = cfg.Export.Bucket, cfg.Export.Prefix
		}
		out[i] = t
	}
	return out
}
