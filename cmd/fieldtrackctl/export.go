package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"fieldtrack/config"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/infra/persistence/gormstore"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

func runExport(ctx context.Context, output string, annotatedOnly bool) error {
	cfg, err := config.New()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := gormstore.Open(cfg, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	samples, err := gormstore.NewSampleRepository(db, nil).List(ctx)
	if err != nil {
		return err
	}

	data, err := samplesCollection(samples, annotatedOnly).MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to encode samples")
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", output)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write samples")
	}
	logger.Info("Exported samples", slog.Int("count", len(samples)), slog.String("output", output))

	return nil
}

func samplesCollection(samples []*entity.LocationSample, annotatedOnly bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range samples {
		if annotatedOnly && !s.IsAnnotated() {
			continue
		}

		f := geojson.NewFeature(orb.Point{s.Longitude, s.Latitude})
		f.ID = s.Timestamp
		f.Properties["object_id"] = s.ObjectID
		f.Properties["name"] = s.Name
		f.Properties["category"] = s.Category
		f.Properties["rating"] = s.Rating
		f.Properties["note"] = s.Note
		f.Properties["synced"] = s.Synced
		fc.Append(f)
	}

	return fc
}
