package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/backend"
	"github.com/sells-group/siteopt/internal/config"
	"github.com/sells-group/siteopt/internal/dataset"
	"github.com/sells-group/siteopt/internal/mapview"
	"github.com/sells-group/siteopt/internal/model"
	"github.com/sells-group/siteopt/pkg/geocode"
)

func newBackendClient(c *config.Config) backend.Client {
	return backend.NewClient(c.Backend.BaseURL, backend.WithTimeout(c.Backend.Timeout()))
}

func newGeocoder(c *config.Config) geocode.Client {
	opts := []geocode.Option{
		geocode.WithBaseURL(c.Mapbox.BaseURL),
		geocode.WithRateLimit(c.Mapbox.RateLimit),
		geocode.WithLimit(c.Mapbox.Limit),
		geocode.WithCountry(c.Mapbox.Country),
	}
	if c.Mapbox.CacheSize > 0 {
		ttl := time.Duration(c.Mapbox.CacheTTLSecs) * time.Second
		opts = append(opts, geocode.WithCache(geocode.NewCache(c.Mapbox.CacheSize, ttl)))
	}
	return geocode.NewClient(c.Mapbox.Token, opts...)
}

func sceneOptions(c *config.Config) mapview.SceneOptions {
	return mapview.SceneOptions{
		ShowTooltips: c.Map.ShowTooltips,
		Padding:      mapview.Padding{c.Map.PaddingPx, c.Map.PaddingPx},
	}
}

// loadDataset parses path locally or through the transform endpoint.
func loadDataset(ctx context.Context, c *config.Config, path string, local bool) (*model.Dataset, error) {
	if local {
		zap.L().Info("reading workbook locally", zap.String("path", path))
		return dataset.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close() //nolint:errcheck

	zap.L().Info("uploading workbook", zap.String("path", path), zap.String("backend", c.Backend.BaseURL))
	return newBackendClient(c).Transform(ctx, filepath.Base(path), f)
}
