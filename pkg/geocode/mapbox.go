package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/metrics"
	"github.com/sells-group/siteopt/internal/model"
)

const (
	defaultBaseURL = "https://api.mapbox.com"
	placesPath     = "/geocoding/v5/mapbox.places/"
	defaultLimit   = 5
)

// placesResponse is the GeoJSON FeatureCollection returned by mapbox.places.
type placesResponse struct {
	Features []placeFeature `json:"features"`
}

type placeFeature struct {
	ID        string    `json:"id"`
	PlaceName string    `json:"place_name"`
	Center    []float64 `json:"center"` // [lon, lat]
}

// Suggest implements Client.
func (m *mapbox) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if m.accessToken == "" {
		return nil, eris.New("geocode: mapbox access token not configured")
	}

	key := cacheKey(query, m.limit, m.country)
	if m.cache != nil {
		if cached, ok := m.cache.Get(key); ok {
			metrics.GeocodeRequestsTotal.WithLabelValues("cache_hit").Inc()
			return cached, nil
		}
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox rate limit")
	}

	suggestions, err := m.fetch(ctx, query)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("ok").Inc()

	if m.cache != nil {
		m.cache.Put(key, suggestions)
	}
	return suggestions, nil
}

func (m *mapbox) fetch(ctx context.Context, query string) ([]Suggestion, error) {
	params := url.Values{
		"access_token": {m.accessToken},
		"autocomplete": {"true"},
		"limit":        {strconv.Itoa(m.limit)},
	}
	if m.country != "" {
		params.Set("country", m.country)
	}

	reqURL := m.baseURL + placesPath + url.PathEscape(query) + ".json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox build request")
	}

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// url.Error embeds the request URL, which carries the access token.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, eris.Wrap(err, "geocode: mapbox request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: mapbox returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox read body")
	}

	var places placesResponse
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox parse response")
	}

	suggestions := make([]Suggestion, 0, len(places.Features))
	for _, f := range places.Features {
		if len(f.Center) < 2 {
			zap.L().Debug("geocode: skipping feature without center", zap.String("id", f.ID))
			continue
		}
		suggestions = append(suggestions, Suggestion{
			ID:          f.ID,
			Label:       f.PlaceName,
			Coordinates: model.LatLng{Lat: f.Center[1], Lon: f.Center[0]},
		})
	}

	zap.L().Debug("geocode: mapbox suggestions",
		zap.String("query", query),
		zap.Int("count", len(suggestions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return suggestions, nil
}
