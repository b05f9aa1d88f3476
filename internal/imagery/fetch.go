package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/farmview/farmview-api/internal/cache"
	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/farmview/farmview-api/internal/properties"
	"github.com/farmview/farmview-api/internal/raster"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

const (
	defaultProcessURL = "https://sh.dataspace.copernicus.eu/api/v1/process"
	resolutionMeters  = 10
	maxOutputPixels = 2500
	requestRetries  = 3

	// Imagery windows around the damage event: the current scene comes from
	// the two weeks up to the event, the baseline from well before it.
	currentWindowDays  = 14
	baselineOffsetDays = 30
	baselineWindowDays = 45
)

// Red and NIR as FLOAT32 reflectance, in the band order the raster decoder
// expects.
const evalscript = `
//VERSION=3
function setup() {
  return {
    input: ["B04", "B08"],
    output: {
      id: "default",
      bands: 2,
      sampleType: SampleType.FLOAT32,
    },
  }
}

function evaluatePixel(sample) {
  return [sample.B04, sample.B08];
}
`

// Imagery for the same geometry and window does not change between runs, so
// responses are cached on disk for a day.
const imageCacheMaxAge = 24 * time.Hour

// Wait between failed request attempts.
var retryBackoff = 5 * time.Second

// Fetcher acquires scene pairs from the Sentinel Hub process API. The core
// pipeline never talks to it directly; delivery hands it the polygon and gets
// decoded in-memory scenes back.
type Fetcher struct {
	log        *logrus.Logger
	cache      *cache.FileCache[[]byte]
	processURL string
}

func NewFetcher(log *logrus.Logger) *Fetcher {
	return &Fetcher{
		log:        log,
		cache:      cache.NewFileCache[[]byte]("imagery_cache", imageCacheMaxAge),
		processURL: defaultProcessURL,
	}
}

// FetchScenePair requests the current and baseline scenes concurrently. Both
// are decoded from scratch GeoTIFFs keyed by a per-request id and removed on
// every exit path.
func (f *Fetcher) FetchScenePair(ctx context.Context, polygon *geometry.FieldPolygon, eventDate time.Time) (*raster.Scene, *raster.Scene, error) {
	if eventDate.IsZero() {
		eventDate = time.Now().UTC()
	}

	var current, baseline *raster.Scene
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scene, err := f.fetchScene(ctx, polygon, eventDate.AddDate(0, 0, -currentWindowDays), eventDate)
		if err != nil {
			return fmt.Errorf("current scene: %w", err)
		}
		current = scene
		return nil
	})
	g.Go(func() error {
		to := eventDate.AddDate(0, 0, -baselineOffsetDays)
		scene, err := f.fetchScene(ctx, polygon, to.AddDate(0, 0, -baselineWindowDays), to)
		if err != nil {
			return fmt.Errorf("baseline scene: %w", err)
		}
		baseline = scene
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return current, baseline, nil
}

func (f *Fetcher) fetchScene(ctx context.Context, polygon *geometry.FieldPolygon, from, to time.Time) (*raster.Scene, error) {
	bound := polygon.Ring().Bound()
	key := f.cache.GenerateKey(
		bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat(),
		from.Format("2006-01-02"), to.Format("2006-01-02"),
	)

	content, hit := f.cache.Get(key)
	if !hit {
		var err error
		content, err = f.requestImage(ctx, polygon, from, to)
		if err != nil {
			return nil, err
		}
		if err := f.cache.Set(key, content); err != nil {
			f.log.WithError(err).Warn("failed to cache imagery response")
		}
	}

	if err := os.MkdirAll(properties.TempDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	scratch := filepath.Join(properties.TempDir(), fmt.Sprintf("scene_%s.tif", uuid.NewString()))
	if err := os.WriteFile(scratch, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write scratch raster: %w", err)
	}
	defer os.Remove(scratch)

	return raster.DecodeSceneFile(scratch)
}

func calculatePixels(distanceDegrees float64) int {
	pixels := int(distanceDegrees * (111_000.0 / resolutionMeters))
	if pixels < 1 {
		return 1
	}
	if pixels > maxOutputPixels {
		return maxOutputPixels
	}
	return pixels
}

func (f *Fetcher) requestImage(ctx context.Context, polygon *geometry.FieldPolygon, from, to time.Time) ([]byte, error) {
	bound := polygon.Ring().Bound()
	widthPixels := calculatePixels(bound.Max.Lon() - bound.Min.Lon())
	heightPixels := calculatePixels(bound.Max.Lat() - bound.Min.Lat())

	requestPayload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": geojson.NewGeometry(orb.Polygon{polygon.Ring()}),
			},
			"data": []map[string]interface{}{
				{
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": from.Format(time.RFC3339),
							"to":   to.Format(time.RFC3339),
						},
						"maxCloudCoverage": 40,
					},
					"type": "sentinel-2-l2a",
				},
			},
		},
		"output": map[string]interface{}{
			"width":  widthPixels,
			"height": heightPixels,
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format": map[string]string{
						"type": "image/tiff",
					},
				},
			},
		},
		"evalscript": evalscript,
		"mosaicking": "mostRecent",
	}

	requestBody, err := json.Marshal(requestPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	clientID := properties.SentinelClientID()
	clientSecret := properties.SentinelClientSecret()
	tokenURL := properties.SentinelTokenURL()
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: SENTINEL_CLIENT_ID, SENTINEL_CLIENT_SECRET or SENTINEL_TOKEN_URL")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := config.Client(ctx)

	var lastErr error
	for attempt := 1; attempt <= requestRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.processURL, bytes.NewReader(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to build imagery request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		response, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			f.log.WithError(err).Warnf("imagery request attempt %d failed", attempt)
		} else {
			body, readErr := io.ReadAll(response.Body)
			response.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			} else if response.StatusCode == http.StatusOK {
				return body, nil
			} else if response.StatusCode == http.StatusForbidden || response.StatusCode == http.StatusUnauthorized {
				return nil, fmt.Errorf("unauthorized access, check the Sentinel client id and secret")
			} else {
				lastErr = fmt.Errorf("imagery request returned status %d: %s", response.StatusCode, string(body))
				f.log.Warnf("imagery request attempt %d failed: %s", attempt, lastErr)
			}
		}

		if attempt < requestRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to request image after %d attempts: %w", requestRetries, lastErr)
}
