// Package geo wraps the Google geolocation, geocoding and places APIs used by
// the lawyer search.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/models"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

const (
	defaultRadius  = 5000
	defaultTimeout = 10 * time.Second
)

// ErrLocationNotFound is returned when geocoding finds no match.
var ErrLocationNotFound = errors.New("location not found")

// Client calls the Google location APIs. Geocoding and places share the
// places key; geolocation uses its own key when one is set.
type Client struct {
	places      *maps.Client
	geolocation *maps.Client
	radius      uint
	timeout     time.Duration
	logger      *zap.Logger
}

type settings struct {
	placesKey      string
	geolocationKey string
	baseURL        string
	httpClient     *http.Client
	radius         int
	timeout        time.Duration
	logger         *zap.Logger
}

// Option is a functional option for Client
type Option func(*settings)

// WithPlacesKey sets the key used for geocoding and places lookups
func WithPlacesKey(key string) Option {
	return func(s *settings) { s.placesKey = key }
}

// WithGeolocationKey sets the key used for IP geolocation. When unset the
// places key is used.
func WithGeolocationKey(key string) Option {
	return func(s *settings) { s.geolocationKey = key }
}

// WithBaseURL sends every API call to baseURL instead of the Google hosts.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithRadius sets the nearby search radius in meters
func WithRadius(meters int) Option {
	return func(s *settings) {
		if meters > 0 {
			s.radius = meters
		}
	}
}

// WithTimeout bounds each API call
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewClient creates a location client. Missing keys are not an error here;
// the calls that need them report ConfigurationMissing.
func NewClient(opts ...Option) (*Client, error) {
	s := settings{radius: defaultRadius, timeout: defaultTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.geolocationKey == "" {
		s.geolocationKey = s.placesKey
	}

	c := &Client{radius: uint(s.radius), timeout: s.timeout, logger: s.logger}
	var err error
	if c.places, err = newMapsClient(s, s.placesKey); err != nil {
		return nil, err
	}
	if c.geolocation, err = newMapsClient(s, s.geolocationKey); err != nil {
		return nil, err
	}
	return c, nil
}

func newMapsClient(s settings, key string) (*maps.Client, error) {
	if key == "" {
		return nil, nil
	}
	opts := []maps.ClientOption{maps.WithAPIKey(key)}
	if s.baseURL != "" {
		opts = append(opts, maps.WithBaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(s.httpClient))
	}
	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return mc, nil
}

// ApproximateLocation estimates the caller's position from its IP address.
func (c *Client) ApproximateLocation(ctx context.Context) (models.Coordinates, error) {
	const op = "approximate location"
	if c.geolocation == nil {
		return models.Coordinates{}, apperr.ConfigurationMissing(op, "GOOGLE_GEOLOCATION_API_KEY")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	res, err := c.geolocation.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		return models.Coordinates{}, c.fail(op, start, err)
	}
	if res == nil || (res.Location.Lat == 0 && res.Location.Lng == 0 && res.Accuracy == 0) {
		return models.Coordinates{}, apperr.New(apperr.KindUpstreamUnavailable, op, errors.New("response has no location"))
	}
	c.logger.Debug("approximate location resolved",
		zap.Float64("accuracy_m", res.Accuracy),
		zap.Duration("elapsed", time.Since(start)))
	return models.Coordinates{Lat: res.Location.Lat, Lng: res.Location.Lng}, nil
}

// CityCoordinates geocodes a city name.
func (c *Client) CityCoordinates(ctx context.Context, city string) (models.Coordinates, error) {
	const op = "city coordinates"
	city = strings.TrimSpace(city)
	if city == "" {
		return models.Coordinates{}, apperr.InvalidInput(op, "cityName is required")
	}
	if c.places == nil {
		return models.Coordinates{}, apperr.ConfigurationMissing(op, "GOOGLE_PLACES_API_KEY")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	results, err := c.places.Geocode(ctx, &maps.GeocodingRequest{Address: city})
	if err != nil {
		return models.Coordinates{}, c.fail(op, start, err)
	}
	if len(results) == 0 {
		return models.Coordinates{}, apperr.New(apperr.KindInvalidInput, op, fmt.Errorf("%w: %s", ErrLocationNotFound, city))
	}
	loc := results[0].Geometry.Location
	c.logger.Debug("city geocoded", zap.Int("matches", len(results)), zap.Duration("elapsed", time.Since(start)))
	return models.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// NearbyLawyers finds lawyers around a point, ranked by rating and
// truncated to the top ten.
func (c *Client) NearbyLawyers(ctx context.Context, at models.Coordinates) ([]models.Lawyer, error) {
	const op = "nearby lawyers"
	if !at.Valid() {
		return nil, apperr.InvalidInput(op, "coordinates out of range: %v,%v", at.Lat, at.Lng)
	}
	if c.places == nil {
		return nil, apperr.ConfigurationMissing(op, "GOOGLE_PLACES_API_KEY")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	resp, err := c.places.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
		Radius:   c.radius,
		Keyword:  "lawyer",
	})
	if err != nil {
		return nil, c.fail(op, start, err)
	}

	lawyers := make([]models.Lawyer, 0, len(resp.Results))
	for _, r := range resp.Results {
		l := models.Lawyer{
			Name:    r.Name,
			PlaceID: r.PlaceID,
			Address: r.FormattedAddress,
			// Ratings are published with one decimal.
			Rating: math.Round(float64(r.Rating)*10) / 10,
		}
		if l.Address == "" {
			l.Address = r.Vicinity
		}
		if l.Address == "" {
			l.Address = "Address not available"
		}
		lawyers = append(lawyers, l)
	}
	c.logger.Debug("nearby search done", zap.Int("results", len(lawyers)), zap.Duration("elapsed", time.Since(start)))
	return models.RankLawyers(lawyers, models.TopLawyers), nil
}

// fail classifies a failed call. The key travels in the request URL, so it
// is stripped before the error is logged or returned.
func (c *Client) fail(op string, start time.Time, err error) error {
	err = apperr.Upstream(op, apperr.Redact(err))
	c.logger.Warn("location api call failed",
		zap.String("op", op),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}
