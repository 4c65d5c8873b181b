package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	geolocatePath = "/geolocation/v1/geolocate"
	geocodePath   = "/maps/api/geocode/json"
	placesPath    = "/maps/api/place/nearbysearch/json"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := []Option{WithPlacesKey("places-key"), WithBaseURL(server.URL)}
	client, err := NewClient(append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func TestApproximateLocation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, geolocatePath, r.URL.Path)
		assert.Equal(t, "geo-key", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]any{
			"location": map[string]float64{"lat": 30.27, "lng": -97.74},
			"accuracy": 1200,
		})
	}, WithGeolocationKey("geo-key"))

	at, err := client.ApproximateLocation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Lat: 30.27, Lng: -97.74}, at)
}

func TestApproximateLocationFallsBackToPlacesKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "places-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"location":{"lat":1,"lng":2},"accuracy":50}`))
	})

	_, err := client.ApproximateLocation(context.Background())

	require.NoError(t, err)
}

func TestApproximateLocationErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		client, err := NewClient()
		require.NoError(t, err)
		_, err = client.ApproximateLocation(context.Background())
		assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)
	})

	t.Run("rejected key", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
		})
		_, err := client.ApproximateLocation(context.Background())
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}, WithTimeout(20*time.Millisecond))
		_, err := client.ApproximateLocation(context.Background())
		assert.ErrorIs(t, err, apperr.ErrTimeout)
	})
}

func TestTransportErrorsHideKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	client, err := NewClient(WithPlacesKey("SECRET-PLACES-KEY"), WithBaseURL(srv.URL), WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = client.CityCoordinates(context.Background(), "Austin")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.NotContains(t, err.Error(), "SECRET-PLACES-KEY")
	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap()["error"], "SECRET-PLACES-KEY")
}

func TestCityCoordinates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, geocodePath, r.URL.Path)
		switch r.URL.Query().Get("address") {
		case "San Francisco, CA":
			w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":37.77,"lng":-122.42}}}]}`))
		case "Nowhere":
			w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		default:
			w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"denied"}`))
		}
	})

	at, err := client.CityCoordinates(context.Background(), "San Francisco, CA")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Lat: 37.77, Lng: -122.42}, at)

	_, err = client.CityCoordinates(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = client.CityCoordinates(context.Background(), "Denied")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")

	_, err = client.CityCoordinates(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestNearbyLawyers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, placesPath, r.URL.Path)
		assert.Equal(t, "37.77,-122.42", q.Get("location"))
		assert.Equal(t, "lawyer", q.Get("keyword"))
		assert.Equal(t, "2500", q.Get("radius"))

		results := []map[string]any{
			{"name": "No Rating LLP", "vicinity": "1 Side St", "place_id": "p0"},
		}
		for i := 1; i <= 12; i++ {
			results = append(results, map[string]any{
				"name":              "Firm",
				"rating":            float64(i%5) + 0.5,
				"formatted_address": "Main St",
				"place_id":          "p",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": results})
	}, WithRadius(2500))

	lawyers, err := client.NearbyLawyers(context.Background(), models.Coordinates{Lat: 37.77, Lng: -122.42})

	require.NoError(t, err)
	require.Len(t, lawyers, models.TopLawyers)
	for i := 1; i < len(lawyers); i++ {
		assert.GreaterOrEqual(t, lawyers[i-1].Rating, lawyers[i].Rating)
	}
	assert.Equal(t, 4.5, lawyers[0].Rating)
}

func TestNearbyLawyersAddressFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[
			{"name":"A","vicinity":"Near Park","place_id":"a","rating":4.8},
			{"name":"B","place_id":"b"}
		]}`))
	})

	lawyers, err := client.NearbyLawyers(context.Background(), models.Coordinates{Lat: 1, Lng: 1})

	require.NoError(t, err)
	require.Len(t, lawyers, 2)
	assert.Equal(t, "Near Park", lawyers[0].Address)
	assert.Equal(t, 4.8, lawyers[0].Rating)
	assert.Equal(t, "Address not available", lawyers[1].Address)
	assert.Equal(t, 0.0, lawyers[1].Rating)
}

func TestNearbyLawyersZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	lawyers, err := client.NearbyLawyers(context.Background(), models.Coordinates{Lat: 1, Lng: 1})

	require.NoError(t, err)
	assert.Empty(t, lawyers)
}

func TestNearbyLawyersErrors(t *testing.T) {
	keyed, err := NewClient(WithPlacesKey("k"))
	require.NoError(t, err)
	_, err = keyed.NearbyLawyers(context.Background(), models.Coordinates{Lat: 120})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	bare, err := NewClient()
	require.NoError(t, err)
	_, err = bare.NearbyLawyers(context.Background(), models.Coordinates{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OVER_QUERY_LIMIT","results":[]}`))
	})
	_, err = client.NearbyLawyers(context.Background(), models.Coordinates{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}
