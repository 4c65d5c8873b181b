package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/flow"
	"clausewise-backend/geo"
	"clausewise-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocator scripts each geo call and counts invocations.
type fakeLocator struct {
	mu        sync.Mutex
	approx    models.Coordinates
	approxErr error
	city      models.Coordinates
	cityErr   error
	lawyers   []models.Lawyer
	placesErr error
	calls     map[string]int
	lookedUp  []models.Coordinates
}

func (f *fakeLocator) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeLocator) ApproximateLocation(ctx context.Context) (models.Coordinates, error) {
	f.count("approximate")
	return f.approx, f.approxErr
}

func (f *fakeLocator) CityCoordinates(ctx context.Context, city string) (models.Coordinates, error) {
	f.count("city")
	return f.city, f.cityErr
}

func (f *fakeLocator) NearbyLawyers(ctx context.Context, at models.Coordinates) ([]models.Lawyer, error) {
	f.count("places")
	f.mu.Lock()
	f.lookedUp = append(f.lookedUp, at)
	f.mu.Unlock()
	return f.lawyers, f.placesErr
}

// fakeFallback records the cities it was asked about.
type fakeFallback struct {
	lawyers []models.Lawyer
	err     error
	cities  []string
}

func (f *fakeFallback) fn(ctx context.Context, city string) ([]models.Lawyer, error) {
	f.cities = append(f.cities, city)
	return f.lawyers, f.err
}

var (
	sf     = models.Coordinates{Lat: 37.77, Lng: -122.42}
	ipSpot = models.Coordinates{Lat: 40.71, Lng: -74.0}
	now    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newLawyerService(loc Locator, fb *fakeFallback) *LawyerService {
	opts := []LawyerServiceOption{WithLocator(loc)}
	if fb != nil {
		opts = append(opts, WithFallback(fb.fn))
	}
	s := NewLawyerService(opts...)
	s.now = func() time.Time { return now }
	return s
}

func lawyers(ratings ...float64) []models.Lawyer {
	out := make([]models.Lawyer, 0, len(ratings))
	for i, r := range ratings {
		out = append(out, models.Lawyer{Name: fmt.Sprintf("Firm %d", i), Rating: r, Address: "Main St"})
	}
	return out
}

func TestSearchPreciseToPlaces(t *testing.T) {
	loc := &fakeLocator{lawyers: lawyers(3.5, 4.9, 4.1)}
	svc := newLawyerService(loc, nil)

	res, err := svc.Search(context.Background(), LawyerSearchRequest{
		Precise: &Position{Coordinates: sf, CapturedAt: now.Add(-10 * time.Second)},
	})
	require.NoError(t, err)

	assert.Equal(t, []State{StatePreciseLocating, StatePlacesLookup, StateDone}, res.Trace)
	assert.Equal(t, SourcePlaces, res.Source)
	assert.Equal(t, []float64{4.9, 4.1, 3.5}, []float64{res.Lawyers[0].Rating, res.Lawyers[1].Rating, res.Lawyers[2].Rating})
	assert.Equal(t, []models.Coordinates{sf}, loc.lookedUp)
	assert.Zero(t, loc.calls["approximate"])
}

func TestSearchPreciseFailureGoesCoarse(t *testing.T) {
	for _, reason := range []FailureReason{ReasonDenied, ReasonTimeout, ReasonUnsupported} {
		t.Run(string(reason), func(t *testing.T) {
			loc := &fakeLocator{approx: ipSpot, lawyers: lawyers(4)}
			svc := newLawyerService(loc, nil)

			res, err := svc.Search(context.Background(), LawyerSearchRequest{FailureReason: reason})
			require.NoError(t, err)

			assert.Equal(t, []State{StatePreciseLocating, StateCoarseLocating, StatePlacesLookup, StateDone}, res.Trace)
			assert.Equal(t, []models.Coordinates{ipSpot}, loc.lookedUp)
			assert.Equal(t, 1, loc.calls["approximate"])
		})
	}
}

func TestSearchStalePositionCountsAsTimeout(t *testing.T) {
	loc := &fakeLocator{approx: ipSpot, lawyers: lawyers(4)}
	svc := newLawyerService(loc, nil)

	res, err := svc.Search(context.Background(), LawyerSearchRequest{
		Precise: &Position{Coordinates: sf, CapturedAt: now.Add(-2 * time.Minute)},
	})
	require.NoError(t, err)

	assert.Equal(t, []State{StatePreciseLocating, StateCoarseLocating, StatePlacesLookup, StateDone}, res.Trace)
	assert.Equal(t, []models.Coordinates{ipSpot}, loc.lookedUp)
}

func TestSearchCoarseFailureEndsWithError(t *testing.T) {
	loc := &fakeLocator{approxErr: apperr.ConfigurationMissing("geolocate", "GOOGLE_GEOLOCATION_API_KEY")}
	fb := &fakeFallback{lawyers: lawyers(5)}
	svc := newLawyerService(loc, fb)

	res, err := svc.Search(context.Background(), LawyerSearchRequest{FailureReason: ReasonDenied})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)
	assert.Zero(t, loc.calls["places"])
	assert.Empty(t, fb.cities, "no fallback after coarse failure")
}

// Places returning nothing proceeds to the model fallback.
func TestSearchZeroPlacesFallsBackToModel(t *testing.T) {
	loc := &fakeLocator{approx: ipSpot}
	fb := &fakeFallback{lawyers: lawyers(4.2, 4.8)}
	svc := newLawyerService(loc, fb)

	res, err := svc.Search(context.Background(), LawyerSearchRequest{FailureReason: ReasonDenied, CityName: "Austin"})
	require.NoError(t, err)

	assert.Equal(t, []State{StatePreciseLocating, StateCoarseLocating, StatePlacesLookup, StateModelFallback, StateDone}, res.Trace)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, 4.8, res.Lawyers[0].Rating)
	assert.Equal(t, []string{"Austin"}, fb.cities)
	assert.Equal(t, 1, loc.calls["city"], "the city stands in for IP geolocation")
	assert.Zero(t, loc.calls["approximate"])
}

func TestSearchFallbackEmptyIsNotAnError(t *testing.T) {
	tests := []struct {
		name string
		fb   *fakeFallback
		city string
	}{
		{"empty list", &fakeFallback{}, "Austin"},
		{"fallback error", &fakeFallback{err: apperr.ContractViolation("lawyers-fallback", "bad json")}, "Austin"},
		{"no city", &fakeFallback{lawyers: lawyers(5)}, ""},
		{"no fallback", nil, "Austin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := &fakeLocator{approx: ipSpot, city: sf, placesErr: errors.New("places down")}
			svc := newLawyerService(loc, tt.fb)

			res, err := svc.Search(context.Background(), LawyerSearchRequest{FailureReason: ReasonTimeout, CityName: tt.city})
			require.NoError(t, err)

			assert.Equal(t, StateModelFallback, res.Trace[len(res.Trace)-2])
			assert.Equal(t, SourceNone, res.Source)
			assert.NotNil(t, res.Lawyers)
			assert.Empty(t, res.Lawyers)
		})
	}
}

func TestSearchTruncatesToTopTen(t *testing.T) {
	ratings := make([]float64, 15)
	for i := range ratings {
		ratings[i] = float64(i) / 3
	}
	loc := &fakeLocator{lawyers: lawyers(ratings...)}
	svc := newLawyerService(loc, nil)

	res, err := svc.Search(context.Background(), LawyerSearchRequest{Precise: &Position{Coordinates: sf}})
	require.NoError(t, err)

	require.Len(t, res.Lawyers, models.TopLawyers)
	assert.Equal(t, "Firm 14", res.Lawyers[0].Name)
}

func TestSearchRejectsBadRequests(t *testing.T) {
	loc := &fakeLocator{}
	svc := newLawyerService(loc, nil)

	_, err := svc.Search(context.Background(), LawyerSearchRequest{FailureReason: "bored"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Search(context.Background(), LawyerSearchRequest{Precise: &Position{Coordinates: models.Coordinates{Lat: 91}}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, loc.calls)
}

func TestFindInCity(t *testing.T) {
	t.Run("geocoded", func(t *testing.T) {
		loc := &fakeLocator{city: sf, lawyers: lawyers(4)}
		res, err := newLawyerService(loc, nil).FindInCity(context.Background(), " San Francisco ")
		require.NoError(t, err)
		assert.Equal(t, []State{StateCoarseLocating, StatePlacesLookup, StateDone}, res.Trace)
		assert.Equal(t, []models.Coordinates{sf}, loc.lookedUp)
	})

	t.Run("unknown city uses model", func(t *testing.T) {
		notFound := apperr.New(apperr.KindInvalidInput, "city coordinates", fmt.Errorf("%w: Atlantis", geo.ErrLocationNotFound))
		loc := &fakeLocator{cityErr: notFound}
		fb := &fakeFallback{lawyers: lawyers(3)}
		res, err := newLawyerService(loc, fb).FindInCity(context.Background(), "Atlantis")
		require.NoError(t, err)
		assert.Equal(t, []State{StateCoarseLocating, StateModelFallback, StateDone}, res.Trace)
		assert.Equal(t, SourceModel, res.Source)
		assert.Zero(t, loc.calls["places"])
	})

	t.Run("geocoding outage", func(t *testing.T) {
		loc := &fakeLocator{cityErr: apperr.Upstream("city coordinates", errors.New("connection refused"))}
		_, err := newLawyerService(loc, &fakeFallback{}).FindInCity(context.Background(), "Paris")
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	})

	t.Run("blank", func(t *testing.T) {
		_, err := newLawyerService(&fakeLocator{}, nil).FindInCity(context.Background(), "  ")
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}

func TestLawyerServiceWithoutLocator(t *testing.T) {
	svc := NewLawyerService()
	ctx := context.Background()

	_, err := svc.Search(ctx, LawyerSearchRequest{FailureReason: ReasonDenied})
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)

	_, err = svc.FindNearby(ctx, sf)
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)

	_, err = svc.ApproximateLocation(ctx)
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)

	_, err = svc.CityCoordinates(ctx, "Paris")
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)
}

func TestFindNearby(t *testing.T) {
	loc := &fakeLocator{lawyers: lawyers(1, 5, 3)}
	svc := newLawyerService(loc, nil)

	got, err := svc.FindNearby(context.Background(), sf)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got[0].Rating)

	_, err = svc.FindNearby(context.Background(), models.Coordinates{Lng: 200})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestModelFallbackRanksAndDefaults(t *testing.T) {
	backend := &scriptedBackend{responses: map[string]string{
		flow.NameLawyerFallback: `{"lawyers": [{"name": "A"}, {"name": "B", "rating": 4.5, "address": "1 Main"}]}`,
	}}
	fb := ModelFallback(flow.NewInvoker(backend))
	svc := NewLawyerService(WithLocator(&fakeLocator{city: sf}), WithFallback(fb))

	res, err := svc.FindInCity(context.Background(), "Denver")
	require.NoError(t, err)

	require.Len(t, res.Lawyers, 2)
	assert.Equal(t, "B", res.Lawyers[0].Name)
	assert.Equal(t, "Address not available", res.Lawyers[1].Address)
	assert.Contains(t, backend.requests[0].Prompt, "Denver")
}
