package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/flow"
	"clausewise-backend/geo"
	"clausewise-backend/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// State is a step of the lawyer search
type State string

const (
	StatePreciseLocating State = "PRECISE_LOCATING"
	StateCoarseLocating  State = "COARSE_LOCATING"
	StatePlacesLookup    State = "PLACES_LOOKUP"
	StateModelFallback   State = "MODEL_FALLBACK"
	StateDone            State = "DONE"
)

// FailureReason is why the client could not report a precise position
type FailureReason string

const (
	ReasonDenied      FailureReason = "denied"
	ReasonTimeout     FailureReason = "timeout"
	ReasonUnsupported FailureReason = "unsupported"
)

// Source tells where the returned lawyers came from
type Source string

const (
	SourcePlaces Source = "places"
	SourceModel  Source = "model"
	SourceNone   Source = "none"
)

const defaultMaxPositionAge = 60 * time.Second

// Locator resolves positions and nearby lawyers
type Locator interface {
	ApproximateLocation(ctx context.Context) (models.Coordinates, error)
	CityCoordinates(ctx context.Context, city string) (models.Coordinates, error)
	NearbyLawyers(ctx context.Context, at models.Coordinates) ([]models.Lawyer, error)
}

// FallbackFunc produces a best-guess lawyer list for a city
type FallbackFunc func(ctx context.Context, city string) ([]models.Lawyer, error)

// ModelFallback asks the completion backend for lawyers in a city.
func ModelFallback(inv *flow.Invoker) FallbackFunc {
	return func(ctx context.Context, city string) ([]models.Lawyer, error) {
		out, err := flow.Invoke(ctx, inv, flow.LawyerFallback, flow.LawyerFallbackInput{CityName: city})
		if err != nil {
			return nil, err
		}
		return out.ToModel(), nil
	}
}

// Position is a client-reported location fix
type Position struct {
	Coordinates models.Coordinates `json:"coordinates"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// LawyerSearchRequest carries what the client knows about its location.
// Either Precise or FailureReason is normally set. CityName, when present,
// stands in for IP geolocation and feeds the model fallback.
type LawyerSearchRequest struct {
	Precise       *Position     `json:"precise,omitempty"`
	FailureReason FailureReason `json:"failure_reason,omitempty" validate:"omitempty,oneof=denied timeout unsupported"`
	CityName      string        `json:"city_name,omitempty"`
}

// LawyerSearchResult holds the ranked lawyers and the states visited
type LawyerSearchResult struct {
	Lawyers []models.Lawyer `json:"lawyers"`
	Source  Source          `json:"source"`
	Trace   []State         `json:"trace"`
}

// LawyerService finds lawyers near the user
type LawyerService struct {
	locator        Locator
	fallback       FallbackFunc
	validate       *validator.Validate
	maxPositionAge time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// LawyerServiceOption is a functional option for LawyerService
type LawyerServiceOption func(*LawyerService)

// WithLocator sets the location and places client
func WithLocator(l Locator) LawyerServiceOption {
	return func(s *LawyerService) {
		s.locator = l
	}
}

// WithFallback sets the model fallback
func WithFallback(f FallbackFunc) LawyerServiceOption {
	return func(s *LawyerService) {
		s.fallback = f
	}
}

// WithMaxPositionAge sets how old a precise position may be
func WithMaxPositionAge(d time.Duration) LawyerServiceOption {
	return func(s *LawyerService) {
		if d > 0 {
			s.maxPositionAge = d
		}
	}
}

// WithLawyerLogger sets the logger
func WithLawyerLogger(l *zap.Logger) LawyerServiceOption {
	return func(s *LawyerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLawyerService creates a new lawyer service
func NewLawyerService(opts ...LawyerServiceOption) *LawyerService {
	s := &LawyerService{
		validate:       flow.NewValidator(),
		maxPositionAge: defaultMaxPositionAge,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LawyerService) geo(op string) (Locator, error) {
	if s.locator == nil {
		return nil, apperr.ConfigurationMissing(op, "location client")
	}
	return s.locator, nil
}

// search is one run of the state machine
type search struct {
	req     LawyerSearchRequest
	at      models.Coordinates
	lawyers []models.Lawyer
	source  Source
	trace   []State
	err     error
}

// Search runs the fallback chain from precise locating
func (s *LawyerService) Search(ctx context.Context, req LawyerSearchRequest) (*LawyerSearchResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.InvalidInput("lawyer-search", "%v", err)
	}
	if req.Precise != nil && !req.Precise.Coordinates.Valid() {
		return nil, apperr.InvalidInput("lawyer-search", "coordinates out of range")
	}
	return s.run(ctx, req, StatePreciseLocating)
}

// FindInCity geocodes a city and searches from there
func (s *LawyerService) FindInCity(ctx context.Context, city string) (*LawyerSearchResult, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperr.InvalidInput("lawyer-search", "city name is required")
	}
	return s.run(ctx, LawyerSearchRequest{CityName: city}, StateCoarseLocating)
}

func (s *LawyerService) run(ctx context.Context, req LawyerSearchRequest, start State) (*LawyerSearchResult, error) {
	sr := &search{req: req, source: SourceNone}
	for state := start; state != StateDone; {
		sr.trace = append(sr.trace, state)
		state = s.step(ctx, state, sr)
	}
	sr.trace = append(sr.trace, StateDone)

	s.logger.Info("lawyer search finished",
		zap.Any("trace", sr.trace),
		zap.String("source", string(sr.source)),
		zap.Int("lawyers", len(sr.lawyers)),
		zap.Error(sr.err))
	if sr.err != nil {
		return nil, sr.err
	}
	if sr.lawyers == nil {
		sr.lawyers = []models.Lawyer{}
	}
	return &LawyerSearchResult{Lawyers: sr.lawyers, Source: sr.source, Trace: sr.trace}, nil
}

// step performs the work of one state and returns the next.
func (s *LawyerService) step(ctx context.Context, state State, sr *search) State {
	switch state {
	case StatePreciseLocating:
		return s.preciseLocating(sr)
	case StateCoarseLocating:
		return s.coarseLocating(ctx, sr)
	case StatePlacesLookup:
		return s.placesLookup(ctx, sr)
	case StateModelFallback:
		return s.modelFallback(ctx, sr)
	default:
		return StateDone
	}
}

func (s *LawyerService) preciseLocating(sr *search) State {
	p := sr.req.Precise
	switch {
	case sr.req.FailureReason != "" || p == nil:
		return StateCoarseLocating
	case !p.CapturedAt.IsZero() && s.now().Sub(p.CapturedAt) > s.maxPositionAge:
		s.logger.Debug("precise position is stale", zap.Time("captured_at", p.CapturedAt))
		return StateCoarseLocating
	}
	sr.at = p.Coordinates
	return StatePlacesLookup
}

func (s *LawyerService) coarseLocating(ctx context.Context, sr *search) State {
	loc, err := s.geo("coarse-locating")
	if err != nil {
		sr.err = err
		return StateDone
	}
	if sr.req.CityName != "" {
		sr.at, err = loc.CityCoordinates(ctx, sr.req.CityName)
		if errors.Is(err, geo.ErrLocationNotFound) {
			return StateModelFallback
		}
	} else {
		sr.at, err = loc.ApproximateLocation(ctx)
	}
	if err != nil {
		sr.err = err
		return StateDone
	}
	return StatePlacesLookup
}

func (s *LawyerService) placesLookup(ctx context.Context, sr *search) State {
	lawyers, err := s.locator.NearbyLawyers(ctx, sr.at)
	if err != nil {
		s.logger.Warn("places lookup failed", zap.Error(err))
		return StateModelFallback
	}
	if len(lawyers) == 0 {
		return StateModelFallback
	}
	sr.lawyers = models.RankLawyers(lawyers, models.TopLawyers)
	sr.source = SourcePlaces
	return StateDone
}

func (s *LawyerService) modelFallback(ctx context.Context, sr *search) State {
	if s.fallback == nil || sr.req.CityName == "" {
		return StateDone
	}
	lawyers, err := s.fallback(ctx, sr.req.CityName)
	if err != nil {
		s.logger.Warn("model fallback failed", zap.String("city", sr.req.CityName), zap.Error(err))
		return StateDone
	}
	if len(lawyers) > 0 {
		sr.lawyers = models.RankLawyers(lawyers, models.TopLawyers)
		sr.source = SourceModel
	}
	return StateDone
}

// FindNearby returns the top lawyers around a coordinate
func (s *LawyerService) FindNearby(ctx context.Context, at models.Coordinates) ([]models.Lawyer, error) {
	loc, err := s.geo("nearby-lawyers")
	if err != nil {
		return nil, err
	}
	if !at.Valid() {
		return nil, apperr.InvalidInput("nearby-lawyers", "coordinates out of range")
	}
	lawyers, err := loc.NearbyLawyers(ctx, at)
	if err != nil {
		return nil, err
	}
	return models.RankLawyers(lawyers, models.TopLawyers), nil
}

// ApproximateLocation estimates the server's location from its IP
func (s *LawyerService) ApproximateLocation(ctx context.Context) (models.Coordinates, error) {
	loc, err := s.geo("approximate-location")
	if err != nil {
		return models.Coordinates{}, err
	}
	return loc.ApproximateLocation(ctx)
}

// CityCoordinates geocodes a city name
func (s *LawyerService) CityCoordinates(ctx context.Context, city string) (models.Coordinates, error) {
	loc, err := s.geo("city-coordinates")
	if err != nil {
		return models.Coordinates{}, err
	}
	return loc.CityCoordinates(ctx, city)
}
