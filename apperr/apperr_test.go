package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := InvalidInput("summarize", "clauseText is required")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, "summarize: invalid input: clauseText is required", err.Error())
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("analyze document: %w", ContractViolation("precautions", "got %d entries", 3))

	assert.ErrorIs(t, err, ErrUpstreamContractViolation)
	assert.Equal(t, KindUpstreamContractViolation, KindOf(err))
}

func TestUpstreamClassification(t *testing.T) {
	t.Run("deadline becomes timeout", func(t *testing.T) {
		err := Upstream("places", fmt.Errorf("get: %w", context.DeadlineExceeded))
		assert.ErrorIs(t, err, ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("other failures are unavailable", func(t *testing.T) {
		err := Upstream("places", errors.New("connection refused"))
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("classified errors pass through", func(t *testing.T) {
		orig := ConfigurationMissing("places", "GOOGLE_PLACES_API_KEY")
		assert.Same(t, orig, Upstream("places", orig))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Upstream("places", nil))
	})
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, "INTERNAL_ERROR", KindUnknown.String())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/x?a=1&key=REDACTED", RedactURL("https://example.com/x?key=secret&a=1"))
	assert.Equal(t, "https://example.com/x", RedactURL("https://example.com/x"))
}

func TestRedactTransportError(t *testing.T) {
	cause := &url.Error{
		Op:  "Post",
		URL: "http://127.0.0.1:1/v1beta/models/m:generateContent?alt=json&key=SECRET-KEY",
		Err: context.DeadlineExceeded,
	}
	err := Upstream("explain-clause-for-role", Redact(fmt.Errorf("gemini generate: %w", cause)))

	assert.NotContains(t, err.Error(), "SECRET-KEY")
	assert.Contains(t, err.Error(), "key=REDACTED")
	assert.ErrorIs(t, err, ErrTimeout, "redaction keeps the cause chain")
	assert.NoError(t, Redact(nil))
}
