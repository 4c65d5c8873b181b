package bootstrap

import (
	"context"
	"testing"

	"clausewise-backend/apperr"
	"clausewise-backend/config"
	"clausewise-backend/models"
	"clausewise-backend/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOffline(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = config.ProviderOffline

	app, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	res, err := app.Contracts.AnalyzeClauseRisk(context.Background(), service.AnalyzeClauseRiskRequest{
		Clauses: models.SampleContract().Clauses,
	})
	require.NoError(t, err)
	assert.Len(t, res.Results, 6)

	_, err = app.Contracts.RegisterDocument(context.Background(), service.RegisterDocumentRequest{Filename: "a.pdf", Data: []byte("%PDF-1.7")})
	assert.ErrorIs(t, err, service.ErrDocumentRegistryDisabled)

	_, err = app.Lawyers.ApproximateLocation(context.Background())
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing, "no key means no location, never a default")
}

func TestNewGeminiWithoutKey(t *testing.T) {
	cfg := config.DefaultConfig()

	app, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Contracts.SummarizeClause(context.Background(), "Liability is uncapped.", models.DetailShort)
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = config.ProviderOffline
	cfg.Redis.Addr = mr.Addr()

	app, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Contracts.AnswerQuestion(context.Background(), service.AnswerQuestionRequest{
		SessionID:       "s1",
		Question:        "How long does the agreement last?",
		RelevantClauses: []string{"Term: This Agreement lasts two years."},
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("clausewise:session:s1:messages"))
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.DefaultConfig()
	cfg.LLM.Provider = config.ProviderOffline
	cfg.Redis.Addr = addr

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "redis")
}
