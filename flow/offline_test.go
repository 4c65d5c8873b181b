package flow

import (
	"context"
	"testing"

	"clausewise-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineInvoker() *Invoker {
	return NewInvoker(NewOfflineBackend())
}

func TestOfflineClauseRiskHighMarkers(t *testing.T) {
	for _, clause := range []string{
		"This indemnification is uncapped and applies to all damages.",
		"The Supplier accepts unlimited liability for any breach.",
	} {
		out, err := Invoke(context.Background(), offlineInvoker(), ClauseRisk, ClauseRiskInput{Clause: clause})
		require.NoError(t, err)
		ra := out.ToModel()
		assert.Equal(t, models.RiskHigh, ra.RiskLevel, clause)
		assert.True(t, ra.Consistent())
	}
}

func TestOfflineClauseRiskReasonableEfforts(t *testing.T) {
	out, err := Invoke(context.Background(), offlineInvoker(), ClauseRisk, ClauseRiskInput{
		Clause: "Each party shall use reasonable efforts to resolve disputes and may terminate on notice.",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, out.ToModel().RiskLevel)
	assert.Equal(t, models.ColorGreen, out.ToModel().ColorCode)
}

func TestOfflineSampleContractScores(t *testing.T) {
	want := map[string]models.RiskLevel{
		"clause-1": models.RiskLow,
		"clause-2": models.RiskLow,
		"clause-3": models.RiskMedium,
		"clause-4": models.RiskMedium,
		"clause-5": models.RiskLow,
		"clause-6": models.RiskHigh,
	}
	for _, c := range models.SampleContract().Clauses {
		out, err := Invoke(context.Background(), offlineInvoker(), ClauseRisk, ClauseRiskInput{Clause: c.Text})
		require.NoError(t, err)
		assert.Equal(t, want[c.ID], out.ToModel().RiskLevel, c.ID)
	}
}

const ndaText = `Confidentiality
The Receiving Party shall hold information in strictest confidence.

Liability
The Receiving Party accepts unlimited liability for any disclosure.

Governing Law
This Agreement is governed by the laws of California.

Cooperation
Each party will use reasonable efforts to cooperate.`

func TestOfflineDocumentFlows(t *testing.T) {
	inv := offlineInvoker()
	in := DocumentInput{Text: ndaText}

	risk, err := Invoke(context.Background(), inv, DocumentRisk, in)
	require.NoError(t, err)
	breakdown := risk.ToModel()
	require.NoError(t, breakdown.CheckPartition())
	assert.Len(t, breakdown.All(), 4)
	require.Len(t, breakdown.HighRiskClauses, 1)
	assert.Equal(t, "Liability", breakdown.HighRiskClauses[0].Title)
	assert.Equal(t, "clause-1", breakdown.HighRiskClauses[0].ID)

	safety, err := Invoke(context.Background(), inv, DocumentSafety, in)
	require.NoError(t, err)
	assert.Equal(t, 10.0, *safety.SafetyScore)
	assert.Contains(t, safety.KeyRisk, "Liability")

	prec, err := Invoke(context.Background(), inv, DocumentPrecautions, in)
	require.NoError(t, err)
	assert.Len(t, prec.Precautions, models.PrecautionCount)
	assert.Contains(t, prec.Precautions[0], "Liability")
}

func TestOfflineAttachmentPlaceholder(t *testing.T) {
	in := DocumentInput{Document: &Attachment{MIMEType: "application/pdf", Data: []byte("%PDF-1.4")}}

	risk, err := Invoke(context.Background(), offlineInvoker(), DocumentRisk, in)

	require.NoError(t, err)
	assert.Len(t, risk.ToModel().All(), 1)
}

func TestOfflineSummaryDetail(t *testing.T) {
	text := "First sentence. Second sentence. Third sentence."
	for level, bullets := range map[models.DetailLevel]int{
		models.DetailShort:   1,
		models.DetailMedium:  2,
		models.DetailVerbose: 3,
	} {
		out, err := Invoke(context.Background(), offlineInvoker(), SummarizeClause, SummarizeInput{ClauseText: text, DetailLevel: level})
		require.NoError(t, err)
		assert.Len(t, out.BulletPoints, bullets, string(level))
	}
}

func TestOfflineRewriteAndAnswer(t *testing.T) {
	inv := offlineInvoker()

	rw, err := Invoke(context.Background(), inv, SuggestRewrite, RewriteInput{
		ClauseText:  "This indemnification is Uncapped.",
		Instruction: "favor the receiving party",
	})
	require.NoError(t, err)
	assert.NotContains(t, rw.SuggestedRewrite, "Uncapped")
	assert.Contains(t, rw.SuggestedRewrite, "favor the receiving party")

	ans, err := Invoke(context.Background(), inv, AnswerQuestion, AnswerInput{
		Question:        "Which law governs the agreement?",
		RelevantClauses: []string{"Term: lasts two years.", "Governing Law: this agreement is governed by the laws of California."},
	})
	require.NoError(t, err)
	assert.Contains(t, ans.Answer, "California")

	fb, err := Invoke(context.Background(), inv, LawyerFallback, LawyerFallbackInput{CityName: "Austin"})
	require.NoError(t, err)
	assert.Empty(t, fb.Lawyers)
}

func TestSplitClauses(t *testing.T) {
	clauses := SplitClauses("Term:\nTwo years.\r\n\r\nNo heading here. Just text.\n\nTerm:\nTwo years.")

	require.Len(t, clauses, 2)
	assert.Equal(t, "Term", clauses[0].Title)
	assert.Equal(t, "Two years.", clauses[0].Text)
	assert.Equal(t, "Clause 2", clauses[1].Title)
}

func TestSplitClausesHeadingParagraphs(t *testing.T) {
	clauses := SplitClauses("1. Term\n\nThis agreement lasts two years.\n\nGoverning Law\n\nCalifornia law applies.")

	require.Len(t, clauses, 2)
	assert.Equal(t, "1. Term", clauses[0].Title)
	assert.Equal(t, "Governing Law", clauses[1].Title)
	assert.Equal(t, "California law applies.", clauses[1].Text)
}
