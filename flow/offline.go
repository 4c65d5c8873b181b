package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"clausewise-backend/models"
)

// OfflineBackend answers every flow with deterministic rules and no model.
// It is meant for development and demos. Attachments are not read, so
// document flows on PDFs and images see a placeholder clause.
type OfflineBackend struct{}

func NewOfflineBackend() *OfflineBackend { return &OfflineBackend{} }

var (
	highRiskMarkers = []string{
		"uncapped", "unlimited liability", "unlimited", "sole discretion",
		"punitive", "irrevocable", "perpetual", "waives all",
	}
	lowRiskMarkers    = []string{"reasonable efforts", "mutual", "reasonable notice"}
	mediumRiskMarkers = []string{
		"indemnif", "terminat", "non-compete", "penalt", "sole and exclusive",
		"automatic renewal", "strictest confidence", "liquidated damages",
	}
)

// ScoreClause rates a clause from its wording.
func ScoreClause(text string) float64 {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, highRiskMarkers):
		return 90
	case containsAny(lower, lowRiskMarkers):
		return 15
	case containsAny(lower, mediumRiskMarkers):
		return 50
	default:
		return 25
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (b *OfflineBackend) Complete(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out any
	switch in := req.Input.(type) {
	case *ClauseRiskInput:
		ra := models.NewRiskAssessment(ScoreClause(in.Clause))
		out = ClauseRiskOutput{RiskScore: &ra.RiskScore, RiskLevel: string(ra.RiskLevel), ColorCode: string(ra.ColorCode)}
	case *DocumentInput:
		out = offlineDocument(req.Flow, in)
	case *SummarizeInput:
		out = offlineSummary(in)
	case *ExplainInput:
		out = ExplainOutput{Explanation: offlineExplanation(in)}
	case *AnswerInput:
		out = AnswerOutput{Answer: offlineAnswer(in)}
	case *RewriteInput:
		out = RewriteOutput{SuggestedRewrite: offlineRewrite(in)}
	case *OutcomeInput:
		out = OutcomeOutput{PredictedOutcome: offlineOutcome(in)}
	case *LawyerFallbackInput:
		// No directory is available without a model.
		out = LawyerFallbackOutput{Lawyers: []FallbackLawyer{}}
	default:
		return nil, fmt.Errorf("offline backend: unsupported flow %s", req.Flow)
	}
	return json.Marshal(out)
}

type offlineClause struct {
	title string
	text  string
	score float64
}

// SplitClauses breaks plain text into titled clauses on blank lines.
// A short line without a final period, alone or leading a paragraph, is
// taken as the title of the text that follows it.
func SplitClauses(text string) []ExtractedClause {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var clauses []ExtractedClause
	seen := make(map[string]bool)
	pending := ""
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		title, body := pending, para
		pending = ""
		first, rest, multiline := strings.Cut(para, "\n")
		switch {
		case !multiline && isHeading(para):
			pending = strings.TrimRight(para, ":")
			continue
		case multiline && isHeading(strings.TrimSpace(first)) && strings.TrimSpace(rest) != "":
			title, body = strings.TrimRight(strings.TrimSpace(first), ":"), strings.TrimSpace(rest)
		}
		key := strings.ToLower(strings.Join(strings.Fields(body), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		if title == "" {
			title = fmt.Sprintf("Clause %d", len(clauses)+1)
		}
		clauses = append(clauses, ExtractedClause{Title: title, Text: body})
	}
	return clauses
}

func isHeading(line string) bool {
	return len(line) <= 80 && !strings.HasSuffix(line, ".")
}

func offlineClauses(in *DocumentInput) []offlineClause {
	var extracted []ExtractedClause
	if in.Text != "" {
		extracted = SplitClauses(in.Text)
	}
	if len(extracted) == 0 && in.Document != nil {
		extracted = []ExtractedClause{{
			Title: "Uploaded document",
			Text:  fmt.Sprintf("A %s document of %d bytes that was not read offline.", in.Document.MIMEType, len(in.Document.Data)),
		}}
	}
	out := make([]offlineClause, 0, len(extracted))
	for _, c := range extracted {
		out = append(out, offlineClause{title: c.Title, text: c.Text, score: ScoreClause(c.Text)})
	}
	return out
}

func offlineDocument(flowName string, in *DocumentInput) any {
	clauses := offlineClauses(in)
	switch flowName {
	case NameDocumentSafety:
		worst := offlineClause{title: "No significant risks identified"}
		for _, c := range clauses {
			if c.score > worst.score {
				worst = c
			}
		}
		safety := 100 - worst.score
		key := worst.title
		if worst.score >= models.MediumRiskCeiling {
			key = fmt.Sprintf("%s: %s", worst.title, firstSentence(worst.text))
		}
		return DocumentSafetyOutput{SafetyScore: &safety, KeyRisk: key}
	case NameDocumentPrecautions:
		return PrecautionsOutput{Precautions: offlinePrecautions(clauses)}
	default:
		out := DocumentRiskOutput{
			HighRiskClauses:   []ExtractedClause{},
			MediumRiskClauses: []ExtractedClause{},
			LowRiskClauses:    []ExtractedClause{},
		}
		for _, c := range clauses {
			ec := ExtractedClause{Title: c.title, Text: c.text}
			switch level, _ := models.BandFor(c.score); level {
			case models.RiskHigh:
				out.HighRiskClauses = append(out.HighRiskClauses, ec)
			case models.RiskMedium:
				out.MediumRiskClauses = append(out.MediumRiskClauses, ec)
			default:
				out.LowRiskClauses = append(out.LowRiskClauses, ec)
			}
		}
		return out
	}
}

func offlinePrecautions(clauses []offlineClause) []string {
	var out []string
	for _, c := range clauses {
		if len(out) == 2 {
			break
		}
		if level, _ := models.BandFor(c.score); level == models.RiskHigh {
			out = append(out, fmt.Sprintf("Negotiate a cap or carve-out for %q before signing.", c.title))
		}
	}
	generic := []string{
		"Have a qualified lawyer review the full agreement.",
		"Confirm every defined term matches your understanding of the deal.",
		"Check termination rights and notice periods on both sides.",
		"Keep a signed copy and track every deadline the agreement sets.",
	}
	for _, g := range generic {
		if len(out) == models.PrecautionCount {
			break
		}
		out = append(out, g)
	}
	return out
}

func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '.' && (i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n') {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func firstSentence(text string) string {
	if s := sentences(text); len(s) > 0 {
		return s[0]
	}
	return text
}

func offlineSummary(in *SummarizeInput) SummarizeOutput {
	s := sentences(in.ClauseText)
	n := 2
	switch in.DetailLevel {
	case models.DetailShort:
		n = 1
	case models.DetailVerbose:
		n = len(s)
	}
	if n > len(s) {
		n = len(s)
	}
	bullets := append([]string{}, s[:n]...)
	if len(bullets) == 0 {
		bullets = append(bullets, in.ClauseText)
	}
	level, _ := models.BandFor(ScoreClause(in.ClauseText))
	return SummarizeOutput{
		Summary:      fmt.Sprintf("This %s-risk clause says: %s", level, strings.Join(s[:n], " ")),
		BulletPoints: bullets,
	}
}

func offlineExplanation(in *ExplainInput) string {
	lead := firstSentence(in.ClauseText)
	level, _ := models.BandFor(ScoreClause(in.ClauseText))
	switch in.UserRole {
	case models.RoleLawyer:
		return fmt.Sprintf("Operative language: %q. Assessed as %s risk; review allocation of obligations and any limitation of liability.", lead, level)
	case models.RoleStudent:
		return fmt.Sprintf("In simple terms, this part of the contract says: %s It is considered %s risk.", lead, level)
	default:
		return fmt.Sprintf("For your business this means: %s Treat it as %s risk when negotiating.", lead, level)
	}
}

func offlineAnswer(in *AnswerInput) string {
	sources := in.RelevantClauses
	if len(sources) == 0 && in.DocumentText != "" {
		for _, c := range SplitClauses(in.DocumentText) {
			sources = append(sources, c.Title+": "+c.Text)
		}
	}
	if len(sources) == 0 {
		return "I can answer questions about a contract once one is provided. Try asking about your obligations or how long the agreement lasts."
	}

	words := strings.Fields(strings.ToLower(in.Question))
	best, bestHits := "", 0
	for _, c := range sources {
		lower := strings.ToLower(c)
		hits := 0
		for _, w := range words {
			w = strings.Trim(w, "?.,!\"'")
			if len(w) > 3 && strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c, hits
		}
	}
	if best == "" {
		return "The provided clauses do not address that question directly."
	}
	return fmt.Sprintf("Based on **%s**", firstSentence(best))
}

var rewriteReplacements = []struct{ from, to string }{
	{"uncapped", "capped at the total fees paid in the twelve months before the claim"},
	{"unlimited liability", "liability limited to direct damages"},
	{"any and all claims", "third-party claims"},
	{"sole discretion", "reasonable discretion"},
	{"punitive damages", "direct damages"},
}

func offlineRewrite(in *RewriteInput) string {
	out := in.ClauseText
	for _, r := range rewriteReplacements {
		out = replaceFold(out, r.from, r.to)
	}
	if in.Instruction != "" {
		out += fmt.Sprintf(" [Revised per instruction: %s]", in.Instruction)
	}
	return out
}

func replaceFold(s, old, repl string) string {
	return regexp.MustCompile("(?i)"+regexp.QuoteMeta(old)).ReplaceAllLiteralString(s, repl)
}

func offlineOutcome(in *OutcomeInput) string {
	level, _ := models.BandFor(ScoreClause(in.ClauseText))
	switch level {
	case models.RiskHigh:
		return fmt.Sprintf("If %s, the clause is likely to be enforced against the signing party with significant exposure.", strings.TrimSuffix(in.Situation, "."))
	case models.RiskMedium:
		return fmt.Sprintf("If %s, the outcome depends on how a court reads the clause; expect negotiation or a partial remedy.", strings.TrimSuffix(in.Situation, "."))
	default:
		return fmt.Sprintf("If %s, the clause offers limited grounds for a claim and the matter is likely to resolve without major liability.", strings.TrimSuffix(in.Situation, "."))
	}
}
