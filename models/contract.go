package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Entity represents a named thing mentioned in a clause
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Clause represents a titled segment of a contract
type Clause struct {
	ID       string   `json:"id" binding:"required"`
	Title    string   `json:"title"`
	Text     string   `json:"text" binding:"required"`
	Entities []Entity `json:"entities,omitempty"`
}

// Contract represents a titled list of clauses
type Contract struct {
	Title   string   `json:"title"`
	Clauses []Clause `json:"clauses"`
}

// ExtractedClause represents a clause found by document analysis
type ExtractedClause struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DocumentRiskBreakdown partitions the extracted clauses of a document by risk
type DocumentRiskBreakdown struct {
	HighRiskClauses   []ExtractedClause `json:"high_risk_clauses"`
	MediumRiskClauses []ExtractedClause `json:"medium_risk_clauses"`
	LowRiskClauses    []ExtractedClause `json:"low_risk_clauses"`
}

// buckets returns the three buckets keyed by level.
func (b DocumentRiskBreakdown) buckets() map[RiskLevel][]ExtractedClause {
	return map[RiskLevel][]ExtractedClause{
		RiskHigh:   b.HighRiskClauses,
		RiskMedium: b.MediumRiskClauses,
		RiskLow:    b.LowRiskClauses,
	}
}

// All returns every extracted clause, high bucket first.
func (b DocumentRiskBreakdown) All() []ExtractedClause {
	all := make([]ExtractedClause, 0, len(b.HighRiskClauses)+len(b.MediumRiskClauses)+len(b.LowRiskClauses))
	all = append(all, b.HighRiskClauses...)
	all = append(all, b.MediumRiskClauses...)
	return append(all, b.LowRiskClauses...)
}

// CheckPartition returns an error if any clause appears more than once,
// within a bucket or across buckets. Clauses are compared by normalized text.
func (b DocumentRiskBreakdown) CheckPartition() error {
	seen := make(map[string]RiskLevel)
	for _, level := range []RiskLevel{RiskHigh, RiskMedium, RiskLow} {
		for _, c := range b.buckets()[level] {
			key := normalizeClauseText(c.Text)
			if key == "" {
				return fmt.Errorf("%s bucket contains a clause with empty text", level)
			}
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("clause %q appears in both %s and %s buckets", c.Title, prev, level)
			}
			seen[key] = level
		}
	}
	return nil
}

// AssignIDs numbers the clauses clause-1..clause-N in high, medium, low order.
func (b *DocumentRiskBreakdown) AssignIDs() {
	n := 0
	for _, bucket := range [][]ExtractedClause{b.HighRiskClauses, b.MediumRiskClauses, b.LowRiskClauses} {
		for i := range bucket {
			n++
			bucket[i].ID = fmt.Sprintf("clause-%d", n)
		}
	}
}

func normalizeClauseText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// SafetyAssessment represents the overall safety score of a document
type SafetyAssessment struct {
	SafetyScore float64 `json:"safety_score"`
	KeyRisk     string  `json:"key_risk"`
}

// PrecautionCount is the number of precautions a full-document analysis yields
const PrecautionCount = 4

// DocumentAnalysis represents the merged result of a full-document analysis
type DocumentAnalysis struct {
	Risk        DocumentRiskBreakdown `json:"risk"`
	Safety      SafetyAssessment      `json:"safety"`
	Precautions []string              `json:"precautions"`
	Filename    string                `json:"filename,omitempty"`
	MimeType    string                `json:"mime_type"`
	AnalyzedAt  time.Time             `json:"analyzed_at"`
}

// Clone returns a copy that shares no slices with a.
func (a *DocumentAnalysis) Clone() *DocumentAnalysis {
	cp := *a
	cp.Risk = DocumentRiskBreakdown{
		HighRiskClauses:   slices.Clone(a.Risk.HighRiskClauses),
		MediumRiskClauses: slices.Clone(a.Risk.MediumRiskClauses),
		LowRiskClauses:    slices.Clone(a.Risk.LowRiskClauses),
	}
	cp.Precautions = slices.Clone(a.Precautions)
	return &cp
}

// Clauses converts the extracted clauses into clause records.
func (a *DocumentAnalysis) Clauses() []Clause {
	all := a.Risk.All()
	clauses := make([]Clause, 0, len(all))
	for _, c := range all {
		clauses = append(clauses, Clause{ID: c.ID, Title: c.Title, Text: c.Text})
	}
	return clauses
}

// Value implements driver.Valuer for JSONB
func (a DocumentAnalysis) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB
func (a *DocumentAnalysis) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// DetailLevel controls the length of a clause summary
type DetailLevel string

const (
	DetailShort   DetailLevel = "short"
	DetailMedium  DetailLevel = "medium"
	DetailVerbose DetailLevel = "verbose"
)

// UserRole selects the audience of a clause explanation
type UserRole string

const (
	RoleLawyer       UserRole = "lawyer"
	RoleEntrepreneur UserRole = "entrepreneur"
	RoleStudent      UserRole = "student"
)

// Summary represents a plain-language clause summary
type Summary struct {
	Summary      string   `json:"summary"`
	BulletPoints []string `json:"bullet_points"`
}

// Explanation represents a clause explained for a role
type Explanation struct {
	Explanation string `json:"explanation"`
}

// Answer represents an answer to a question about a contract
type Answer struct {
	Answer string `json:"answer"`
}

// Rewrite represents a suggested clause rewrite
type Rewrite struct {
	SuggestedRewrite string `json:"suggested_rewrite"`
}

// Outcome represents a predicted outcome of a clause in a situation
type Outcome struct {
	PredictedOutcome string `json:"predicted_outcome"`
}
