package models

// RiskLevel represents the risk band of a clause
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ColorCode represents the display color paired with a risk level
type ColorCode string

const (
	ColorGreen ColorCode = "green"
	ColorAmber ColorCode = "amber"
	ColorRed   ColorCode = "red"
)

// Band boundaries. A score below LowRiskCeiling is low, below
// MediumRiskCeiling is medium, anything else is high.
const (
	LowRiskCeiling    = 33.0
	MediumRiskCeiling = 67.0
	MaxRiskScore      = 100.0
)

// RiskAssessment represents the scored risk of a single clause
type RiskAssessment struct {
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	ColorCode ColorCode `json:"color_code"`
}

// ClauseRisk pairs an assessment with the clause it was computed for
type ClauseRisk struct {
	ClauseID string `json:"clause_id"`
	RiskAssessment
}

// BandFor maps a score in [0,100] to its level and color.
func BandFor(score float64) (RiskLevel, ColorCode) {
	switch {
	case score < LowRiskCeiling:
		return RiskLow, ColorGreen
	case score < MediumRiskCeiling:
		return RiskMedium, ColorAmber
	default:
		return RiskHigh, ColorRed
	}
}

// NewRiskAssessment builds an assessment whose level and color follow the score.
func NewRiskAssessment(score float64) RiskAssessment {
	level, color := BandFor(score)
	return RiskAssessment{RiskScore: score, RiskLevel: level, ColorCode: color}
}

// InRange reports whether the score lies in [0,100].
func (r RiskAssessment) InRange() bool {
	return r.RiskScore >= 0 && r.RiskScore <= MaxRiskScore
}

// Consistent reports whether level and color match the band of the score.
func (r RiskAssessment) Consistent() bool {
	level, color := BandFor(r.RiskScore)
	return r.RiskLevel == level && r.ColorCode == color
}
