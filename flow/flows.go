package flow

import (
	"errors"
	"fmt"
	"strings"

	"clausewise-backend/models"

	"github.com/google/generative-ai-go/genai"
)

// Flow names.
const (
	NameClauseRisk          = "risk-score-clause"
	NameDocumentRisk        = "risk-categorize-document"
	NameDocumentSafety      = "safety-score-document"
	NameDocumentPrecautions = "document-precautions"
	NameSummarizeClause     = "summarize-clause"
	NameExplainClause       = "explain-clause-for-role"
	NameAnswerQuestion      = "answer-question"
	NameSuggestRewrite      = "suggest-rewrite"
	NamePredictOutcome      = "predict-outcome"
	NameLawyerFallback      = "lawyers-fallback"
)

// Inputs

type ClauseRiskInput struct {
	Clause string `json:"clause" validate:"required"`
}

// DocumentInput carries a document either as an attachment or as text
// extracted beforehand.
type DocumentInput struct {
	Document *Attachment `json:"document" validate:"required_without=Text"`
	Text     string      `json:"documentText" validate:"required_without=Document"`
}

type SummarizeInput struct {
	ClauseText  string             `json:"clauseText" validate:"required"`
	DetailLevel models.DetailLevel `json:"detailLevel" validate:"required,oneof=short medium verbose"`
}

type ExplainInput struct {
	ClauseText string          `json:"clauseText" validate:"required"`
	UserRole   models.UserRole `json:"userRole" validate:"required,oneof=lawyer entrepreneur student"`
}

type AnswerInput struct {
	Question        string               `json:"question" validate:"required"`
	Document        *Attachment          `json:"document"`
	DocumentText    string               `json:"documentText"`
	RelevantClauses []string             `json:"relevantClauses" validate:"omitempty,dive,required"`
	History         []models.ChatMessage `json:"history" validate:"omitempty,dive"`
}

type RewriteInput struct {
	ClauseText  string `json:"clauseText" validate:"required"`
	Instruction string `json:"rewriteInstruction"`
}

type OutcomeInput struct {
	ClauseText string `json:"clauseText" validate:"required"`
	Situation  string `json:"situation" validate:"required"`
}

type LawyerFallbackInput struct {
	CityName string `json:"cityName" validate:"required"`
}

// Outputs. Numeric fields are pointers so a missing value is told apart
// from zero.

type ClauseRiskOutput struct {
	RiskScore *float64 `json:"riskScore" validate:"required,gte=0,lte=100"`
	RiskLevel string   `json:"riskLevel" validate:"required,oneof=high medium low"`
	ColorCode string   `json:"colorCode" validate:"required,oneof=red amber green"`
}

func (o *ClauseRiskOutput) ToModel() models.RiskAssessment {
	return models.RiskAssessment{
		RiskScore: *o.RiskScore,
		RiskLevel: models.RiskLevel(o.RiskLevel),
		ColorCode: models.ColorCode(o.ColorCode),
	}
}

type ExtractedClause struct {
	Title string `json:"title" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

type DocumentRiskOutput struct {
	HighRiskClauses   []ExtractedClause `json:"highRiskClauses" validate:"required,dive"`
	MediumRiskClauses []ExtractedClause `json:"mediumRiskClauses" validate:"required,dive"`
	LowRiskClauses    []ExtractedClause `json:"lowRiskClauses" validate:"required,dive"`
}

func (o *DocumentRiskOutput) ToModel() models.DocumentRiskBreakdown {
	conv := func(in []ExtractedClause) []models.ExtractedClause {
		out := make([]models.ExtractedClause, 0, len(in))
		for _, c := range in {
			out = append(out, models.ExtractedClause{Title: c.Title, Text: c.Text})
		}
		return out
	}
	b := models.DocumentRiskBreakdown{
		HighRiskClauses:   conv(o.HighRiskClauses),
		MediumRiskClauses: conv(o.MediumRiskClauses),
		LowRiskClauses:    conv(o.LowRiskClauses),
	}
	b.AssignIDs()
	return b
}

type DocumentSafetyOutput struct {
	SafetyScore *float64 `json:"safetyScore" validate:"required,gte=0,lte=100"`
	KeyRisk     string   `json:"keyRisk" validate:"required"`
}

func (o *DocumentSafetyOutput) ToModel() models.SafetyAssessment {
	return models.SafetyAssessment{SafetyScore: *o.SafetyScore, KeyRisk: o.KeyRisk}
}

type PrecautionsOutput struct {
	Precautions []string `json:"precautions" validate:"required,len=4,dive,required"`
}

type SummarizeOutput struct {
	Summary      string   `json:"summary" validate:"required"`
	BulletPoints []string `json:"bulletPoints" validate:"required,dive,required"`
}

type ExplainOutput struct {
	Explanation string `json:"explanation" validate:"required"`
}

type AnswerOutput struct {
	Answer string `json:"answer" validate:"required"`
}

type RewriteOutput struct {
	SuggestedRewrite string `json:"suggestedRewrite" validate:"required"`
}

type OutcomeOutput struct {
	PredictedOutcome string `json:"predictedOutcome" validate:"required"`
}

type FallbackLawyer struct {
	Name    string   `json:"name" validate:"required"`
	Address string   `json:"address"`
	Rating  *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	PlaceID string   `json:"placeId"`
}

type LawyerFallbackOutput struct {
	Lawyers []FallbackLawyer `json:"lawyers" validate:"required,dive"`
}

func (o *LawyerFallbackOutput) ToModel() []models.Lawyer {
	out := make([]models.Lawyer, 0, len(o.Lawyers))
	for _, l := range o.Lawyers {
		lawyer := models.Lawyer{Name: l.Name, Address: l.Address, PlaceID: l.PlaceID}
		if l.Rating != nil {
			lawyer.Rating = *l.Rating
		}
		if lawyer.Address == "" {
			lawyer.Address = "Address not available"
		}
		out = append(out, lawyer)
	}
	return out
}

// Schemas

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func num(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func enum(desc string, values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc, Enum: values}
}

func arrayOf(desc string, items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: items}
}

func object(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

var clauseSchema = object(map[string]*genai.Schema{
	"title": str("The title or heading of the clause."),
	"text":  str("The full text of the clause."),
}, "title", "text")

// Prompts

const documentBlock = `{{if .Text}}Document text:
{{.Text}}{{else}}The contract document is attached.{{end}}`

const clauseRiskPrompt = `You are a legal risk assessment expert.

Score the risk of the following clause for the party signing it.

Clause: {{.Clause}}

Return riskScore between 0 and 100. riskLevel must be "low" below 33, "medium" below 67 and "high" otherwise.
colorCode is "green" for low, "amber" for medium and "red" for high.`

const documentRiskPrompt = `You are a legal analyst reviewing a contract.

Identify every clause in the document and place each one in exactly one of
highRiskClauses, mediumRiskClauses or lowRiskClauses. Uncapped liabilities,
one-sided indemnities and ambiguous obligations are high risk. Broad but
standard terms are medium risk. Boilerplate such as governing law or notices
is low risk. Give each clause its title and full text. Never list a clause twice.

` + documentBlock

const documentSafetyPrompt = `You are a legal analyst reviewing a contract.

Rate how safe the document is to sign as safetyScore between 0 (dangerous)
and 100 (safe), and name the single most important risk as keyRisk.

` + documentBlock

const precautionsPrompt = `You are a legal advisor.

List exactly four concrete precautions the signing party should take before
signing this contract, most important first.

` + documentBlock

const summarizePrompt = `You are a legal summarizer who explains clauses in plain English.

Summarize the clause and list its key points. Level of detail: {{.DetailLevel}}.

Clause text: {{.ClauseText}}`

const explainPrompt = `You are a legal educator.

Explain the clause below for a reader who is a {{.UserRole}}. Match the
vocabulary and the concerns of that reader.

Clause text: {{.ClauseText}}`

const answerPrompt = `You are a legal assistant answering questions about a contract.
{{if .Document}}
The contract is attached. Use it as the primary source.
{{else if .DocumentText}}
Contract text:
{{.DocumentText}}
{{else if .RelevantClauses}}
Use these clauses and cite the ones you rely on:
{{range .RelevantClauses}}- {{.}}
{{end}}{{else}}
No contract has been provided. Say so if the question needs one.
{{end}}{{if .History}}
Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{end}}{{end}}
Question: {{.Question}}`

const rewritePrompt = `You are a contract drafter.

Rewrite the clause so it is clearer and fairer to the signing party.
{{if .Instruction}}Follow this instruction: {{.Instruction}}
{{end}}
Clause text: {{.ClauseText}}`

const outcomePrompt = `You are a litigation analyst.

Predict the likely outcome of the situation below under the given clause.

Clause text: {{.ClauseText}}

Situation: {{.Situation}}`

const lawyerFallbackPrompt = `You are a local search assistant.

List the top-rated lawyers or law firms in {{.CityName}}. For each give name,
full street address, rating between 0 and 5 (0 if unknown) and the Google
Place ID as placeId.`

// Flow definitions

var ClauseRisk = func() *Flow[ClauseRiskInput, ClauseRiskOutput] {
	f := newFlow[ClauseRiskInput, ClauseRiskOutput](NameClauseRisk, clauseRiskPrompt, object(map[string]*genai.Schema{
		"riskScore": num("Risk score from 0 to 100."),
		"riskLevel": enum("Risk band.", "high", "medium", "low"),
		"colorCode": enum("Display color.", "red", "amber", "green"),
	}, "riskScore", "riskLevel", "colorCode"))
	f.check = func(o *ClauseRiskOutput) error {
		if !o.ToModel().Consistent() {
			return fmt.Errorf("riskLevel %q and colorCode %q do not match score %v", o.RiskLevel, o.ColorCode, *o.RiskScore)
		}
		return nil
	}
	return f
}()

var DocumentRisk = func() *Flow[DocumentInput, DocumentRiskOutput] {
	f := newFlow[DocumentInput, DocumentRiskOutput](NameDocumentRisk, documentRiskPrompt, object(map[string]*genai.Schema{
		"highRiskClauses":   arrayOf("High risk clauses.", clauseSchema),
		"mediumRiskClauses": arrayOf("Medium risk clauses.", clauseSchema),
		"lowRiskClauses":    arrayOf("Low risk clauses.", clauseSchema),
	}, "highRiskClauses", "mediumRiskClauses", "lowRiskClauses"))
	f.attach = documentAttachment
	f.check = func(o *DocumentRiskOutput) error {
		return o.ToModel().CheckPartition()
	}
	return f
}()

var DocumentSafety = func() *Flow[DocumentInput, DocumentSafetyOutput] {
	f := newFlow[DocumentInput, DocumentSafetyOutput](NameDocumentSafety, documentSafetyPrompt, object(map[string]*genai.Schema{
		"safetyScore": num("Safety score from 0 to 100."),
		"keyRisk":     str("The most important risk."),
	}, "safetyScore", "keyRisk"))
	f.attach = documentAttachment
	return f
}()

var DocumentPrecautions = func() *Flow[DocumentInput, PrecautionsOutput] {
	f := newFlow[DocumentInput, PrecautionsOutput](NameDocumentPrecautions, precautionsPrompt, object(map[string]*genai.Schema{
		"precautions": arrayOf("Exactly four precautions.", str("")),
	}, "precautions"))
	f.attach = documentAttachment
	return f
}()

var SummarizeClause = newFlow[SummarizeInput, SummarizeOutput](NameSummarizeClause, summarizePrompt, object(map[string]*genai.Schema{
	"summary":      str("Plain English summary."),
	"bulletPoints": arrayOf("Key points.", str("")),
}, "summary", "bulletPoints"))

var ExplainClause = newFlow[ExplainInput, ExplainOutput](NameExplainClause, explainPrompt, object(map[string]*genai.Schema{
	"explanation": str("Explanation for the reader."),
}, "explanation"))

var AnswerQuestion = func() *Flow[AnswerInput, AnswerOutput] {
	f := newFlow[AnswerInput, AnswerOutput](NameAnswerQuestion, answerPrompt, object(map[string]*genai.Schema{
		"answer": str("Answer in markdown."),
	}, "answer"))
	f.attach = func(in *AnswerInput) *Attachment { return in.Document }
	return f
}()

var SuggestRewrite = newFlow[RewriteInput, RewriteOutput](NameSuggestRewrite, rewritePrompt, object(map[string]*genai.Schema{
	"suggestedRewrite": str("The rewritten clause."),
}, "suggestedRewrite"))

var PredictOutcome = newFlow[OutcomeInput, OutcomeOutput](NamePredictOutcome, outcomePrompt, object(map[string]*genai.Schema{
	"predictedOutcome": str("The predicted outcome."),
}, "predictedOutcome"))

var LawyerFallback = func() *Flow[LawyerFallbackInput, LawyerFallbackOutput] {
	f := newFlow[LawyerFallbackInput, LawyerFallbackOutput](NameLawyerFallback, lawyerFallbackPrompt, object(map[string]*genai.Schema{
		"lawyers": arrayOf("Lawyers found.", object(map[string]*genai.Schema{
			"name":    str("Name of the lawyer or firm."),
			"address": str("Street address."),
			"rating":  num("Rating from 0 to 5."),
			"placeId": str("Google Place ID."),
		}, "name")),
	}, "lawyers"))
	f.check = func(o *LawyerFallbackOutput) error {
		for _, l := range o.Lawyers {
			if strings.TrimSpace(l.Name) == "" {
				return errors.New("lawyer with blank name")
			}
		}
		return nil
	}
	return f
}()

func documentAttachment(in *DocumentInput) *Attachment {
	if in.Text != "" {
		return nil
	}
	return in.Document
}
