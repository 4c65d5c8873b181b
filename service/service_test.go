package service

import (
	"archive/zip"
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"clausewise-backend/flow"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedBackend answers each flow with a canned response and records
// every request. Flows listed in block wait for cancellation.
type scriptedBackend struct {
	mu          sync.Mutex
	responses   map[string]string
	respond     func(req flow.Request) string
	errs        map[string]error
	block       map[string]bool
	delay       func(req flow.Request) time.Duration
	requests    []flow.Request
	inFlight    int
	maxInFlight int
}

func (b *scriptedBackend) Complete(ctx context.Context, req flow.Request) ([]byte, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if b.delay != nil {
		select {
		case <-time.After(b.delay(req)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.block[req.Flow] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := b.errs[req.Flow]; err != nil {
		return nil, err
	}
	if b.respond != nil {
		return []byte(b.respond(req)), nil
	}
	return []byte(b.responses[req.Flow]), nil
}

func (b *scriptedBackend) flowsCalled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.requests))
	for _, r := range b.requests {
		names = append(names, r.Flow)
	}
	return names
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

const (
	riskJSON = `{
		"highRiskClauses": [{"title": "Liability", "text": "Liability is uncapped."}],
		"mediumRiskClauses": [{"title": "Term", "text": "Two years."}, {"title": "Remedies", "text": "Injunctive relief."}],
		"lowRiskClauses": [{"title": "Law", "text": "California law applies."}]
	}`
	safetyJSON      = `{"safetyScore": 35, "keyRisk": "Uncapped liability"}`
	precautionsJSON = `{"precautions": ["Cap liability", "Shorten term", "Define remedies", "Review law"]}`
)

func documentResponses() map[string]string {
	return map[string]string{
		flow.NameDocumentRisk:        riskJSON,
		flow.NameDocumentSafety:      safetyJSON,
		flow.NameDocumentPrecautions: precautionsJSON,
	}
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
