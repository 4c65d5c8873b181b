// Package flow is the typed contract layer between the application and the
// completion backend. A Flow pairs a prompt template with an input shape and
// an output shape. Invoke validates both sides and makes exactly one backend
// call per invocation.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/template"
	"time"

	"clausewise-backend/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// Attachment is a binary document the model reads directly.
type Attachment struct {
	MIMEType string `json:"mimeType" validate:"required,oneof=application/pdf image/png image/jpeg"`
	Data     []byte `json:"data" validate:"required,min=1"`
}

// Request is a single call to the completion backend.
type Request struct {
	Flow       string
	Prompt     string
	Attachment *Attachment
	Schema     *genai.Schema
	// Input is the validated flow input, for backends that answer
	// without a model.
	Input any
}

// Backend fulfils completion requests. Implementations return the raw JSON
// object produced by the model.
type Backend interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) ([]byte, error)

func (f BackendFunc) Complete(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Flow is a named operation with a prompt template and input/output shapes.
type Flow[In, Out any] struct {
	Name   string
	Schema *genai.Schema

	prompt *template.Template
	attach func(*In) *Attachment
	check  func(*Out) error
}

func newFlow[In, Out any](name, prompt string, schema *genai.Schema) *Flow[In, Out] {
	return &Flow[In, Out]{
		Name:   name,
		Schema: schema,
		prompt: template.Must(template.New(name).Parse(prompt)),
	}
}

// Render fills the prompt template with the input.
func (f *Flow[In, Out]) Render(in *In) (string, error) {
	var buf bytes.Buffer
	if err := f.prompt.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", f.Name, err)
	}
	return buf.String(), nil
}

const defaultTimeout = 60 * time.Second

// Invoker runs flows against a backend.
type Invoker struct {
	backend  Backend
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

// InvokerOption is a functional option for Invoker
type InvokerOption func(*Invoker)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) InvokerOption {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewInvoker creates an invoker for the backend.
func NewInvoker(backend Backend, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		backend:  backend,
		validate: NewValidator(),
		timeout:  defaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Validate checks a value against its struct tags, reporting InvalidInput.
func (inv *Invoker) Validate(op string, v any) error {
	if err := inv.validate.Struct(v); err != nil {
		return apperr.New(apperr.KindInvalidInput, op, describeValidation(err))
	}
	return nil
}

// Invoke validates in, calls the backend once and returns the validated output.
func Invoke[In, Out any](ctx context.Context, inv *Invoker, f *Flow[In, Out], in In) (*Out, error) {
	if err := inv.Validate(f.Name, &in); err != nil {
		return nil, err
	}
	if inv.backend == nil {
		return nil, apperr.ConfigurationMissing(f.Name, "completion backend")
	}

	prompt, err := f.Render(&in)
	if err != nil {
		return nil, err
	}
	req := Request{Flow: f.Name, Prompt: prompt, Schema: f.Schema, Input: &in}
	if f.attach != nil {
		req.Attachment = f.attach(&in)
	}

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	raw, err := inv.backend.Complete(callCtx, req)
	if err != nil {
		err = apperr.Upstream(f.Name, err)
		inv.logger.Warn("flow call failed",
			zap.String("flow", f.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	inv.logger.Debug("flow call completed",
		zap.String("flow", f.Name),
		zap.Bool("attachment", req.Attachment != nil),
		zap.Duration("elapsed", time.Since(start)))

	out, err := decodeOutput[Out](raw)
	if err == nil {
		err = inv.validate.Struct(out)
		if err != nil {
			err = describeValidation(err)
		}
	}
	if err == nil && f.check != nil {
		err = f.check(out)
	}
	if err != nil {
		inv.logger.Warn("flow output rejected",
			zap.String("flow", f.Name),
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		return nil, apperr.New(apperr.KindUpstreamContractViolation, f.Name, err)
	}
	return out, nil
}

func decodeOutput[Out any](raw []byte) (*Out, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var out Out
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode response: trailing data after JSON object")
	}
	return &out, nil
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
