// Package tools is the thin ingress-side validation boundary the spec
// deliberately keeps external (spec §1 "the business-logic validation of
// individual tool payloads... out of scope"). It only checks payload shape;
// it never inspects query text, navigation targets, or script contents for
// business-specific rules — that stays a replaceable collaborator.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Name identifies a registered tool. The broker does not interpret tool
// semantics; it only knows each tool's parameter shape for structural
// validation at the ingress boundary.
type Name string

const (
	Query         Name = "query"
	Navigate      Name = "navigate"
	ExecuteScript Name = "execute_script"
	GetMetadata   Name = "get_metadata"
)

// QueryParams is the payload shape for the "query" tool.
type QueryParams struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// NavigateParams is the payload shape for the "navigate" tool.
type NavigateParams struct {
	URL string `json:"url" validate:"required,url"`
}

// ExecuteScriptParams is the payload shape for the "execute_script" tool.
// Dangerous-keyword scanning of the script body is business logic the spec
// keeps external; this only guarantees a non-empty script was supplied.
type ExecuteScriptParams struct {
	Script string `json:"script" validate:"required,min=1"`
}

// GetMetadataParams is the payload shape for the "get_metadata" tool. Target
// is optional: an empty value means "describe everything".
type GetMetadataParams struct {
	Target string `json:"target" validate:"omitempty,max=256"`
}

func paramsFactory(name Name) (func() any, bool) {
	switch name {
	case Query:
		return func() any { return &QueryParams{} }, true
	case Navigate:
		return func() any { return &NavigateParams{} }, true
	case ExecuteScript:
		return func() any { return &ExecuteScriptParams{} }, true
	case GetMetadata:
		return func() any { return &GetMetadataParams{} }, true
	default:
		return nil, false
	}
}

// ValidationError is one field-level failure, rendered into the structured
// 422 body the spec requires.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrors is a non-empty list of ValidationError that implements
// error.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s %s", e[0].Field, e[0].Reason)
}

// ErrUnknownTool is returned by ParseAndValidate for a tool name this
// broker has no registered parameter shape for.
var ErrUnknownTool = fmt.Errorf("tools: unknown tool")

// ParseAndValidate decodes raw JSON parameters for the named tool and runs
// structural validation. On success it returns the re-encoded, validated
// params as json.RawMessage, ready to hand to the Channel Command Queue.
func ParseAndValidate(name Name, raw json.RawMessage) (json.RawMessage, error) {
	factory, ok := paramsFactory(name)
	if !ok {
		return nil, ErrUnknownTool
	}

	params := factory()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, params); err != nil {
			return nil, fmt.Errorf("tools: decode params: %w", err)
		}
	}

	if err := validate.Struct(params); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		out := make(ValidationErrors, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{Field: fe.Field(), Reason: fe.Tag()})
		}
		return nil, out
	}

	normalized, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("tools: re-encode params: %w", err)
	}
	return normalized, nil
}

// KnownTool reports whether name has a registered parameter shape.
func KnownTool(name Name) bool {
	_, ok := paramsFactory(name)
	return ok
}
