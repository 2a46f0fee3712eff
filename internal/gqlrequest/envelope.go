// Package gqlrequest decodes and analyzes incoming GraphQL requests
// before execution: payload extraction, document parsing, and depth/cost
// estimation against configured limits.
package gqlrequest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Envelope stores the normalized request payload used for analysis and
// prefetch planning.
type Envelope struct {
	Method      string
	ContentType string

	Query         string
	OperationName string
	VariablesRaw  json.RawMessage
}

// DecodeEnvelope extracts GraphQL payload fields from an HTTP request and
// rewinds the body so downstream handlers can read it again.
func DecodeEnvelope(r *http.Request) (Envelope, error) {
	if r == nil {
		return Envelope{}, fmt.Errorf("request is nil")
	}

	env := Envelope{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
	}

	if r.Method == http.MethodGet {
		params := r.URL.Query()
		env.Query = params.Get("query")
		env.OperationName = params.Get("operationName")
		// The fetch planner binds identifier arguments from variables, so
		// GET requests must surface them just like POST bodies do.
		if raw := strings.TrimSpace(params.Get("variables")); raw != "" && raw != "null" {
			env.VariablesRaw = json.RawMessage(raw)
		}
		return env, nil
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return env, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return env, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	mediaType, _, parseErr := mime.ParseMediaType(env.ContentType)
	if parseErr != nil || mediaType == "" {
		mediaType = strings.TrimSpace(env.ContentType)
	}

	switch mediaType {
	case "application/graphql":
		env.Query = string(body)
	default:
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 {
			break
		}
		var payload struct {
			Query         string          `json:"query"`
			OperationName string          `json:"operationName"`
			Variables     json.RawMessage `json:"variables"`
		}
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return env, err
		}
		env.Query = payload.Query
		env.OperationName = payload.OperationName
		if len(payload.Variables) > 0 && !bytes.Equal(bytes.TrimSpace(payload.Variables), []byte("null")) {
			env.VariablesRaw = append(json.RawMessage(nil), payload.Variables...)
		}
	}

	return env, nil
}

// Variables decodes the raw variables payload, or nil when absent.
func (e Envelope) Variables() (map[string]interface{}, error) {
	if len(e.VariablesRaw) == 0 {
		return nil, nil
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(e.VariablesRaw, &vars); err != nil {
		return nil, fmt.Errorf("invalid variables payload: %w", err)
	}
	return vars, nil
}
