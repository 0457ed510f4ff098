// Package dispatch defines the uniform response envelope every tool
// returns and the apperr→taxonomy mapping used to fill it (§4.6, §7).
package dispatch

import (
	"encoding/json"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
)

// Envelope is the uniform shape every tool response marshals to.
// Exactly one of {Data, Summary+Results, Error} is populated.
type Envelope struct {
	Ok      bool           `json:"ok"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Summary *BatchSummary  `json:"summary,omitempty"`
	Results []BatchItem    `json:"results,omitempty"`
	Error   *ErrorPayload  `json:"error,omitempty"`
}

// ErrorPayload is the {code, message, details?} shape for a failed call.
type ErrorPayload struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

// BatchSummary counts outcomes across a batch invocation.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BatchItem is one element's outcome within a batch response.
type BatchItem struct {
	ID    string        `json:"id,omitempty"`
	Ok    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// Success builds a {ok: true, data} envelope.
func Success(data any) *Envelope {
	return &Envelope{Ok: true, Data: data}
}

// SuccessWithMessage builds a {ok: true, data, message} envelope.
func SuccessWithMessage(data any, message string) *Envelope {
	return &Envelope{Ok: true, Data: data, Message: message}
}

// Failure classifies err into the taxonomy and builds a {ok: false, error} envelope.
func Failure(err error) *Envelope {
	if ae, ok := apperr.As(err); ok {
		return &Envelope{Ok: false, Error: &ErrorPayload{Code: ae.Code, Message: ae.Message, Details: ae.Details}}
	}
	return &Envelope{Ok: false, Error: &ErrorPayload{Code: apperr.InternalError, Message: err.Error()}}
}

// Batch builds a {ok: true, summary, results} envelope from per-item outcomes.
// The overall Ok is true even when some items failed — batch failures are
// reported per-item, never as a whole-call error (§4.6).
func Batch(items []BatchItem) *Envelope {
	summary := &BatchSummary{Total: len(items)}
	for _, it := range items {
		if it.Ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return &Envelope{Ok: true, Summary: summary, Results: items}
}

// ItemOK builds a successful BatchItem.
func ItemOK(id string, data any) BatchItem {
	return BatchItem{ID: id, Ok: true, Data: data}
}

// ItemErr builds a failed BatchItem, classifying err into the taxonomy.
func ItemErr(id string, err error) BatchItem {
	env := Failure(err)
	return BatchItem{ID: id, Ok: false, Error: env.Error}
}

// ToolResult marshals env into the MCP tools/call content shape.
// It never returns isError=true — tool-level failures are conveyed by
// envelope.Ok, not by the transport's error flag, so agents can always
// parse the JSON body.
func ToolResult(env *Envelope) (*mcp.ToolsCallResult, error) {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ToolsCallResult{Content: []mcp.ContentBlock{mcp.TextContent(string(b))}}, nil
}
