// Package model holds the wire shapes shared by the sync client, the edge
// service and the backing store, plus the error taxonomy they report with.
package model

import (
	"encoding/json"

	"meetdays/internal/days"
)

// DatesPayload is the `{ "dates": [...] }` document used on the wire and as
// the content of the remote file.
type DatesPayload struct {
	Dates []string `json:"dates"`
}

// PutResponse is returned by a successful PUT /dates.
type PutResponse struct {
	OK    bool     `json:"ok"`
	Dates []string `json:"dates"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodeDates decodes an arbitrary JSON document that must be an object with
// a "dates" array. Non-string and invalid entries are dropped; the result is
// normalized. Malformed JSON yields ErrBadJSON, any other shape
// ErrInvalidPayload.
func DecodeDates(data []byte) ([]string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Kind: KindValidation, Message: ErrBadJSON.Message, Err: err}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrInvalidPayload
	}
	arr, ok := obj["dates"].([]any)
	if !ok {
		return nil, ErrInvalidPayload
	}
	return days.NormalizeValues(arr), nil
}

// EncodeDates renders dates as the pretty-printed document stored remotely.
func EncodeDates(dates []string) ([]byte, error) {
	return json.MarshalIndent(DatesPayload{Dates: days.Normalize(dates)}, "", "  ")
}
