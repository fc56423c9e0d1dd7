// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package strapi

import (
	json "github.com/goccy/go-json"
)

// Payload wraps a write body in the {"data": ...} envelope the upstream
// expects on POST and PUT.
type Payload struct {
	Data any `json:"data"`
}

// Envelope is a single-record upstream response: {"data": {...}, "meta": ...}.
type Envelope struct {
	Data json.RawMessage `json:"data"`
}

// ListEnvelope is a collection upstream response: {"data": [...], "meta": ...}.
type ListEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

// Record carries the two identifiers every upstream record exposes.
type Record struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
}

// DecodeList unwraps a collection envelope into its raw entries.
func DecodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	var env ListEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// DecodeRecords unwraps a collection envelope into identifier records.
func DecodeRecords(raw json.RawMessage) ([]Record, error) {
	var env struct {
		Data []Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}
