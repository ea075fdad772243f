// Package httpx provides the JSON response envelope and request decoding
// helpers shared by all HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Envelope is the wire shape every endpoint responds with.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON sends a raw JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK responds 200 with the data wrapped in a success envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created responds 201 with the data wrapped in a success envelope.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent responds 200 with a bare success envelope.
func NoContent(w http.ResponseWriter) {
	JSON(w, http.StatusOK, Envelope{Success: true})
}

// Fail responds with a failure envelope carrying the given message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// DecodeJSON decodes the request body into target, rejecting unknown fields
// and trailing garbage.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("httpx: unexpected data after JSON body")
	}
	return nil
}
