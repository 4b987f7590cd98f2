package util

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

type Message struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, msg, reqID string) {
	WriteJSON(w, status, APIError{Error: msg, Code: code, RequestID: reqID})
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Message{Message: msg})
}
