package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

// header is the common part of every RPC call; action-specific params
// sit flat beside it and are decoded a second time per action.
type header struct {
	Action       string `json:"action"`
	SessionToken string `json:"sessionToken"`
}

// Response is the uniform RPC result envelope. Domain errors ride in it
// with HTTP 200; only an undecodable body is a transport-level failure.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func respond(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusOK, Response{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == "" {
		kind = "INTERNAL"
		message = "internal error"
	}
	respond(w, http.StatusOK, Response{Success: false, Error: message, Code: string(kind)})
}
