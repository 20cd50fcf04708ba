package server

import (
	"net/http"

	"github.com/bytedance/sonic"

	"chefkit/core"
)

type messageRequest struct {
	Message string `json:"message"`
}

type chatRequest struct {
	Messages []core.Turn `json:"messages"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeErrorDetails(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// statusFor maps the failure taxonomy onto response codes: validation is the
// caller's fault, a missing payload from an otherwise-successful remote call
// is a bad gateway, everything else is a plain server error.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.ValidationFailure:
		return http.StatusBadRequest
	case core.RemoteContractFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
