package server

import (
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"chefkit/core"
)

// handleImages generates one illustration for the posted recipe text and
// returns the embedded payload as a JSON-encoded base64 string.
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		// Rejected here: an empty message must never reach the remote service.
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.images == nil {
		writeErrorDetails(w, http.StatusInternalServerError, "image generation unavailable", "no image backend configured")
		return
	}

	b64, err := s.images.Generate(r.Context(), req.Message)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err, "kind": core.KindOf(err).String()}).
			Error("image generation failed")
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, b64)
}
