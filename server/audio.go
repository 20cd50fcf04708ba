package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"chefkit/core"
	audioutil "chefkit/utils/audio"
)

// Speech comes back from the provider as 24kHz 16-bit mono PCM when a raw
// format is requested; telephony G.711 wants 8kHz.
const (
	speechPCMRate     = 24000
	telephonyRate     = 8000
	downsampleFactor  = speechPCMRate / telephonyRate
	formatQueryParam  = "format"
	telephonyFormatID = "ulaw"
)

// handleAudio synthesizes narration for the posted text and returns the
// binary payload. The default is an inline MP3; ?format=ulaw returns 8kHz
// G.711 µ-law for telephony clients. Headers are only written after the full
// payload exists so a failure never produces a partial binary body.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.speech == nil {
		writeErrorDetails(w, http.StatusInternalServerError, "speech synthesis unavailable", "no speech backend configured")
		return
	}

	if r.URL.Query().Get(formatQueryParam) == telephonyFormatID {
		s.serveTelephonyAudio(w, r, req.Message)
		return
	}

	payload, err := s.speech.Synthesize(r.Context(), req.Message, "")
	if err != nil {
		s.respondAudioError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `inline; filename="speech.mp3"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (s *Server) serveTelephonyAudio(w http.ResponseWriter, r *http.Request, message string) {
	pcm, err := s.speech.Synthesize(r.Context(), message, "pcm")
	if err != nil {
		s.respondAudioError(w, err)
		return
	}

	narrow, err := audioutil.DownsamplePCM16(pcm, downsampleFactor)
	if err != nil {
		s.respondAudioError(w, core.NewResourceFailure("downsampling speech payload", err))
		return
	}
	ulaw := audioutil.EncodeUlaw(narrow)

	w.Header().Set("Content-Type", "audio/basic")
	w.Header().Set("Content-Disposition", `inline; filename="speech.ul"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(ulaw)
}

// respondAudioError maps failures to JSON error bodies. Unlike the image
// endpoint the audio contract includes a details field so callers can tell a
// configuration problem from an outage without reading server logs.
func (s *Server) respondAudioError(w http.ResponseWriter, err error) {
	s.logger.With(map[string]interface{}{"error": err, "kind": core.KindOf(err).String()}).
		Error("speech synthesis failed")

	details := ""
	var failure *core.Failure
	if errors.As(err, &failure) {
		details = failure.Detail
		if details == "" && failure.Err != nil {
			details = failure.Err.Error()
		}
		writeErrorDetails(w, statusFor(err), failure.Message, details)
		return
	}
	writeErrorDetails(w, http.StatusInternalServerError, "speech synthesis failed", err.Error())
}
