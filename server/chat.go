package server

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// handleChat runs the chat pipeline for the posted conversation and streams
// the reply as plain text, one flush per fragment, in emission order. If the
// backend fails before anything was written the caller gets a JSON error;
// after that the stream simply truncates, which is the only honest signal
// left once headers are out.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	var req chatRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out := make(chan string, 16)
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.chat.Run(r.Context(), req.Messages, out)
		close(out)
	}()

	flusher, canFlush := w.(http.Flusher)
	wrote := false
	for fragment := range out {
		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("chat client went away mid-stream")
			// Keep draining so the pipeline goroutine can finish.
			continue
		}
		if canFlush {
			flusher.Flush()
		}
	}

	if err := <-errChan; err != nil {
		if !wrote {
			writeError(w, statusFor(err), err.Error())
			return
		}
		s.logger.With(map[string]interface{}{"error": err}).Error("chat stream failed after partial write")
	}
}
