package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"chefkit/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, core.NewDevelopmentLogger())
}

func TestStreamChatRelaysBody(t *testing.T) {
	var gotBody chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Slice ", "the ", "eggplant."} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	})

	turns := []core.Turn{
		core.NewTextTurn(core.RoleUser, "eggplant ideas?"),
	}
	out := make(chan string, 16)
	if err := c.StreamChat(context.Background(), turns, out); err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	close(out)

	var full strings.Builder
	for chunk := range out {
		full.WriteString(chunk)
	}
	if full.String() != "Slice the eggplant." {
		t.Fatalf("streamed body = %q", full.String())
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Text() != "eggplant ideas?" {
		t.Fatalf("server saw request %+v", gotBody)
	}
}

func TestStreamChatRemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream is down"}`))
	})

	err := c.StreamChat(context.Background(), nil, make(chan string, 1))
	if err == nil {
		t.Fatal("StreamChat returned nil for a 502")
	}
	var failure *core.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error %T is not a classified failure", err)
	}
	if failure.Status != http.StatusBadGateway {
		t.Errorf("failure status = %d, want 502", failure.Status)
	}
	if !strings.Contains(failure.Detail, "upstream is down") {
		t.Errorf("failure detail = %q, want remote error text", failure.Detail)
	}
}

func TestGenerateImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/images" {
			t.Errorf("path = %q, want /api/images", r.URL.Path)
		}
		var req messageRequest
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Message == "" {
			t.Error("server received empty message")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`"aGVsbG8="`))
	})

	b64, err := c.GenerateImage(context.Background(), "braised pork recipe")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if b64 != "aGVsbG8=" {
		t.Fatalf("payload = %q", b64)
	}
}

func TestGenerateImageEmptyTextNeverCallsServer(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.GenerateImage(context.Background(), "   ")
	if core.KindOf(err) != core.ValidationFailure {
		t.Fatalf("failure kind = %v, want validation", core.KindOf(err))
	}
	if called {
		t.Fatal("server was called for empty text")
	}
}

func TestGenerateImageContractFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a json string", `{"oops": true}`},
		{"empty payload", `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := c.GenerateImage(context.Background(), "text")
			if core.KindOf(err) != core.RemoteContractFailure {
				t.Fatalf("failure kind = %v, want remote contract", core.KindOf(err))
			}
		})
	}
}

func TestSynthesizeSpeech(t *testing.T) {
	payload := []byte{0xFF, 0xFB, 0x01, 0x02}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/audio" {
			t.Errorf("path = %q, want /api/audio", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(payload)
	})

	got, err := c.SynthesizeSpeech(context.Background(), "read this recipe")
	if err != nil {
		t.Fatalf("SynthesizeSpeech: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload = %v, want %v", got, payload)
	}
}

func TestSynthesizeSpeechEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.SynthesizeSpeech(context.Background(), "text")
	if core.KindOf(err) != core.RemoteContractFailure {
		t.Fatalf("failure kind = %v, want remote contract", core.KindOf(err))
	}
}

func TestSynthesizeSpeechCarriesErrorDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"speech synthesis failed","details":"no backend configured"}`))
	})

	_, err := c.SynthesizeSpeech(context.Background(), "text")
	var failure *core.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error %T is not a classified failure", err)
	}
	if !strings.Contains(failure.Detail, "no backend configured") {
		t.Errorf("failure detail = %q, want the remote details", failure.Detail)
	}
}
