package main

import (
	"bufio"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"chefkit/core"
	audioevents "chefkit/events/audio"
	chatevents "chefkit/events/chat"
	imageevents "chefkit/events/image"
	"chefkit/factories"
)

// repl is a terminal client for the recipe assistant. It drives the session
// pipeline with typed commands and prints pipeline outputs as they arrive.
func main() {
	var serverURL string
	var bridgeAddr string
	var imagePath string
	var logDir string
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the generation API")
	flag.StringVar(&bridgeAddr, "events-addr", "", "optional listen address for the WebSocket event bridge (e.g. :8888)")
	flag.StringVar(&imagePath, "image-out", "recipe.jpg", "path to write the generated illustration to")
	flag.StringVar(&logDir, "log-dir", "", "optional directory for per-session .jsonl logs")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Debug("no .env.local file loaded")
	}

	logger := core.GetLogger()
	if logDir != "" {
		writer, err := core.NewSessionLogWriter(logDir, uuid.New().String(), serverURL)
		if err != nil {
			logger.With(map[string]any{"error": err}).Warn("session log disabled")
		} else {
			defer writer.Close()
			logger = core.NewSessionLogger(logger, writer)
		}
	}
	logger = logger.With(map[string]any{"component": "repl"})

	session, err := factories.BuildSession(factories.SessionConfig{
		ServerURL:  serverURL,
		BridgeAddr: bridgeAddr,
	}, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build session")
	}

	if err := session.Runner.Start(); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to start pipeline")
	}
	defer session.Runner.Stop()

	if bridgeAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws/events", session.Bridge)
		go func() {
			if err := http.ListenAndServe(bridgeAddr, mux); err != nil {
				logger.With(map[string]any{"error": err}).Error("event bridge stopped")
			}
		}()
		logger.With(map[string]any{"addr": bridgeAddr}).Info("event bridge listening")
	}

	go printOutputs(session, imagePath)

	fmt.Println("Recipe assistant. Type a message, or /image, /audio, /quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	prompt()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit" || line == "/exit":
			session.Runner.SendInput(&core.EndSessionEvent{Reason: "user quit"}, "repl")
			<-session.Runner.Finished
			return
		case line == "/image":
			session.Runner.SendInput(&imageevents.ImageRequestedEvent{}, "repl")
		case line == "/audio":
			session.Runner.SendInput(&audioevents.AudioRequestedEvent{}, "repl")
		case strings.HasPrefix(line, "/"):
			fmt.Printf("unknown command %q\n", line)
			prompt()
		default:
			session.Runner.SendInput(&chatevents.ChatSendEvent{Text: line}, "repl")
		}

		select {
		case <-session.Runner.Finished:
			return
		default:
		}
	}
}

func prompt() {
	fmt.Print("> ")
}

// printOutputs drains the pipeline output channel and renders each event for
// the terminal. The generated illustration is written to disk since a
// terminal cannot display it.
func printOutputs(session *factories.Session, imagePath string) {
	for packet := range session.Runner.Outputs {
		switch event := packet.Event.(type) {
		case *chatevents.ChatResponseStartedEvent:
			fmt.Println()
		case *chatevents.ChatFragmentEvent:
			fmt.Print(event.Fragment)
		case *chatevents.ChatCompletedEvent:
			fmt.Println()
			prompt()
		case *chatevents.ChatFailedEvent:
			fmt.Printf("\n[chat failed: %s]\n", event.Message)
			prompt()
		case *imageevents.ImageEligibleEvent:
			fmt.Println("[illustration available, type /image]")
		case *imageevents.ImageLoadingEvent:
			fmt.Println("[generating illustration...]")
		case *imageevents.ImageReadyEvent:
			saveImage(imagePath, event)
			prompt()
		case *imageevents.ImageFailedEvent:
			fmt.Printf("[illustration failed: %s, type /image to retry]\n", event.Message)
			prompt()
		case *audioevents.AudioEligibleEvent:
			fmt.Println("[narration available, type /audio]")
		case *audioevents.AudioLoadingEvent:
			fmt.Println("[synthesizing narration...]")
		case *audioevents.AudioReadyEvent:
			if event.Fallback {
				fmt.Printf("[narration ready (unverified): %s]\n", event.Handle)
			} else {
				fmt.Printf("[narration ready: %s]\n", event.Handle)
			}
			prompt()
		case *audioevents.AudioFailedEvent:
			fmt.Printf("[narration failed: %s, type /audio to retry]\n", event.Message)
			prompt()
		case *core.CriticalErrorEvent:
			fmt.Printf("[pipeline error: %s]\n", event.Error)
			prompt()
		}
	}
}

func saveImage(path string, event *imageevents.ImageReadyEvent) {
	data, err := base64.StdEncoding.DecodeString(event.Base64)
	if err != nil {
		fmt.Printf("[illustration ready but undecodable: %v]\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("[illustration ready but not saved: %v]\n", err)
		return
	}
	fmt.Printf("[illustration saved to %s (%d bytes, %s)]\n", path, len(data), event.MIME)
}
