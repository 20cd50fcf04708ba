package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chefkit/core"
	"chefkit/factories"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "", "listen address (overrides settings.json, e.g. :8080)")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings := loadSettingsFromEnv()
	if addr != "" {
		settings.Server.Addr = addr
	}

	logger := core.GetLogger().With(map[string]any{"component": "server"})

	srv, err := factories.BuildServer(settings, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil {
			logger.With(map[string]any{"error": err}).Error("server stopped")
			stop()
		}
	}()
	logger.With(map[string]any{"addr": settings.Server.Addr}).Info("generation API listening")

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.With(map[string]any{"error": err}).Error("shutdown error")
	}
}

// loadSettingsFromEnv loads SettingsConfig from file or SETTINGS_JSON_B64 env
// var, and injects API keys from env vars.
func loadSettingsFromEnv() factories.SettingsConfig {
	var settings factories.SettingsConfig
	var err error

	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, decErr := base64.StdEncoding.DecodeString(b64)
		if decErr != nil {
			core.GetLogger().With(map[string]any{"error": decErr}).Error("failed to decode SETTINGS_JSON_B64")
			settings = factories.DefaultSettingsConfig()
		} else {
			settings, err = factories.SettingsConfigFromJSON(data)
			if err != nil {
				core.GetLogger().With(map[string]any{"error": err}).Error("failed to parse SETTINGS_JSON_B64")
				settings = factories.DefaultSettingsConfig()
			} else {
				core.GetLogger().Info("loaded settings from SETTINGS_JSON_B64")
			}
		}
	} else {
		settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
		settings, err = factories.SettingsConfigFromFile(settingsPath)
		if err != nil {
			core.GetLogger().With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
			settings = factories.DefaultSettingsConfig()
		}
	}

	settings.InjectAPIKeys(factories.APIKeys{
		OpenAI:   getEnv("OPENAI_API_KEY", ""),
		Groq:     getEnv("GROQ_API_KEY", ""),
		Together: getEnv("TOGETHER_API_KEY", ""),
	})

	return settings
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
