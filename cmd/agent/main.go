// Command agent registers the local machine as a device with the pairing
// server and keeps its last-seen timestamp fresh with periodic heartbeats.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unilocator/pairing-server-go/internal/deviceid"
)

type agentConfig struct {
	ServerURL         string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	UserID            string        `env:"USER_ID,required"`
	UserEmail         string        `env:"USER_EMAIL,required"`
	DisplayName       string        `env:"DEVICE_NAME"`
	StatePath         string        `env:"STATE_PATH"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"60s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg agentConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}
	if cfg.StatePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to resolve home directory")
		}
		cfg.StatePath = filepath.Join(home, ".unilocator", "device.json")
	}

	provider := deviceid.NewProvider(cfg.StatePath)
	deviceID, err := provider.DeviceID()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to derive device id")
	}

	a := &agent{
		cfg:      cfg,
		deviceID: deviceID,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.register(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to register device")
	}
	log.Info().Str("deviceId", deviceID).Msg("device registered")

	a.heartbeatLoop(ctx)
	log.Info().Msg("agent stopped")
}

type agent struct {
	cfg      agentConfig
	deviceID string
	client   *http.Client
}

func (a *agent) register(ctx context.Context) error {
	name := a.cfg.DisplayName
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		}
	}

	body := map[string]string{
		"deviceId":    a.deviceID,
		"displayName": name,
	}
	return a.post(ctx, "/v1/devices", body)
}

func (a *agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.heartbeat(ctx); err != nil {
				log.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (a *agent) heartbeat(ctx context.Context) error {
	path := fmt.Sprintf("/v1/devices/%s/heartbeat", a.deviceID)
	return a.post(ctx, path, nil)
}

func (a *agent) post(ctx context.Context, path string, body any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.ServerURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", a.cfg.UserID)
	req.Header.Set("X-User-Email", a.cfg.UserEmail)
	req.Header.Set("X-Device-Id", a.deviceID)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}
