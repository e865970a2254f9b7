// Package deviceid derives and persists the per-installation device
// identifier: a stable host identifier joined with a one-time random UUID.
// Once derived, the identifier is written to a state file and reused until
// explicitly cleared, so re-registration always targets the same device
// record.
package deviceid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const fallbackHostID = "unknown-device"

var hostIDAllowed = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type state struct {
	DeviceID string `json:"deviceId"`
	UUID     string `json:"uuid"`
}

// Provider loads or derives the installation identifier backed by a state
// file.
type Provider struct {
	path   string
	hostID func() string
}

func NewProvider(statePath string) *Provider {
	return &Provider{path: statePath, hostID: readHostID}
}

// DeviceID returns the persisted installation identifier, deriving and
// storing a new one on first use.
func (p *Provider) DeviceID() (string, error) {
	if st, err := p.load(); err == nil && st.DeviceID != "" {
		return st.DeviceID, nil
	}

	host := sanitizeHostID(p.hostID())
	u := uuid.NewString()
	id := fmt.Sprintf("%s_%s", host, u)

	if err := p.save(state{DeviceID: id, UUID: u}); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}

	log.Info().Str("deviceId", id).Msg("derived new installation identifier")
	return id, nil
}

// Clear removes the persisted identifier. The next DeviceID call derives a
// fresh one.
func (p *Provider) Clear() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *Provider) load() (state, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return state{}, err
	}
	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return state{}, err
	}
	return st, nil
}

func (p *Provider) save(st state) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, raw, 0o600)
}

// readHostID prefers the machine id, falling back to the hostname, then to
// a fixed marker when neither is readable.
func readHostID() string {
	if raw, err := os.ReadFile("/etc/machine-id"); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id
		}
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return fallbackHostID
}

func sanitizeHostID(s string) string {
	s = hostIDAllowed.ReplaceAllString(s, "")
	if s == "" {
		return fallbackHostID
	}
	return s
}
