package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultTheme is used until the user picks another one.
const DefaultTheme = "dark"

// Identity is the logged-in user as remembered between runs.
type Identity struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Prefs is the state kept on disk: the identity and the theme.
type Prefs struct {
	User  *Identity `json:"user"`
	Theme string    `json:"theme"`
}

// DefaultPrefsPath returns <user config dir>/miniblog/state.json.
func DefaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "miniblog", "state.json")
}

// LoadPrefs reads path. A missing or unreadable file yields the defaults.
func LoadPrefs(path string) (Prefs, error) {
	prefs := Prefs{Theme: DefaultTheme}
	if path == "" {
		return prefs, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Prefs{Theme: DefaultTheme}, fmt.Errorf("decode prefs %s: %w", path, err)
	}
	if prefs.Theme == "" {
		prefs.Theme = DefaultTheme
	}
	if prefs.User != nil && prefs.User.Username == "" {
		prefs.User = nil
	}
	return prefs, nil
}

// SavePrefs replaces path atomically. An empty path disables persistence.
func SavePrefs(path string, prefs Prefs) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create prefs: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
