// Package userconfig keeps per-user CLI state outside the project, in
// ~/.config/launchkit/state.json: the selected server and the last session
// each server resolved to.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	stateDirName  = "launchkit"
	stateFileName = "state.json"
)

// KnownSession is the last signed-in identity a server reported
type KnownSession struct {
	Email      string    `json:"email"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// State is the on-disk user state, keyed by normalized server URL
type State struct {
	SelectedServerURL string                  `json:"selected_server_url,omitempty"`
	Sessions          map[string]KnownSession `json:"sessions,omitempty"`
}

// Path returns the location of the state file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", stateDirName, stateFileName), nil
}

// Read returns the stored state. A missing file is an empty state.
func Read() (*State, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse user state %s: %w", path, err)
	}
	return &st, nil
}

// Update applies fn to the stored state and writes it back. The file is
// replaced by rename so a crash never leaves it half written.
func Update(fn func(*State)) error {
	st, err := Read()
	if err != nil {
		return err
	}
	fn(st)
	if len(st.Sessions) == 0 {
		st.Sessions = nil
	}

	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), stateFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write user state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace user state: %w", err)
	}
	return nil
}

// SetSelectedServer stores the server used when no --server flag is given.
// An empty URL clears the selection.
func SetSelectedServer(serverURL string) error {
	return Update(func(st *State) { st.SelectedServerURL = serverURL })
}

// GetSelectedServer returns the selected server URL, or "" if none is set
func GetSelectedServer() (string, error) {
	st, err := Read()
	if err != nil {
		return "", err
	}
	return st.SelectedServerURL, nil
}

// RememberSession records that serverURL last resolved to email
func RememberSession(serverURL, email string, at time.Time) error {
	return Update(func(st *State) {
		if st.Sessions == nil {
			st.Sessions = make(map[string]KnownSession)
		}
		st.Sessions[serverURL] = KnownSession{Email: email, ResolvedAt: at.UTC()}
	})
}

// ForgetSession drops what is known about serverURL's session
func ForgetSession(serverURL string) error {
	return Update(func(st *State) { delete(st.Sessions, serverURL) })
}

// LastSession returns the last session serverURL resolved to, if any
func LastSession(serverURL string) (KnownSession, bool, error) {
	st, err := Read()
	if err != nil {
		return KnownSession{}, false, err
	}
	known, ok := st.Sessions[serverURL]
	return known, ok, nil
}
