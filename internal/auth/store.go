// Package auth persists the bearer token between sessions. Authentication is
// mocked in this build: Login writes a fixed demo token and Logout removes
// it, mirroring what a real identity provider callback would do.
package auth

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	tokenDirEnvVar = "DOCSTUDIO_CONFIG_DIR"
	tokenFileName  = "auth_token"

	// MockToken stands in for a real JWT until the identity provider is wired.
	MockToken = "mock-jwt-token"
)

// User describes the signed-in account shown in the sidebar.
type User struct {
	Name  string
	Email string
}

// DemoUser is the mocked account for this build.
var DemoUser = User{
	Name:  "Demo User",
	Email: "demo@example.com",
}

// Store reads and writes the persisted token. The token file is the only
// state that survives a restart; everything else is session memory.
type Store struct {
	path string
}

// NewStore opens the token store rooted at dir. An empty dir resolves to the
// user config directory, overridable via DOCSTUDIO_CONFIG_DIR.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = os.Getenv(tokenDirEnvVar)
	}
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "docstudio")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, tokenFileName)}, nil
}

// Token returns the persisted token, or "" when none is stored. An empty
// token means outgoing requests carry no Authorization header at all.
func (s *Store) Token() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Authenticated reports whether a token is currently stored.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Login stores the mock token.
func (s *Store) Login() error {
	return os.WriteFile(s.path, []byte(MockToken), 0o600)
}

// Logout removes the stored token. Logging out twice is not an error.
func (s *Store) Logout() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
