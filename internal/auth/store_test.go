package auth

import "testing"

func TestLoginStoresAndLogoutClearsToken(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if store.Token() != "" {
		t.Fatal("fresh store should hold no token")
	}
	if store.Authenticated() {
		t.Fatal("fresh store should not report authenticated")
	}

	if err := store.Login(); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := store.Token(); got != MockToken {
		t.Fatalf("Token = %q, want %q", got, MockToken)
	}
	if !store.Authenticated() {
		t.Fatal("store should report authenticated after login")
	}

	if err := store.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.Token() != "" {
		t.Fatal("token should be cleared after logout")
	}
	if err := store.Logout(); err != nil {
		t.Fatalf("second Logout should be a no-op: %v", err)
	}
}

func TestTokenSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Login(); err != nil {
		t.Fatalf("Login: %v", err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Token(); got != MockToken {
		t.Fatalf("persisted token = %q, want %q", got, MockToken)
	}
}

func TestConfigDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(tokenDirEnvVar, dir)

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Login(); err != nil {
		t.Fatalf("Login: %v", err)
	}

	direct, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore(dir): %v", err)
	}
	if direct.Token() != MockToken {
		t.Fatal("env override did not route the token file to the expected dir")
	}
}
