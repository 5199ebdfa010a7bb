package securestore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, passphrase string) (*BoltStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path, passphrase)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func TestBoltStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "token record", key: "token:alice", value: `{"access_token":"tok_1"}`},
		{name: "empty value", key: "pending:state:alice", value: ""},
		{name: "binary-ish value", key: "k", value: "\x00\xffraw"},
	}

	s, _ := openTestStore(t, "correct horse")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, ok, err := s.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !ok {
				t.Fatal("Get() ok = false, want true")
			}
			if got != tt.value {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestBoltStore_GetAbsent(t *testing.T) {
	s, _ := openTestStore(t, "pw")

	got, ok, err := s.Get("never-written")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || got != "" {
		t.Errorf("Get() = (%q, %v), want (\"\", false)", got, ok)
	}
}

func TestBoltStore_DeleteIdempotent(t *testing.T) {
	s, _ := openTestStore(t, "pw")

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}

	if _, ok, _ := s.Get("k"); ok {
		t.Error("Get() after Delete() found a value")
	}
}

func TestBoltStore_ValuesEncryptedOnDisk(t *testing.T) {
	s, path := openTestStore(t, "pw")

	const secret = "very-secret-access-token"
	if err := s.Set("token:alice", secret); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if bytes.Contains(raw, []byte(secret)) {
		t.Error("raw database contains plaintext secret")
	}
}

func TestBoltStore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := Open(path, "first")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err = s.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err = s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_, err = Open(path, "second")
	if !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("Open() with wrong passphrase error = %v, want ErrBadPassphrase", err)
	}
}

func TestBoltStore_ReopenWithSamePassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := Open(path, "pw")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err = s.Set("token:alice", "tok_1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err = s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := Open(path, "pw")
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, ok, err := s2.Get("token:alice")
	if err != nil || !ok || got != "tok_1" {
		t.Errorf("Get() after reopen = (%q, %v, %v), want (\"tok_1\", true, nil)", got, ok, err)
	}
}
