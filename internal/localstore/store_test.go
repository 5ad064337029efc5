package localstore

import (
	"path/filepath"
	"testing"

	"incaweb/internal/platform/crypto"
)

func openStore(t *testing.T, key string) *Store {
	t.Helper()
	cryptoSvc, err := crypto.New(key)
	if err != nil {
		t.Fatalf("crypto service: %v", err)
	}
	store, err := Open(filepath.Join(t.TempDir(), "nested", "console.db"), cryptoSvc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetGetRoundTrip(t *testing.T) {
	store := openStore(t, "")

	if err := store.Set("authTokens", `{"access":"a","refresh":"r"}`); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, found, err := store.Get("authTokens")
	if err != nil || !found {
		t.Fatalf("get failed (found=%v): %v", found, err)
	}
	if value != `{"access":"a","refresh":"r"}` {
		t.Errorf("value = %q", value)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := openStore(t, "")

	value, found, err := store.Get("nope")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found || value != "" {
		t.Errorf("expected a miss, got (%q, %v)", value, found)
	}
}

func TestSetOverwrites(t *testing.T) {
	store := openStore(t, "")

	if err := store.Set("access_token", "first"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set("access_token", "second"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	value, _, err := store.Get("access_token")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "second" {
		t.Errorf("value = %q, expected the overwritten one", value)
	}
}

func TestDeleteAbsentKey(t *testing.T) {
	store := openStore(t, "")
	if err := store.Delete("never-set"); err != nil {
		t.Errorf("deleting an absent key failed: %v", err)
	}
}

func TestEmptyValueRoundTrip(t *testing.T) {
	store := openStore(t, "")

	if err := store.Set("blank", ""); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, found, err := store.Get("blank")
	if err != nil || !found {
		t.Fatalf("get failed (found=%v): %v", found, err)
	}
	if value != "" {
		t.Errorf("value = %q, expected empty", value)
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	store := openStore(t, key)

	if err := store.Set("authTokens", "sensitive"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, found, err := store.Get("authTokens")
	if err != nil || !found {
		t.Fatalf("get failed (found=%v): %v", found, err)
	}
	if value != "sensitive" {
		t.Errorf("value = %q", value)
	}
}
