package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/persistence/middleware"
	"github.com/aretw0/easyyaml/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, next ports.DraftStore, cfg middleware.EncryptionConfig) ports.DraftStore {
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return mw(next)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewDraftStore()
	secureStore := encrypted(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	draft := &domain.Draft{ID: "doc-1", Title: "secrets.yaml", Path: "/etc/secrets.yaml", Text: "token: my-secret-sauce\n", View: domain.ViewTree, Dirty: true}

	// 1. Save
	if err := secureStore.Save(ctx, draft.ID, draft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Verify Underlying Store directly (Should be encrypted)
	stored, err := underlyingStore.Load(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if strings.Contains(stored.Text, "my-secret-sauce") || stored.Path != "" || stored.Title == draft.Title {
		t.Fatalf("Expected content to be hidden, found: %+v", stored)
	}
	if !stored.Dirty || stored.View != domain.ViewTree {
		t.Errorf("Envelope should keep view and dirty flag, got %+v", stored)
	}

	// 3. Load via Middleware (Should be decrypted)
	loaded, err := secureStore.Load(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Text != draft.Text || loaded.Path != draft.Path || loaded.Title != draft.Title {
		t.Errorf("Expected %+v, got %+v", draft, loaded)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewDraftStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := encrypted(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: oldKey})

	ctx := context.Background()
	draft := &domain.Draft{ID: "rotation", Text: "data: encrypted-with-old-key\n"}

	// 1. Save with OLD key
	if err := secureStoreOld.Save(ctx, draft.ID, draft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Load with NEW key (Active) + OLD key (Fallback)
	secureStoreNew := encrypted(t, underlyingStore, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := secureStoreNew.Load(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Text != draft.Text {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Save again with the NEW key
	loaded.Text = "data: encrypted-with-new-key\n"
	if err := secureStoreNew.Save(ctx, draft.ID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// 4. Verify we CANNOT load with just OLD key anymore
	if _, err := secureStoreOld.Load(ctx, draft.ID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainDrafts(t *testing.T) {
	underlyingStore := memory.NewDraftStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, "plain", &domain.Draft{ID: "plain", Text: "a: 1\n"}); err != nil {
		t.Fatal(err)
	}

	secureStore := encrypted(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected plain drafts to be rejected")
	}
	if _, err := secureStore.Load(ctx, "missing"); err == nil {
		t.Error("Expected missing drafts to fail")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key) + "\n")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if string(got) != string(key) {
		t.Error("ParseKey returned a different key")
	}

	for _, bad := range []string{"not base64!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := middleware.ParseKey(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
