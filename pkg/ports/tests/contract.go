package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
)

// TemplateStoreContractTest is a reusable test suite that verifies if an
// adapter complies with ports.TemplateStore. The store must start empty.
func TemplateStoreContractTest(t *testing.T, store ports.TemplateStore) {
	t.Helper()
	ctx := context.Background()

	var added domain.Template

	t.Run("Add", func(t *testing.T) {
		var err error
		added, err = store.Add(ctx, domain.Template{Name: "Service", Category: "k8s", Description: "a service"}, "kind: Service\n")
		if err != nil {
			t.Fatalf("unexpected error adding template: %v", err)
		}
		if added.Ref == "" || !added.User {
			t.Errorf("expected a user template with a reference, got %+v", added)
		}
		if added.Category != "k8s" || added.Description != "a service" {
			t.Errorf("metadata not kept: %+v", added)
		}

		_, err = store.Add(ctx, domain.Template{Name: "Service", Category: "k8s"}, "x: 1\n")
		if !errors.Is(err, domain.ErrTemplateExists) {
			t.Errorf("expected ErrTemplateExists for a duplicate, got %v", err)
		}
	})

	t.Run("List and Read", func(t *testing.T) {
		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing templates: %v", err)
		}
		if len(list) != 1 || list[0].Ref != added.Ref {
			t.Fatalf("expected only %s, got %+v", added.Ref, list)
		}

		text, err := store.Read(ctx, added.Ref)
		if err != nil {
			t.Fatalf("unexpected error reading template: %v", err)
		}
		if text != "kind: Service\n" {
			t.Errorf("content mismatch: got %q", text)
		}
	})

	t.Run("Read NotFound", func(t *testing.T) {
		_, err := store.Read(ctx, "user/none/missing")
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound, got %v", err)
		}
	})

	t.Run("Rename", func(t *testing.T) {
		renamed, err := store.Rename(ctx, added.Ref, "Deployment")
		if err != nil {
			t.Fatalf("unexpected error renaming template: %v", err)
		}
		if renamed.Name != "Deployment" || renamed.Category != "k8s" {
			t.Errorf("unexpected rename result: %+v", renamed)
		}
		text, err := store.Read(ctx, renamed.Ref)
		if err != nil || text != "kind: Service\n" {
			t.Errorf("content lost on rename: %q, %v", text, err)
		}
		if renamed.Ref != added.Ref {
			if _, err := store.Read(ctx, added.Ref); !errors.Is(err, domain.ErrTemplateNotFound) {
				t.Errorf("old reference still readable: %v", err)
			}
		}
		added = renamed
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, added.Ref); err != nil {
			t.Fatalf("unexpected error deleting template: %v", err)
		}
		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing templates: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no templates after delete, got %+v", list)
		}
		if err := store.Delete(ctx, added.Ref); !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound deleting twice, got %v", err)
		}
	})
}
