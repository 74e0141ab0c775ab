package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
	"github.com/aretw0/easyyaml/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDraftStore_Contract(t *testing.T) {
	store := memory.NewDraftStore()
	ports.RunDraftStoreContract(t, store)
}

func TestMemoryTemplateStore_Contract(t *testing.T) {
	tests.TemplateStoreContractTest(t, memory.NewTemplateStore())
}

func TestMemoryTemplateStore_BuiltinsAreReadOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTemplateStore()
	tmpl := store.Seed("docker", "compose.yaml", "services: {}\n")

	text, err := store.Read(ctx, tmpl.Ref)
	require.NoError(t, err)
	assert.Equal(t, "services: {}\n", text)

	assert.ErrorIs(t, store.Delete(ctx, tmpl.Ref), domain.ErrReadOnlyTemplate)
	_, err = store.Rename(ctx, tmpl.Ref, "other")
	assert.ErrorIs(t, err, domain.ErrReadOnlyTemplate)
}
