package category_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/quotecraft/internal/category"
	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/llm"
)

// fakeCompletion returns a canned response, or an error, and records prompts.
type fakeCompletion struct {
	response map[string]any
	err      error
	prompts  []string
}

func (f *fakeCompletion) Complete(_ context.Context, prompt string, _ string) (map[string]any, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Deck Construction", "deck_construction"},
		{"  Brand Strategy!  ", "brand_strategy"},
		{"kitchen-remodel", "kitchen_remodel"},
		{"A/V Installation (commercial)", "a_v_installation_commercial"},
		{"ALREADY_NORMALIZED", "already_normalized"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, category.NormalizeKey(tt.in), "input %q", tt.in)
	}
}

func TestResolver_NewCategory(t *testing.T) {
	store := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	fake := &fakeCompletion{response: map[string]any{"match_type": "new", "category": "Deck Construction"}}
	r := category.NewResolver(fake, store, "general")

	key, isNew, err := r.Resolve(context.Background(), "c1", "12x14 deck")
	require.NoError(t, err)
	assert.Equal(t, "deck_construction", key)
	assert.True(t, isNew)

	cat, ok, err := store.GetCategory("c1", "deck_construction")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Deck Construction", cat.DisplayName)
	assert.Zero(t, cat.Samples)
	assert.Zero(t, cat.Confidence)
	assert.Empty(t, cat.LearnedAdjustments)
}

func TestResolver_ExistingCategory(t *testing.T) {
	store := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	name := "Deck Construction"
	_, err := store.UpsertCategory("c1", "deck_construction", knowledge.CategoryPatch{DisplayName: &name})
	require.NoError(t, err)

	fake := &fakeCompletion{response: map[string]any{"match_type": "existing", "category": "deck_construction"}}
	r := category.NewResolver(fake, store, "general")

	key, isNew, err := r.Resolve(context.Background(), "c1", "build a 10x12 deck out back")
	require.NoError(t, err)
	assert.Equal(t, "deck_construction", key)
	assert.False(t, isNew)
}

func TestResolver_ExistingKeyUnknown_TreatedAsNew(t *testing.T) {
	store := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	fake := &fakeCompletion{response: map[string]any{"match_type": "existing", "category": "Fence Repair"}}
	r := category.NewResolver(fake, store, "general")

	key, isNew, err := r.Resolve(context.Background(), "c1", "fix my fence")
	require.NoError(t, err)
	assert.Equal(t, "fence_repair", key)
	assert.True(t, isNew)
}

func TestResolver_NewNameCollidesWithExistingKey(t *testing.T) {
	store := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	name := "Deck Construction"
	_, err := store.UpsertCategory("c1", "deck_construction", knowledge.CategoryPatch{DisplayName: &name})
	require.NoError(t, err)

	// Classifier proposes "new" but the normalized key already exists:
	// converge on the existing category instead of duplicating it.
	fake := &fakeCompletion{response: map[string]any{"match_type": "new", "category": "deck construction"}}
	r := category.NewResolver(fake, store, "general")

	key, isNew, err := r.Resolve(context.Background(), "c1", "another deck job")
	require.NoError(t, err)
	assert.Equal(t, "deck_construction", key)
	assert.False(t, isNew)
}

func TestResolver_ServiceUnavailable_FallsBack(t *testing.T) {
	store := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	fake := &fakeCompletion{err: llm.ErrServiceUnavailable}
	r := category.NewResolver(fake, store, "general")

	key, isNew, err := r.Resolve(context.Background(), "c1", "mystery job")
	require.NoError(t, err, "classification outage must not block generation")
	assert.Equal(t, "general", key)
	assert.True(t, isNew)

	// Second resolve reuses the fallback category.
	key, isNew, err = r.Resolve(context.Background(), "c1", "another mystery")
	require.NoError(t, err)
	assert.Equal(t, "general", key)
	assert.False(t, isNew)
}

func TestResolver_PromptListsCategoriesInStableOrder(t *testing.T) {
	store := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	for _, k := range []string{"zeta_work", "alpha_work", "mid_work"} {
		_, err := store.UpsertCategory("c1", k, knowledge.CategoryPatch{})
		require.NoError(t, err)
	}

	fake := &fakeCompletion{response: map[string]any{"match_type": "existing", "category": "mid_work"}}
	r := category.NewResolver(fake, store, "general")

	_, _, err := r.Resolve(context.Background(), "c1", "some job")
	require.NoError(t, err)
	_, _, err = r.Resolve(context.Background(), "c1", "some job")
	require.NoError(t, err)

	require.Len(t, fake.prompts, 2)
	assert.Equal(t, fake.prompts[0], fake.prompts[1], "same snapshot must produce an identical request")

	p := fake.prompts[0]
	assert.Less(t, strings.Index(p, "alpha_work"), strings.Index(p, "mid_work"))
	assert.Less(t, strings.Index(p, "mid_work"), strings.Index(p, "zeta_work"))
}
