package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogAPI struct {
	mu          sync.Mutex
	options     map[CatalogKind][]TaxonomyOption
	nextID      int
	createErr   error
	createCalls int
	listCalls   int
	searchCalls int
	renameCalls int
	deleteCalls int
}

func newFakeCatalogAPI() *fakeCatalogAPI {
	return &fakeCatalogAPI{options: make(map[CatalogKind][]TaxonomyOption), nextID: 1}
}

func (f *fakeCatalogAPI) seed(kind CatalogKind, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		f.options[kind] = append(f.options[kind], TaxonomyOption{ID: fmt.Sprintf("%d", f.nextID), Name: n})
		f.nextID++
	}
}

func (f *fakeCatalogAPI) ListOptions(_ context.Context, kind CatalogKind) ([]TaxonomyOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]TaxonomyOption(nil), f.options[kind]...), nil
}

func (f *fakeCatalogAPI) SearchOptions(_ context.Context, kind CatalogKind, query string) ([]TaxonomyOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	var out []TaxonomyOption
	for _, o := range f.options[kind] {
		if strings.Contains(strings.ToLower(o.Name), strings.ToLower(query)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeCatalogAPI) CreateOption(_ context.Context, kind CatalogKind, name string) (TaxonomyOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return TaxonomyOption{}, f.createErr
	}
	opt := TaxonomyOption{ID: fmt.Sprintf("%d", f.nextID), Name: name}
	f.nextID++
	f.options[kind] = append(f.options[kind], opt)
	return opt, nil
}

func (f *fakeCatalogAPI) RenameOption(_ context.Context, kind CatalogKind, id, newName string) (TaxonomyOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameCalls++
	for i, o := range f.options[kind] {
		if o.ID == id {
			f.options[kind][i].Name = newName
			return f.options[kind][i], nil
		}
	}
	return TaxonomyOption{}, &APIError{Status: 404, Message: "not found"}
}

func (f *fakeCatalogAPI) DeleteOption(_ context.Context, kind CatalogKind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	for i, o := range f.options[kind] {
		if o.ID == id {
			f.options[kind] = append(f.options[kind][:i], f.options[kind][i+1:]...)
			return nil
		}
	}
	return &APIError{Status: 404, Message: "not found"}
}

func TestResolveOrCreateIdempotentUnderCase(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	r := NewResolver(api, NewRowStore())
	require.NoError(t, r.Load(ctx, CatalogEnterprise))

	first, err := r.ResolveOrCreate(ctx, CatalogEnterprise, "Acme")
	require.NoError(t, err)

	second, err := r.ResolveOrCreate(ctx, CatalogEnterprise, "acme")
	require.NoError(t, err)

	// Same option both times, exactly one create call issued.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, api.createCalls)
}

func TestResolveOrCreateSelectsExistingWithoutCreate(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.seed(CatalogProduct, "Pipelines")
	r := NewResolver(api, NewRowStore())
	require.NoError(t, r.Load(ctx, CatalogProduct))

	opt, err := r.ResolveOrCreate(ctx, CatalogProduct, "  pipelines ")
	require.NoError(t, err)
	assert.Equal(t, "Pipelines", opt.Name)
	assert.Zero(t, api.createCalls)
}

func TestResolveOrCreateDuplicateRaceFallsBackToExisting(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	r := NewResolver(api, NewRowStore())
	require.NoError(t, r.Load(ctx, CatalogService))

	// Another client wins the race: the backend already holds the name and
	// answers the create with a duplicate error.
	api.seed(CatalogService, "Support")
	api.createErr = &APIError{Status: 409, Message: `service "Support" already exists`}

	opt, err := r.ResolveOrCreate(ctx, CatalogService, "Support")
	require.NoError(t, err)
	assert.Equal(t, "Support", opt.Name)
	assert.Equal(t, 1, api.createCalls)
}

func TestResolveOrCreatePropagatesUnrelatedErrors(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.createErr = &APIError{Status: 500, Message: "db error"}
	r := NewResolver(api, NewRowStore())

	_, err := r.ResolveOrCreate(ctx, CatalogService, "Support")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestRenameUpdatesCatalogSelectionAndRows(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.seed(CatalogEnterprise, "Acme")
	store := NewRowStore()
	store.Add(AccountRecord{ID: "A", EnterpriseName: "Acme", MasterAccount: "Acme"})
	store.Add(AccountRecord{ID: "B", EnterpriseName: "Globex"})

	r := NewResolver(api, store)
	require.NoError(t, r.Load(ctx, CatalogEnterprise))
	r.SetSelection(CatalogEnterprise, "Acme")

	require.NoError(t, r.Rename(ctx, CatalogEnterprise, "1", "Acme Corp"))

	opts := r.Options(CatalogEnterprise)
	require.Len(t, opts, 1)
	assert.Equal(t, "Acme Corp", opts[0].Name)
	assert.Equal(t, "Acme Corp", r.Selection(CatalogEnterprise))

	a, _ := store.Get("A")
	assert.Equal(t, "Acme Corp", a.EnterpriseName)
	assert.Equal(t, "Acme Corp", a.MasterAccount)
	b, _ := store.Get("B")
	assert.Equal(t, "Globex", b.EnterpriseName)
}

func TestDeleteRefusedWhileInUse(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.seed(CatalogService, "Support")
	store := NewRowStore()
	store.Add(AccountRecord{ID: "A", SelectedServices: []string{"Support"}})

	r := NewResolver(api, store)
	require.NoError(t, r.Load(ctx, CatalogService))

	assert.True(t, r.IsInUse(CatalogService, "Support"))
	err := r.Delete(ctx, CatalogService, "1")
	assert.ErrorIs(t, err, ErrTaxonomyInUse)
	// Refusal is local: no delete call reached the backend.
	assert.Zero(t, api.deleteCalls)
}

func TestDeleteRemovesUnusedOption(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.seed(CatalogService, "Billing")
	r := NewResolver(api, NewRowStore())
	require.NoError(t, r.Load(ctx, CatalogService))

	require.NoError(t, r.Delete(ctx, CatalogService, "1"))
	assert.Empty(t, r.Options(CatalogService))
	assert.Equal(t, 1, api.deleteCalls)
}

func TestSearchFiltersWholesaleCatalogsClientSide(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.seed(CatalogEnterprise, "Acme", "Acme Labs", "Globex")
	r := NewResolver(api, NewRowStore())

	out, err := r.Search(ctx, CatalogEnterprise, "acme")
	require.NoError(t, err)
	require.Len(t, out, 2)
	// Enterprises are fetched wholesale; the query never reaches the API.
	assert.Zero(t, api.searchCalls)
}

func TestSearchLoadsEmptyWholesaleCatalogOnce(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	r := NewResolver(api, NewRowStore())

	// The backend genuinely has no enterprises. The first search fetches the
	// catalog; the second must trust the cached empty set instead of fetching
	// again.
	out, err := r.Search(ctx, CatalogEnterprise, "acme")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, api.listCalls)

	out, err = r.Search(ctx, CatalogEnterprise, "acme")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, api.listCalls)
}

func TestSearchForwardsQueryForServerSideCatalogs(t *testing.T) {
	ctx := context.Background()
	api := newFakeCatalogAPI()
	api.seed(CatalogProduct, "Pipelines", "Artifacts")
	r := NewResolver(api, NewRowStore())

	out, err := r.Search(ctx, CatalogProduct, "pipe")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, api.searchCalls)
}
