package engine

import (
	"context"
	"strings"
	"sync"
)

// CatalogAPI is the taxonomy side of the backend consumed by the resolver.
type CatalogAPI interface {
	ListOptions(ctx context.Context, kind CatalogKind) ([]TaxonomyOption, error)
	SearchOptions(ctx context.Context, kind CatalogKind, query string) ([]TaxonomyOption, error)
	CreateOption(ctx context.Context, kind CatalogKind, name string) (TaxonomyOption, error)
	RenameOption(ctx context.Context, kind CatalogKind, id, newName string) (TaxonomyOption, error)
	DeleteOption(ctx context.Context, kind CatalogKind, id string) error
}

// wholesaleCatalogs are fetched in full and filtered client-side; the
// remaining catalogs forward search queries to the backend verbatim.
var wholesaleCatalogs = map[CatalogKind]bool{
	CatalogEnterprise: true,
	CatalogTemplate:   true,
}

// Resolver backs every taxonomy-valued field with a searchable, creatable
// catalog and keeps catalog edits fanned out into row data through the
// attached store.
type Resolver struct {
	mu        sync.Mutex
	api       CatalogAPI
	store     *RowStore
	catalogs  map[CatalogKind][]TaxonomyOption
	loaded    map[CatalogKind]bool
	selection map[CatalogKind]string
}

// NewResolver builds a resolver over the backend API and the row store the
// fan-out and in-use checks operate on.
func NewResolver(api CatalogAPI, store *RowStore) *Resolver {
	return &Resolver{
		api:       api,
		store:     store,
		catalogs:  make(map[CatalogKind][]TaxonomyOption),
		loaded:    make(map[CatalogKind]bool),
		selection: make(map[CatalogKind]string),
	}
}

// Load fetches and caches the full option set of a catalog.
func (r *Resolver) Load(ctx context.Context, kind CatalogKind) error {
	opts, err := r.api.ListOptions(ctx, kind)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.catalogs[kind] = opts
	r.loaded[kind] = true
	r.mu.Unlock()
	return nil
}

// Options returns the currently cached option set for a catalog.
func (r *Resolver) Options(kind CatalogKind) []TaxonomyOption {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TaxonomyOption(nil), r.catalogs[kind]...)
}

// Selection returns the resolver's current selection for a catalog, if any.
func (r *Resolver) Selection(kind CatalogKind) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection[kind]
}

// SetSelection records the currently selected option name for a catalog so
// renames can keep the selection in step.
func (r *Resolver) SetSelection(kind CatalogKind, name string) {
	r.mu.Lock()
	r.selection[kind] = name
	r.mu.Unlock()
}

// Search returns options matching the query. Wholesale catalogs filter the
// cached set with a case-insensitive substring match; the others forward the
// query to the backend.
func (r *Resolver) Search(ctx context.Context, kind CatalogKind, query string) ([]TaxonomyOption, error) {
	if wholesaleCatalogs[kind] {
		r.mu.Lock()
		loaded := r.loaded[kind]
		r.mu.Unlock()
		if !loaded {
			if err := r.Load(ctx, kind); err != nil {
				return nil, err
			}
		}
		needle := strings.ToLower(strings.TrimSpace(query))
		var out []TaxonomyOption
		for _, opt := range r.Options(kind) {
			if needle == "" || strings.Contains(strings.ToLower(opt.Name), needle) {
				out = append(out, opt)
			}
		}
		return out, nil
	}
	return r.api.SearchOptions(ctx, kind, query)
}

// ResolveOrCreate turns free-text input into a catalog option. A
// case-insensitive exact match against the loaded set is treated as a
// selection of the existing option and issues no create call. Otherwise a
// create is attempted; when the backend independently reports a duplicate,
// the failure is reinterpreted as a selection of the existing option. The
// dual path exists because two clients may race to create the same name.
func (r *Resolver) ResolveOrCreate(ctx context.Context, kind CatalogKind, name string) (TaxonomyOption, error) {
	name = strings.TrimSpace(name)
	if opt, ok := r.findByName(kind, name); ok {
		return opt, nil
	}

	created, err := r.api.CreateOption(ctx, kind, name)
	if err != nil {
		if !isDuplicateError(err) {
			return TaxonomyOption{}, err
		}
		// Lost the race: someone created the name first. Refresh and pick
		// up the winner locally instead of surfacing the error.
		if lerr := r.Load(ctx, kind); lerr == nil {
			if opt, ok := r.findByName(kind, name); ok {
				return opt, nil
			}
		}
		return TaxonomyOption{}, err
	}

	r.mu.Lock()
	r.catalogs[kind] = append(r.catalogs[kind], created)
	r.mu.Unlock()
	return created, nil
}

// Rename updates the option on the backend and, on success, rewrites the
// cached catalog entry, the current selection if it referenced the old name,
// and every loaded account record field holding the old name by value.
func (r *Resolver) Rename(ctx context.Context, kind CatalogKind, id, newName string) error {
	newName = strings.TrimSpace(newName)
	updated, err := r.api.RenameOption(ctx, kind, id, newName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	oldName := ""
	for i, opt := range r.catalogs[kind] {
		if opt.ID == id {
			oldName = opt.Name
			r.catalogs[kind][i] = updated
			break
		}
	}
	if oldName != "" && equalFold(r.selection[kind], oldName) {
		r.selection[kind] = updated.Name
	}
	r.mu.Unlock()

	if oldName != "" && r.store != nil {
		r.store.RenameTaxonomy(kind, oldName, updated.Name)
	}
	return nil
}

// IsInUse reports whether any currently loaded record references the named
// option. The presentation layer consults it before offering a delete
// action; Delete re-checks it before any network call.
func (r *Resolver) IsInUse(kind CatalogKind, name string) bool {
	if r.store == nil {
		return false
	}
	return r.store.UsesTaxonomy(kind, name)
}

// Delete removes an option from the backend unless a loaded record still
// references it, in which case it refuses locally with ErrTaxonomyInUse and
// no network call is made.
func (r *Resolver) Delete(ctx context.Context, kind CatalogKind, id string) error {
	r.mu.Lock()
	var name string
	for _, opt := range r.catalogs[kind] {
		if opt.ID == id {
			name = opt.Name
			break
		}
	}
	r.mu.Unlock()

	if name != "" && r.IsInUse(kind, name) {
		return ErrTaxonomyInUse
	}
	if err := r.api.DeleteOption(ctx, kind, id); err != nil {
		return err
	}

	r.mu.Lock()
	opts := r.catalogs[kind]
	for i, opt := range opts {
		if opt.ID == id {
			r.catalogs[kind] = append(opts[:i], opts[i+1:]...)
			break
		}
	}
	if name != "" && equalFold(r.selection[kind], name) {
		delete(r.selection, kind)
	}
	r.mu.Unlock()
	return nil
}

func (r *Resolver) findByName(kind CatalogKind, name string) (TaxonomyOption, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range r.catalogs[kind] {
		if equalFold(opt.Name, name) {
			return opt, true
		}
	}
	return TaxonomyOption{}, false
}

// isDuplicateError matches the backend's duplicate-name signal. The check
// is a substring contract on the error message; the backend preserves the
// "already exists" / "duplicate" wording.
func isDuplicateError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
