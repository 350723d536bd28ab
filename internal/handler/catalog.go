package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dkoleva/enterprise-accounts/internal/queue"
	"github.com/dkoleva/enterprise-accounts/internal/repository"
	queue_publisher "github.com/dkoleva/enterprise-accounts/internal/service"
)

// CatalogHandler serves the four taxonomy catalogs. One handler instance
// covers all of them; routes bind a specific kind via the closure-returning
// methods below.
type CatalogHandler struct {
	Repos    map[string]*repository.CatalogRepo // keyed by kind: enterprise, product, service, template
	Accounts *repository.AccountRepo
	// Invalidate drops the cached catalog GET responses after a mutation
	// so list reads never miss the write that just succeeded. Optional.
	Invalidate func(ctx context.Context)
}

// NewCatalogHandler constructs a CatalogHandler and panics if any
// dependency is nil. invalidate may be nil when no response cache is wired.
func NewCatalogHandler(repos map[string]*repository.CatalogRepo, accounts *repository.AccountRepo, invalidate func(ctx context.Context)) *CatalogHandler {
	if len(repos) == 0 || accounts == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Repos: repos, Accounts: accounts, Invalidate: invalidate}
}

// bustCache invalidates cached catalog responses after a successful write.
func (h *CatalogHandler) bustCache(ctx context.Context) {
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
}

// optionDTO is the wire shape of one catalog entry. Identifiers travel as
// strings so clients never have to care about the storage type.
type optionDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toDTO(o *repository.CatalogOption) optionDTO {
	return optionDTO{ID: strconv.FormatUint(o.ID, 10), Name: o.Name}
}

// List handles GET /api/<catalog>. An optional ?search= parameter narrows
// the result to entries whose name contains the query.
func (h *CatalogHandler) List(kind string) echo.HandlerFunc {
	repo := h.Repos[kind]
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		var (
			items []*repository.CatalogOption
			err   error
		)
		if q := strings.TrimSpace(c.QueryParam("search")); q != "" {
			items, err = repo.Search(ctx, q)
		} else {
			items, err = repo.List(ctx)
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		out := make([]optionDTO, 0, len(items))
		for _, it := range items {
			out = append(out, toDTO(it))
		}
		return c.JSON(http.StatusOK, out)
	}
}

// Create handles POST /api/<catalog>. Duplicate names answer 409 with a
// message that names the collision so clients can fall back to selecting
// the existing entry.
func (h *CatalogHandler) Create(kind string) echo.HandlerFunc {
	repo := h.Repos[kind]
	return func(c echo.Context) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		opt := &repository.CatalogOption{Name: name}
		if err := repo.Create(ctx, opt); err != nil {
			if errors.Is(err, repository.ErrNameExists) {
				// Echo the existing entry's id so clients racing on the
				// same name can select the winner without a reload.
				body := echo.Map{"error": kind + " already exists"}
				if existing, gerr := repo.GetByName(ctx, name); gerr == nil {
					body["id"] = strconv.FormatUint(existing.ID, 10)
				}
				return c.JSON(http.StatusConflict, body)
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create " + kind})
		}
		h.bustCache(ctx)
		return c.JSON(http.StatusCreated, toDTO(opt))
	}
}

// Rename handles PUT /api/<catalog>/:id. On success every account row that
// referenced the old name is rewritten to the new one and a
// taxonomy.renamed event is published for the audit trail.
func (h *CatalogHandler) Rename(kind string) echo.HandlerFunc {
	repo := h.Repos[kind]
	return func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrCatalogNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": kind + " not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if err := repo.UpdateName(ctx, id, name); err != nil {
			if errors.Is(err, repository.ErrNameExists) {
				return c.JSON(http.StatusConflict, echo.Map{"error": kind + " already exists"})
			}
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": kind + " not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}

		h.bustCache(ctx)

		touched := 0
		if n, err := h.Accounts.RenameTaxonomyReferences(ctx, kind, existing.Name, name); err == nil {
			touched = n
		}

		uid, _ := getUserID(c)
		_ = queue_publisher.PublishTaxonomyRenamed(ctx, queue.TaxonomyRenamedEvent{
			Catalog:     kind,
			OldName:     existing.Name,
			NewName:     name,
			RowsTouched: touched,
			RenamedBy:   uid,
			RenamedAt:   time.Now().UTC().Format(time.RFC3339),
		})

		return c.JSON(http.StatusOK, optionDTO{ID: strconv.FormatUint(id, 10), Name: name})
	}
}

// Delete handles DELETE /api/<catalog>/:id. Options still referenced by
// account rows are protected and answer 409.
func (h *CatalogHandler) Delete(kind string) echo.HandlerFunc {
	repo := h.Repos[kind]
	return func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrCatalogNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": kind + " not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}

		used, err := h.Accounts.ReferencesTaxonomy(ctx, kind, existing.Name)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if used {
			return c.JSON(http.StatusConflict, echo.Map{"error": kind + " is in use"})
		}

		if err := repo.Delete(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": kind + " not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
		h.bustCache(ctx)
		return c.NoContent(http.StatusNoContent)
	}
}
