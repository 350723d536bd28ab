package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// catalogPaths maps a catalog kind to its REST collection path.
var catalogPaths = map[CatalogKind]string{
	CatalogEnterprise: "/api/enterprises",
	CatalogProduct:    "/api/products",
	CatalogService:    "/api/services",
	CatalogTemplate:   "/api/templates",
}

// APIError is a non-2xx backend response. Error returns the backend's
// message verbatim; the resolver's duplicate detection depends on that
// wording surviving untouched.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// Client speaks the backend's JSON contract. It implements both AccountAPI
// and CatalogAPI.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient builds a client for the given base URL (scheme://host[:port],
// no trailing slash required).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer access token attached to every request.
func (c *Client) SetToken(token string) { c.token = token }

// ListOptions fetches a catalog in full.
func (c *Client) ListOptions(ctx context.Context, kind CatalogKind) ([]TaxonomyOption, error) {
	path, ok := catalogPaths[kind]
	if !ok {
		return nil, ErrUnknownCatalog
	}
	var out []TaxonomyOption
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchOptions fetches catalog entries matching the query via the backend's
// ?search= parameter. The query is forwarded verbatim (URL-encoded).
func (c *Client) SearchOptions(ctx context.Context, kind CatalogKind, query string) ([]TaxonomyOption, error) {
	path, ok := catalogPaths[kind]
	if !ok {
		return nil, ErrUnknownCatalog
	}
	if query != "" {
		path += "?search=" + url.QueryEscape(query)
	}
	var out []TaxonomyOption
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOption creates a catalog entry and returns the stored option.
func (c *Client) CreateOption(ctx context.Context, kind CatalogKind, name string) (TaxonomyOption, error) {
	path, ok := catalogPaths[kind]
	if !ok {
		return TaxonomyOption{}, ErrUnknownCatalog
	}
	var out TaxonomyOption
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"name": name}, &out); err != nil {
		return TaxonomyOption{}, err
	}
	return out, nil
}

// RenameOption updates a catalog entry's name.
func (c *Client) RenameOption(ctx context.Context, kind CatalogKind, id, newName string) (TaxonomyOption, error) {
	path, ok := catalogPaths[kind]
	if !ok {
		return TaxonomyOption{}, ErrUnknownCatalog
	}
	var out TaxonomyOption
	if err := c.do(ctx, http.MethodPut, path+"/"+url.PathEscape(id), map[string]string{"name": newName}, &out); err != nil {
		return TaxonomyOption{}, err
	}
	return out, nil
}

// DeleteOption removes a catalog entry.
func (c *Client) DeleteOption(ctx context.Context, kind CatalogKind, id string) error {
	path, ok := catalogPaths[kind]
	if !ok {
		return ErrUnknownCatalog
	}
	return c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil)
}

// ListAccounts fetches the authoritative account list.
func (c *Client) ListAccounts(ctx context.Context) ([]AccountRecord, error) {
	var out []AccountRecord
	if err := c.do(ctx, http.MethodGet, "/api/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertAccount saves one flattened account record.
func (c *Client) UpsertAccount(ctx context.Context, payload AccountPayload) error {
	return c.do(ctx, http.MethodPut, "/api/accounts", payload, nil)
}

// CreateAccount creates a new account from the flattened payload (the id
// field is ignored by the backend) and returns the assigned id.
func (c *Client) CreateAccount(ctx context.Context, payload AccountPayload) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/accounts", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteAccount removes an account and its licenses.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/accounts/"+url.PathEscape(id), nil, nil)
}

// do executes one JSON round trip. Non-2xx responses decode the backend's
// {"error": ...} body into an APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if bs, rerr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); rerr == nil {
			if json.Unmarshal(bs, &eb) == nil {
				if eb.Error != "" {
					apiErr.Message = eb.Error
				} else {
					apiErr.Message = eb.Message
				}
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
