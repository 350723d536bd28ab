package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/dkoleva/enterprise-accounts/internal/queue"
	"github.com/dkoleva/enterprise-accounts/internal/repository"
	queue_publisher "github.com/dkoleva/enterprise-accounts/internal/service"
	"github.com/dkoleva/enterprise-accounts/pkg/engine"
)

// AccountHandler serves the account endpoints. Responses use the same JSON
// shapes the engine package speaks, so the server and its client SDK share
// one wire contract.
type AccountHandler struct {
	Accounts *repository.AccountRepo
	validate *validator.Validate
}

// NewAccountHandler constructs an AccountHandler and panics if the
// repository is nil.
func NewAccountHandler(accounts *repository.AccountRepo) *AccountHandler {
	if accounts == nil {
		panic("nil repository passed to NewAccountHandler")
	}
	return &AccountHandler{Accounts: accounts, validate: validator.New()}
}

// List handles GET /api/accounts and returns every account as a nested
// record, licenses and contacts in stored order.
func (h *AccountHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]engine.AccountRecord, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountToRecord(a))
	}
	return c.JSON(http.StatusOK, out)
}

// Upsert handles PUT /api/accounts. The body is the flattened payload; the
// id must be a real backend id, never a client-temporary one.
func (h *AccountHandler) Upsert(c echo.Context) error {
	var req engine.AccountPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Var(req.ID, "required"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id is required"})
	}
	if engine.IsTemporaryID(req.ID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "temporary id cannot be persisted"})
	}
	if err := h.validate.Var(req.Email, "omitempty,email"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if err := h.validate.Var(req.Status, "omitempty,oneof=Active Inactive"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	id, err := strconv.ParseUint(req.ID, 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	acc := payloadToAccount(&req)
	acc.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.Upsert(ctx, acc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}

	h.publishSaved(c, acc)
	return c.JSON(http.StatusOK, accountToRecord(acc))
}

// Create handles POST /api/accounts. The payload's id field is ignored; the
// backend assigns the real id and returns it so the client can replace its
// temporary one.
func (h *AccountHandler) Create(c echo.Context) error {
	var req engine.AccountPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Var(req.Email, "omitempty,email"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}

	acc := payloadToAccount(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.Create(ctx, acc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	h.publishSaved(c, acc)
	return c.JSON(http.StatusCreated, echo.Map{"id": strconv.FormatUint(acc.ID, 10)})
}

// Delete handles DELETE /api/accounts/:id.
func (h *AccountHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// publishSaved emits the account.saved audit event. Losing the event never
// fails the request.
func (h *AccountHandler) publishSaved(c echo.Context, acc *repository.Account) {
	uid, _ := getUserID(c)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queue_publisher.PublishAccountSaved(ctx, queue.AccountSavedEvent{
		AccountID:      strconv.FormatUint(acc.ID, 10),
		AccountName:    acc.AccountName,
		EnterpriseName: acc.EnterpriseName,
		ProductName:    acc.ProductName,
		ServiceName:    acc.ServiceName,
		LicenseCount:   len(acc.Licenses),
		SavedBy:        uid,
		SavedAt:        time.Now().UTC().Format(time.RFC3339),
	})
}

// payloadToAccount maps the flattened wire payload onto the storage model.
// Only the username, email and first name of the technical block travel on
// the wire, so only those columns are persisted.
func payloadToAccount(p *engine.AccountPayload) *repository.Account {
	acc := &repository.Account{
		AccountName:      p.AccountName,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Phone:            p.Phone,
		Status:           p.Status,
		GlobalClientName: p.GlobalClientName,
		EnterpriseName:   p.EnterpriseName,
		ProductName:      p.ProductName,
		ServiceName:      p.ServiceName,
		AddressLine1:     p.AddressLine1,
		AddressLine2:     p.AddressLine2,
		Country:          p.Country,
		State:            p.State,
		City:             p.City,
		Pincode:          p.Pincode,
		SelectedServices: append([]string(nil), p.SelectedServices...),
		TechUsername:     p.TechnicalUserDetails.Username,
		TechEmail:        p.TechnicalUserDetails.Email,
		TechFirstName:    p.TechnicalUserDetails.FirstName,
	}
	if acc.TechUsername == "" {
		acc.TechUsername = p.TechnicalUsername
	}
	for _, sp := range p.Services {
		lic := repository.AccountLicense{
			Enterprise:          sp.Enterprise,
			Product:             sp.Product,
			Service:             sp.Service,
			Category:            sp.Category,
			LicenseDate:         sp.LicenseDate,
			ExpirationDate:      sp.ExpirationDate,
			Users:               sp.Users,
			RenewalNotice:       sp.RenewalNotice,
			RenewalNoticePeriod: sp.RenewalNoticePeriod,
		}
		for _, ct := range sp.Contacts {
			lic.Contacts = append(lic.Contacts, repository.LicenseContact(ct))
		}
		acc.Licenses = append(acc.Licenses, lic)
	}
	return acc
}

// accountToRecord maps the storage model back to the nested record shape
// clients hold locally.
func accountToRecord(a *repository.Account) engine.AccountRecord {
	rec := engine.AccountRecord{
		ID:               strconv.FormatUint(a.ID, 10),
		AccountName:      a.AccountName,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Email:            a.Email,
		Phone:            a.Phone,
		Status:           a.Status,
		GlobalClientName: a.GlobalClientName,
		EnterpriseName:   a.EnterpriseName,
		ProductName:      a.ProductName,
		ServiceName:      a.ServiceName,
		MasterAccount:    a.EnterpriseName,
		SelectedServices: append([]string(nil), a.SelectedServices...),
	}
	if a.AddressLine1 != "" || a.AddressLine2 != "" || a.Country != "" ||
		a.State != "" || a.City != "" || a.Pincode != "" {
		rec.Address = &engine.Address{
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			Country:      a.Country,
			State:        a.State,
			City:         a.City,
			Pincode:      a.Pincode,
		}
	}
	if a.TechUsername != "" || a.TechEmail != "" || a.TechFirstName != "" {
		rec.Technical = &engine.TechnicalProfile{
			TechnicalUser: a.TechUsername,
			Email:         a.TechEmail,
			FirstName:     a.TechFirstName,
		}
	}
	for _, lic := range a.Licenses {
		entry := engine.LicenseEntry{
			Enterprise:    lic.Enterprise,
			Product:       lic.Product,
			Service:       lic.Service,
			Category:      lic.Category,
			LicenseStart:  lic.LicenseDate,
			LicenseEnd:    lic.ExpirationDate,
			Users:         strconv.Itoa(lic.Users),
			RenewalNotice: lic.RenewalNotice,
			NoticeDays:    strconv.Itoa(lic.RenewalNoticePeriod),
		}
		for _, ct := range lic.Contacts {
			entry.Contacts = append(entry.Contacts, engine.ContactEntry(ct))
		}
		rec.Licenses = append(rec.Licenses, entry)
	}
	return rec
}
