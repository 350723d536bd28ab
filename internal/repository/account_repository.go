// This file defines the account aggregate (account row, license rows,
// license contact rows) and its repository. Licenses and contacts are
// ordered sequences identified by position, not by key; every write
// preserves position so the client's display order survives round trips.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Account is one enterprise-account row with its nested license entries.
// SelectedServices is stored as a comma-joined string in the database and
// exposed as a slice here.
type Account struct {
	ID               uint64
	AccountName      string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Status           string
	GlobalClientName string
	EnterpriseName   string
	ProductName      string
	ServiceName      string
	AddressLine1     string
	AddressLine2     string
	Country          string
	State            string
	City             string
	Pincode          string
	SelectedServices []string
	TechUsername     string
	TechEmail        string
	TechFirstName    string
	Licenses         []AccountLicense
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AccountLicense is one license row of an account.
type AccountLicense struct {
	Enterprise          string
	Product             string
	Service             string
	Category            string
	LicenseDate         string
	ExpirationDate      string
	Users               int
	RenewalNotice       bool
	RenewalNoticePeriod int
	Contacts            []LicenseContact
}

// LicenseContact is one contact row of a license.
type LicenseContact struct {
	Contact string
	Title   string
	Email   string
	Phone   string
}

// ErrAccountNotFound is returned when an account cannot be found in the DB.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepo encapsulates all database queries related to accounts and
// their license children.
type AccountRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewAccountRepo constructs an AccountRepo with the provided DB handle.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, account_name, first_name, last_name, email, phone, status,
	global_client_name, enterprise_name, product_name, service_name,
	address_line1, address_line2, country, state, city, pincode,
	selected_services, tech_username, tech_email, tech_first_name,
	created_at, updated_at`

func scanAccount(sc interface{ Scan(...any) error }) (*Account, error) {
	var a Account
	var selected string
	if err := sc.Scan(&a.ID, &a.AccountName, &a.FirstName, &a.LastName, &a.Email, &a.Phone,
		&a.Status, &a.GlobalClientName, &a.EnterpriseName, &a.ProductName, &a.ServiceName,
		&a.AddressLine1, &a.AddressLine2, &a.Country, &a.State, &a.City, &a.Pincode,
		&selected, &a.TechUsername, &a.TechEmail, &a.TechFirstName,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.SelectedServices = splitJoined(selected)
	return &a, nil
}

// List returns every account with its licenses and contacts, parents
// ordered by id and children ordered by their stored position.
func (r *AccountRepo) List(ctx context.Context) ([]*Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Account
	byID := map[uint64]*Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := r.loadLicenses(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one account and its children, returning
// ErrAccountNotFound if no row is found.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (*Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if err := r.loadLicenses(ctx, map[uint64]*Account{a.ID: a}); err != nil {
		return nil, err
	}
	return a, nil
}

// loadLicenses fills the Licenses slices of the given accounts in one pass
// per child table, keyed and ordered by (account_id, position).
func (r *AccountRepo) loadLicenses(ctx context.Context, byID map[uint64]*Account) error {
	ids := make([]any, 0, len(byID))
	placeholders := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
		placeholders = append(placeholders, "?")
	}
	in := strings.Join(placeholders, ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, enterprise, product, service, category,
		        license_date, expiration_date, users, renewal_notice, renewal_notice_period
		 FROM account_licenses WHERE account_id IN (`+in+`) ORDER BY account_id, position`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	// licenseOwner maps license row id -> (account, index) for contact attachment.
	type owner struct {
		acc *Account
		idx int
	}
	licenseOwner := map[uint64]owner{}
	var licenseIDs []any
	var licenseHolders []string
	for rows.Next() {
		var licID, accID uint64
		var lic AccountLicense
		if err := rows.Scan(&licID, &accID, &lic.Enterprise, &lic.Product, &lic.Service,
			&lic.Category, &lic.LicenseDate, &lic.ExpirationDate, &lic.Users,
			&lic.RenewalNotice, &lic.RenewalNoticePeriod); err != nil {
			return err
		}
		acc := byID[accID]
		if acc == nil {
			continue
		}
		acc.Licenses = append(acc.Licenses, lic)
		licenseOwner[licID] = owner{acc: acc, idx: len(acc.Licenses) - 1}
		licenseIDs = append(licenseIDs, licID)
		licenseHolders = append(licenseHolders, "?")
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(licenseIDs) == 0 {
		return nil
	}

	crows, err := r.db.QueryContext(ctx,
		`SELECT license_id, contact, title, email, phone
		 FROM license_contacts WHERE license_id IN (`+strings.Join(licenseHolders, ",")+`)
		 ORDER BY license_id, position`, licenseIDs...)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		var licID uint64
		var ct LicenseContact
		if err := crows.Scan(&licID, &ct.Contact, &ct.Title, &ct.Email, &ct.Phone); err != nil {
			return err
		}
		if o, ok := licenseOwner[licID]; ok {
			o.acc.Licenses[o.idx].Contacts = append(o.acc.Licenses[o.idx].Contacts, ct)
		}
	}
	return crows.Err()
}

// Create inserts a new account with its children inside one transaction and
// populates the generated id.
func (r *AccountRepo) Create(ctx context.Context, a *Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (account_name, first_name, last_name, email, phone, status,
		    global_client_name, enterprise_name, product_name, service_name,
		    address_line1, address_line2, country, state, city, pincode,
		    selected_services, tech_username, tech_email, tech_first_name)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.AccountName, a.FirstName, a.LastName, a.Email, a.Phone, a.Status,
		a.GlobalClientName, a.EnterpriseName, a.ProductName, a.ServiceName,
		a.AddressLine1, a.AddressLine2, a.Country, a.State, a.City, a.Pincode,
		strings.Join(a.SelectedServices, ","), a.TechUsername, a.TechEmail, a.TechFirstName)
	if err != nil {
		return err
	}
	var id int64
	if id, err = res.LastInsertId(); err != nil {
		return err
	}
	a.ID = uint64(id)
	err = insertLicenses(ctx, tx, a.ID, a.Licenses)
	return err
}

// Upsert saves one account: the parent row is updated in place (or inserted
// when the id is unknown) and the license children are replaced wholesale,
// which keeps the stored ordering identical to the submitted ordering.
func (r *AccountRepo) Upsert(ctx context.Context, a *Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var exists bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`, a.ID).Scan(&exists); err != nil {
		return err
	}

	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET account_name=?, first_name=?, last_name=?, email=?, phone=?,
			    status=?, global_client_name=?, enterprise_name=?, product_name=?, service_name=?,
			    address_line1=?, address_line2=?, country=?, state=?, city=?, pincode=?,
			    selected_services=?, tech_username=?, tech_email=?, tech_first_name=?,
			    updated_at=CURRENT_TIMESTAMP
			 WHERE id=?`,
			a.AccountName, a.FirstName, a.LastName, a.Email, a.Phone, a.Status,
			a.GlobalClientName, a.EnterpriseName, a.ProductName, a.ServiceName,
			a.AddressLine1, a.AddressLine2, a.Country, a.State, a.City, a.Pincode,
			strings.Join(a.SelectedServices, ","), a.TechUsername, a.TechEmail, a.TechFirstName,
			a.ID)
		if err != nil {
			return err
		}
		if err = deleteLicenses(ctx, tx, a.ID); err != nil {
			return err
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (id, account_name, first_name, last_name, email, phone, status,
			    global_client_name, enterprise_name, product_name, service_name,
			    address_line1, address_line2, country, state, city, pincode,
			    selected_services, tech_username, tech_email, tech_first_name)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			a.ID, a.AccountName, a.FirstName, a.LastName, a.Email, a.Phone, a.Status,
			a.GlobalClientName, a.EnterpriseName, a.ProductName, a.ServiceName,
			a.AddressLine1, a.AddressLine2, a.Country, a.State, a.City, a.Pincode,
			strings.Join(a.SelectedServices, ","), a.TechUsername, a.TechEmail, a.TechFirstName)
		if err != nil {
			return err
		}
	}
	err = insertLicenses(ctx, tx, a.ID, a.Licenses)
	return err
}

// Delete removes an account and all dependent license and contact rows
// inside one transaction. sql.ErrNoRows is returned when the account does
// not exist.
func (r *AccountRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var exists bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		err = sql.ErrNoRows
		return err
	}
	if err = deleteLicenses(ctx, tx, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

// ReferencesTaxonomy reports whether any account references the named
// taxonomy option of the given kind, in its linkage columns, its selected
// services or its license rows. It backs the 409 answered on catalog
// deletes.
func (r *AccountRepo) ReferencesTaxonomy(ctx context.Context, kind, name string) (bool, error) {
	var q string
	switch kind {
	case "enterprise":
		q = `SELECT EXISTS(
		        SELECT 1 FROM accounts WHERE enterprise_name = ?
		        UNION SELECT 1 FROM account_licenses WHERE enterprise = ?)`
	case "product":
		q = `SELECT EXISTS(
		        SELECT 1 FROM accounts WHERE product_name = ?
		        UNION SELECT 1 FROM account_licenses WHERE product = ?)`
	case "service":
		q = `SELECT EXISTS(
		        SELECT 1 FROM accounts WHERE service_name = ? OR FIND_IN_SET(?, selected_services) > 0
		        UNION SELECT 1 FROM account_licenses WHERE service = ?)`
	default:
		return false, nil
	}

	var used bool
	var err error
	if kind == "service" {
		err = r.db.QueryRowContext(ctx, q, name, name, name).Scan(&used)
	} else {
		err = r.db.QueryRowContext(ctx, q, name, name).Scan(&used)
	}
	if err != nil {
		return false, err
	}
	return used, nil
}

// RenameTaxonomyReferences rewrites every stored reference to a renamed
// taxonomy option, mirroring on the server side the fan-out clients apply
// to their local rows. It returns the number of rows touched.
func (r *AccountRepo) RenameTaxonomyReferences(ctx context.Context, kind, oldName, newName string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var total int64
	run := func(query string, args ...any) error {
		res, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		n, _ := res.RowsAffected()
		total += n
		return nil
	}

	switch kind {
	case "enterprise":
		err = run(`UPDATE accounts SET enterprise_name=? WHERE enterprise_name=?`, newName, oldName)
		if err == nil {
			err = run(`UPDATE account_licenses SET enterprise=? WHERE enterprise=?`, newName, oldName)
		}
	case "product":
		err = run(`UPDATE accounts SET product_name=? WHERE product_name=?`, newName, oldName)
		if err == nil {
			err = run(`UPDATE account_licenses SET product=? WHERE product=?`, newName, oldName)
		}
	case "service":
		err = run(`UPDATE accounts SET service_name=? WHERE service_name=?`, newName, oldName)
		if err == nil {
			// selected_services is comma-joined; rewrite the one element.
			err = run(`UPDATE accounts
			           SET selected_services = TRIM(BOTH ',' FROM REPLACE(CONCAT(',', selected_services, ','), CONCAT(',', ?, ','), CONCAT(',', ?, ',')))
			           WHERE FIND_IN_SET(?, selected_services) > 0`, oldName, newName, oldName)
		}
		if err == nil {
			err = run(`UPDATE account_licenses SET service=? WHERE service=?`, newName, oldName)
		}
	}
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func insertLicenses(ctx context.Context, tx *sql.Tx, accountID uint64, licenses []AccountLicense) error {
	for pos, lic := range licenses {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO account_licenses (account_id, position, enterprise, product, service,
			    category, license_date, expiration_date, users, renewal_notice, renewal_notice_period)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			accountID, pos, lic.Enterprise, lic.Product, lic.Service, lic.Category,
			lic.LicenseDate, lic.ExpirationDate, lic.Users, lic.RenewalNotice, lic.RenewalNoticePeriod)
		if err != nil {
			return err
		}
		licID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for cpos, ct := range lic.Contacts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO license_contacts (license_id, position, contact, title, email, phone)
				 VALUES (?,?,?,?,?,?)`,
				licID, cpos, ct.Contact, ct.Title, ct.Email, ct.Phone); err != nil {
				return err
			}
		}
	}
	return nil
}

func deleteLicenses(ctx context.Context, tx *sql.Tx, accountID uint64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE lc FROM license_contacts lc
		 JOIN account_licenses al ON al.id = lc.license_id
		 WHERE al.account_id = ?`, accountID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM account_licenses WHERE account_id = ?`, accountID)
	return err
}

// splitJoined splits the comma-joined selected_services column value.
func splitJoined(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
