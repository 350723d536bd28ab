// Package engine implements the row synchronization engine that backs the
// enterprise-accounts administration table. It holds the client's working
// copy of account rows, debounces field edits into upsert calls against the
// REST backend, resolves taxonomy options (enterprises, products, services,
// templates) with create-on-miss semantics, and derives sorted/grouped views.
// The package is transport-agnostic except for Client, which speaks the
// backend's JSON contract.
package engine

import (
	"strings"

	"github.com/google/uuid"
)

// Account status values. The empty string means the status has not been set.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusUnset    = ""
)

// TempIDPrefix marks client-generated row ids that have not round-tripped
// through the backend yet. Records carrying such an id are never sent to the
// upsert endpoint; the owning flow replaces the id after creation succeeds.
const TempIDPrefix = "tmp-"

// NewTemporaryID returns a fresh client-side row id with the temporary prefix.
func NewTemporaryID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTemporaryID reports whether id was generated locally and is therefore
// unknown to the backend.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// CatalogKind identifies one of the taxonomy catalogs.
type CatalogKind string

const (
	CatalogEnterprise CatalogKind = "enterprise"
	CatalogProduct    CatalogKind = "product"
	CatalogService    CatalogKind = "service"
	CatalogTemplate   CatalogKind = "template"
)

// TaxonomyOption is one entry of a taxonomy catalog. Names are treated as
// case-insensitively unique within a catalog; the backend is the final
// arbiter of uniqueness.
type TaxonomyOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Address is the optional postal address block of an account record. Country
// holds the address country only; selected services live on the record's
// SelectedServices field.
type Address struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	Country      string `json:"country"`
	State        string `json:"state"`
	City         string `json:"city"`
	Pincode      string `json:"pincode"`
}

// TechnicalProfile describes the technical user attached to an account.
type TechnicalProfile struct {
	FirstName     string `json:"firstName"`
	MiddleName    string `json:"middleName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Status        string `json:"status"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Password      string `json:"password"`
	TechnicalUser string `json:"technicalUser"`
}

// ContactEntry is one contact row of a license. Entries carry no unique key
// and are identified only by position.
type ContactEntry struct {
	Contact string `json:"contact"`
	Title   string `json:"title"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// LicenseEntry is one license row of an account. Dates are ISO 8601 dates
// without a time component. Users and NoticeDays keep the raw cell input;
// they are parsed to integers only when the record is flattened for the
// wire (empty or malformed input counts as zero).
type LicenseEntry struct {
	Enterprise    string         `json:"enterprise"`
	Product       string         `json:"product"`
	Service       string         `json:"service"`
	Category      string         `json:"category"`
	LicenseStart  string         `json:"licenseStart"`
	LicenseEnd    string         `json:"licenseEnd"`
	Users         string         `json:"users"`
	RenewalNotice bool           `json:"renewalNotice"`
	NoticeDays    string         `json:"noticeDays"`
	Contacts      []ContactEntry `json:"contacts"`
}

// AccountRecord is one row of the accounts table.
//
// EnterpriseName, ProductName and ServiceName are the canonical taxonomy
// linkage. MasterAccount is kept for wire compatibility with older payloads
// but is derived: every write to EnterpriseName rewrites it, and a write
// addressed to masterAccount is applied to EnterpriseName. It is never an
// independently mutable copy.
type AccountRecord struct {
	ID               string            `json:"id"`
	AccountName      string            `json:"accountName"`
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	Status           string            `json:"status"`
	GlobalClientName string            `json:"globalClientName"`
	EnterpriseName   string            `json:"enterpriseName"`
	ProductName      string            `json:"productName"`
	ServiceName      string            `json:"serviceName"`
	MasterAccount    string            `json:"masterAccount"`
	SelectedServices []string          `json:"selectedServices,omitempty"`
	Address          *Address          `json:"address,omitempty"`
	Technical        *TechnicalProfile `json:"technical,omitempty"`
	Licenses         []LicenseEntry    `json:"licenses,omitempty"`
}

// Clone returns a deep copy of the record so callers can hold snapshots
// without aliasing store-internal state.
func (r AccountRecord) Clone() AccountRecord {
	out := r
	if r.Address != nil {
		addr := *r.Address
		out.Address = &addr
	}
	if r.Technical != nil {
		tech := *r.Technical
		out.Technical = &tech
	}
	if r.SelectedServices != nil {
		out.SelectedServices = append([]string(nil), r.SelectedServices...)
	}
	if r.Licenses != nil {
		out.Licenses = make([]LicenseEntry, len(r.Licenses))
		for i, lic := range r.Licenses {
			cp := lic
			if lic.Contacts != nil {
				cp.Contacts = append([]ContactEntry(nil), lic.Contacts...)
			}
			out.Licenses[i] = cp
		}
	}
	return out
}

// equalFold reports case-insensitive equality after trimming surrounding
// whitespace, the comparison used everywhere taxonomy names are matched.
func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
