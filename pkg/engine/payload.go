package engine

import (
	"strconv"
	"strings"
)

// AccountPayload is the flattened projection of an AccountRecord sent to the
// backend's upsert endpoint. Nested address fields are hoisted to top-level
// keys and the technical profile collapses into technicalUserDetails plus
// technicalUsername. The field names are a wire contract and must not drift.
type AccountPayload struct {
	ID                   string               `json:"id"`
	AccountName          string               `json:"accountName"`
	Email                string               `json:"email"`
	Phone                string               `json:"phone"`
	FirstName            string               `json:"firstName"`
	LastName             string               `json:"lastName"`
	GlobalClientName     string               `json:"globalClientName"`
	Status               string               `json:"status"`
	EnterpriseName       string               `json:"enterpriseName"`
	ProductName          string               `json:"productName"`
	ServiceName          string               `json:"serviceName"`
	AddressLine1         string               `json:"addressLine1"`
	AddressLine2         string               `json:"addressLine2"`
	Country              string               `json:"country"`
	State                string               `json:"state"`
	City                 string               `json:"city"`
	Pincode              string               `json:"pincode"`
	SelectedServices     []string             `json:"selectedServices,omitempty"`
	TechnicalUserDetails TechnicalUserDetails `json:"technicalUserDetails"`
	TechnicalUsername    string               `json:"technicalUsername"`
	Services             []ServicePayload     `json:"services"`
}

// TechnicalUserDetails is the wire projection of the technical profile.
type TechnicalUserDetails struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// ServicePayload is the wire shape of one license row. licenseStart and
// licenseEnd map to licenseDate and expirationDate; noticeDays maps to
// renewalNoticePeriod.
type ServicePayload struct {
	Enterprise          string           `json:"enterprise"`
	Product             string           `json:"product"`
	Service             string           `json:"service"`
	Category            string           `json:"category"`
	LicenseDate         string           `json:"licenseDate"`
	ExpirationDate      string           `json:"expirationDate"`
	Users               int              `json:"users"`
	RenewalNotice       bool             `json:"renewalNotice"`
	RenewalNoticePeriod int              `json:"renewalNoticePeriod"`
	Contacts            []ContactPayload `json:"contacts"`
}

// ContactPayload is the wire shape of one license contact.
type ContactPayload struct {
	Contact string `json:"contact"`
	Title   string `json:"title"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// FlattenRecord projects a record into its upsert payload.
func FlattenRecord(rec AccountRecord) AccountPayload {
	p := AccountPayload{
		ID:               rec.ID,
		AccountName:      rec.AccountName,
		Email:            rec.Email,
		Phone:            rec.Phone,
		FirstName:        rec.FirstName,
		LastName:         rec.LastName,
		GlobalClientName: rec.GlobalClientName,
		Status:           rec.Status,
		EnterpriseName:   rec.EnterpriseName,
		ProductName:      rec.ProductName,
		ServiceName:      rec.ServiceName,
		SelectedServices: append([]string(nil), rec.SelectedServices...),
		Services:         make([]ServicePayload, 0, len(rec.Licenses)),
	}
	if rec.Address != nil {
		p.AddressLine1 = rec.Address.AddressLine1
		p.AddressLine2 = rec.Address.AddressLine2
		p.Country = rec.Address.Country
		p.State = rec.Address.State
		p.City = rec.Address.City
		p.Pincode = rec.Address.Pincode
	}
	if rec.Technical != nil {
		p.TechnicalUserDetails = TechnicalUserDetails{
			Username:  rec.Technical.TechnicalUser,
			Email:     rec.Technical.Email,
			FirstName: rec.Technical.FirstName,
		}
		p.TechnicalUsername = rec.Technical.TechnicalUser
	}
	for _, lic := range rec.Licenses {
		sp := ServicePayload{
			Enterprise:          lic.Enterprise,
			Product:             lic.Product,
			Service:             lic.Service,
			Category:            lic.Category,
			LicenseDate:         lic.LicenseStart,
			ExpirationDate:      lic.LicenseEnd,
			Users:               parseCount(lic.Users),
			RenewalNotice:       lic.RenewalNotice,
			RenewalNoticePeriod: parseCount(lic.NoticeDays),
			Contacts:            make([]ContactPayload, 0, len(lic.Contacts)),
		}
		for _, ct := range lic.Contacts {
			sp.Contacts = append(sp.Contacts, ContactPayload(ct))
		}
		p.Services = append(p.Services, sp)
	}
	return p
}

// parseCount converts numeric-looking cell input to a non-negative integer,
// coercing empty or malformed input to 0 rather than rejecting it.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
