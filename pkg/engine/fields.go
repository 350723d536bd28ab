package engine

import (
	"fmt"
	"strings"
)

// applyField mutates one field of a record addressed by a dotted path.
// "masterAccount" is accepted for compatibility but applied to the canonical
// EnterpriseName field; both fields end up carrying the written value.
func applyField(rec *AccountRecord, fieldPath, value string) error {
	if strings.HasPrefix(fieldPath, "address.") {
		return applyAddressField(rec, strings.TrimPrefix(fieldPath, "address."), value)
	}
	if strings.HasPrefix(fieldPath, "technical.") {
		return applyTechnicalField(rec, strings.TrimPrefix(fieldPath, "technical."), value)
	}
	switch fieldPath {
	case "accountName":
		rec.AccountName = value
	case "firstName":
		rec.FirstName = value
	case "lastName":
		rec.LastName = value
	case "email":
		rec.Email = value
	case "phone":
		rec.Phone = value
	case "status":
		rec.Status = value
	case "globalClientName":
		rec.GlobalClientName = value
	case "enterpriseName", "masterAccount":
		rec.EnterpriseName = value
		rec.MasterAccount = value
	case "productName":
		rec.ProductName = value
	case "serviceName":
		rec.ServiceName = value
	case "selectedServices":
		rec.SelectedServices = splitServices(value)
	default:
		return ErrUnknownField
	}
	return nil
}

func applyAddressField(rec *AccountRecord, field, value string) error {
	if rec.Address == nil {
		rec.Address = &Address{}
	}
	switch field {
	case "addressLine1":
		rec.Address.AddressLine1 = value
	case "addressLine2":
		rec.Address.AddressLine2 = value
	case "country":
		rec.Address.Country = value
	case "state":
		rec.Address.State = value
	case "city":
		rec.Address.City = value
	case "pincode":
		rec.Address.Pincode = value
	default:
		return ErrUnknownField
	}
	return nil
}

func applyTechnicalField(rec *AccountRecord, field, value string) error {
	if rec.Technical == nil {
		rec.Technical = &TechnicalProfile{}
	}
	switch field {
	case "firstName":
		rec.Technical.FirstName = value
	case "middleName":
		rec.Technical.MiddleName = value
	case "lastName":
		rec.Technical.LastName = value
	case "email":
		rec.Technical.Email = value
	case "status":
		rec.Technical.Status = value
	case "startDate":
		rec.Technical.StartDate = value
	case "endDate":
		rec.Technical.EndDate = value
	case "password":
		rec.Technical.Password = value
	case "technicalUser":
		rec.Technical.TechnicalUser = value
	default:
		return ErrUnknownField
	}
	return nil
}

func applyLicenseField(lic *LicenseEntry, field, value string) error {
	switch field {
	case "enterprise":
		lic.Enterprise = value
	case "product":
		lic.Product = value
	case "service":
		lic.Service = value
	case "category":
		lic.Category = value
	case "licenseStart":
		lic.LicenseStart = value
	case "licenseEnd":
		lic.LicenseEnd = value
	case "users":
		lic.Users = value
	case "renewalNotice":
		lic.RenewalNotice = parseBool(value)
	case "noticeDays":
		lic.NoticeDays = value
	default:
		return ErrUnknownField
	}
	return nil
}

func applyContactField(ct *ContactEntry, field, value string) error {
	switch field {
	case "contact":
		ct.Contact = value
	case "title":
		ct.Title = value
	case "email":
		ct.Email = value
	case "phone":
		ct.Phone = value
	default:
		return ErrUnknownField
	}
	return nil
}

// licensePath and contactPath build the dotted paths reported to the
// field-change notifier for sub-table edits.
func licensePath(index int, field string) string {
	return fmt.Sprintf("licenses.%d.%s", index, field)
}

func contactPath(licenseIndex, contactIndex int, field string) string {
	return fmt.Sprintf("licenses.%d.contacts.%d.%s", licenseIndex, contactIndex, field)
}

// columnValue returns the string-coerced value of a top-level column for
// sorting and grouping. Unknown columns coerce to the empty string.
func columnValue(rec AccountRecord, column string) string {
	switch column {
	case "accountName":
		return rec.AccountName
	case "firstName":
		return rec.FirstName
	case "lastName":
		return rec.LastName
	case "email":
		return rec.Email
	case "phone":
		return rec.Phone
	case "status":
		return rec.Status
	case "globalClientName":
		return rec.GlobalClientName
	case "enterpriseName", "masterAccount":
		return rec.EnterpriseName
	case "productName":
		return rec.ProductName
	case "serviceName":
		return rec.ServiceName
	case "selectedServices":
		return strings.Join(rec.SelectedServices, ",")
	}
	if rec.Address != nil {
		switch column {
		case "address.addressLine1":
			return rec.Address.AddressLine1
		case "address.addressLine2":
			return rec.Address.AddressLine2
		case "address.country":
			return rec.Address.Country
		case "address.state":
			return rec.Address.State
		case "address.city":
			return rec.Address.City
		case "address.pincode":
			return rec.Address.Pincode
		}
	}
	return ""
}

func splitServices(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
