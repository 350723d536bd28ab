package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenRecordHoistsAddressAndMapsLicenseFields(t *testing.T) {
	rec := AccountRecord{
		ID:             "42",
		AccountName:    "Acme CI",
		EnterpriseName: "Acme",
		Address: &Address{
			AddressLine1: "1 Main St",
			Country:      "Portugal",
			City:         "Lisbon",
			Pincode:      "1000-001",
		},
		Technical: &TechnicalProfile{
			FirstName:     "Dana",
			Email:         "dana@acme.io",
			TechnicalUser: "acme-svc",
		},
		SelectedServices: []string{"Support"},
		Licenses: []LicenseEntry{{
			Enterprise:    "Acme",
			Product:       "Pipelines",
			Service:       "Support",
			LicenseStart:  "2026-01-01",
			LicenseEnd:    "2026-12-31",
			Users:         "25",
			RenewalNotice: true,
			NoticeDays:    "30",
			Contacts:      []ContactEntry{{Contact: "Dana", Email: "dana@acme.io"}},
		}},
	}

	p := FlattenRecord(rec)

	// Nested address fields are hoisted to top-level keys.
	assert.Equal(t, "1 Main St", p.AddressLine1)
	assert.Equal(t, "Portugal", p.Country)
	assert.Equal(t, "Lisbon", p.City)
	assert.Equal(t, "1000-001", p.Pincode)

	// Technical profile collapses into the wire projection.
	assert.Equal(t, "acme-svc", p.TechnicalUserDetails.Username)
	assert.Equal(t, "dana@acme.io", p.TechnicalUserDetails.Email)
	assert.Equal(t, "Dana", p.TechnicalUserDetails.FirstName)
	assert.Equal(t, "acme-svc", p.TechnicalUsername)

	require.Len(t, p.Services, 1)
	svc := p.Services[0]
	assert.Equal(t, "2026-01-01", svc.LicenseDate)
	assert.Equal(t, "2026-12-31", svc.ExpirationDate)
	assert.Equal(t, 25, svc.Users)
	assert.True(t, svc.RenewalNotice)
	assert.Equal(t, 30, svc.RenewalNoticePeriod)
	require.Len(t, svc.Contacts, 1)
	assert.Equal(t, "Dana", svc.Contacts[0].Contact)
}

func TestFlattenRecordCoercesMalformedNumerics(t *testing.T) {
	rec := AccountRecord{
		ID: "42",
		Licenses: []LicenseEntry{
			{Users: "", NoticeDays: "soon"},
			{Users: "-3", NoticeDays: " 7 "},
		},
	}
	p := FlattenRecord(rec)
	require.Len(t, p.Services, 2)
	assert.Zero(t, p.Services[0].Users)
	assert.Zero(t, p.Services[0].RenewalNoticePeriod)
	assert.Zero(t, p.Services[1].Users)
	assert.Equal(t, 7, p.Services[1].RenewalNoticePeriod)
}

func TestFlattenRecordWithoutOptionalBlocks(t *testing.T) {
	p := FlattenRecord(AccountRecord{ID: "42", AccountName: "Bare"})
	assert.Empty(t, p.AddressLine1)
	assert.Empty(t, p.TechnicalUsername)
	assert.NotNil(t, p.Services)
	assert.Empty(t, p.Services)
}
