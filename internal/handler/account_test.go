package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoleva/enterprise-accounts/pkg/engine"
)

func TestPayloadToAccountMapsWireFields(t *testing.T) {
	p := &engine.AccountPayload{
		ID:               "42",
		AccountName:      "Globex",
		Email:            "ops@globex.example",
		Status:           "Active",
		EnterpriseName:   "Globex Holdings",
		ServiceName:      "Support",
		AddressLine1:     "1 Main St",
		Country:          "Germany",
		City:             "Berlin",
		SelectedServices: []string{"Support", "Monitoring"},
		TechnicalUserDetails: engine.TechnicalUserDetails{
			Username:  "globex-tech",
			Email:     "tech@globex.example",
			FirstName: "Ada",
		},
		Services: []engine.ServicePayload{
			{
				Enterprise:          "Globex Holdings",
				Service:             "Support",
				LicenseDate:         "2026-01-01",
				ExpirationDate:      "2027-01-01",
				Users:               25,
				RenewalNotice:       true,
				RenewalNoticePeriod: 30,
				Contacts: []engine.ContactPayload{
					{Contact: "Jo Doe", Email: "jo@globex.example"},
				},
			},
		},
	}

	acc := payloadToAccount(p)

	assert.Equal(t, "Globex", acc.AccountName)
	assert.Equal(t, "Globex Holdings", acc.EnterpriseName)
	assert.Equal(t, "Germany", acc.Country)
	assert.Equal(t, []string{"Support", "Monitoring"}, acc.SelectedServices)
	assert.Equal(t, "globex-tech", acc.TechUsername)
	assert.Equal(t, "tech@globex.example", acc.TechEmail)
	require.Len(t, acc.Licenses, 1)
	lic := acc.Licenses[0]
	assert.Equal(t, "2026-01-01", lic.LicenseDate)
	assert.Equal(t, "2027-01-01", lic.ExpirationDate)
	assert.Equal(t, 25, lic.Users)
	assert.True(t, lic.RenewalNotice)
	assert.Equal(t, 30, lic.RenewalNoticePeriod)
	require.Len(t, lic.Contacts, 1)
	assert.Equal(t, "Jo Doe", lic.Contacts[0].Contact)
}

func TestPayloadToAccountFallsBackToTechnicalUsername(t *testing.T) {
	p := &engine.AccountPayload{ID: "7", TechnicalUsername: "legacy-tech"}
	acc := payloadToAccount(p)
	assert.Equal(t, "legacy-tech", acc.TechUsername)
}

func TestAccountToRecordRebuildsNestedBlocks(t *testing.T) {
	p := &engine.AccountPayload{
		ID:             "42",
		AccountName:    "Globex",
		EnterpriseName: "Globex Holdings",
		AddressLine1:   "1 Main St",
		Country:        "Germany",
		TechnicalUserDetails: engine.TechnicalUserDetails{
			Username: "globex-tech",
		},
		Services: []engine.ServicePayload{
			{Service: "Support", Users: 25, RenewalNoticePeriod: 30},
			{Service: "Monitoring"},
		},
	}
	acc := payloadToAccount(p)
	acc.ID = 42

	rec := accountToRecord(acc)

	assert.Equal(t, "42", rec.ID)
	// masterAccount mirrors enterpriseName on the wire.
	assert.Equal(t, "Globex Holdings", rec.MasterAccount)
	require.NotNil(t, rec.Address)
	assert.Equal(t, "1 Main St", rec.Address.AddressLine1)
	require.NotNil(t, rec.Technical)
	assert.Equal(t, "globex-tech", rec.Technical.TechnicalUser)
	// License order is positional and must survive the round trip; counts
	// come back as the raw cell strings the table edits.
	require.Len(t, rec.Licenses, 2)
	assert.Equal(t, "Support", rec.Licenses[0].Service)
	assert.Equal(t, "25", rec.Licenses[0].Users)
	assert.Equal(t, "30", rec.Licenses[0].NoticeDays)
	assert.Equal(t, "Monitoring", rec.Licenses[1].Service)
}

func TestAccountToRecordOmitsEmptyBlocks(t *testing.T) {
	acc := payloadToAccount(&engine.AccountPayload{ID: "9", AccountName: "Bare"})
	rec := accountToRecord(acc)
	assert.Nil(t, rec.Address)
	assert.Nil(t, rec.Technical)
	assert.Empty(t, rec.Licenses)
}
