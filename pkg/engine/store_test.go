package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordIDs(rows []AccountRecord) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestReconcilePreservesLocalOrder(t *testing.T) {
	s := NewRowStore()
	s.Reconcile([]AccountRecord{{ID: "A"}, {ID: "B"}, {ID: "C"}})

	s.Reconcile([]AccountRecord{{ID: "C"}, {ID: "A"}, {ID: "D"}, {ID: "B"}})
	assert.Equal(t, []string{"A", "B", "C", "D"}, recordIDs(s.Rows()))
}

func TestReconcileDropsRemovedIDs(t *testing.T) {
	s := NewRowStore()
	s.Reconcile([]AccountRecord{{ID: "A"}, {ID: "B"}, {ID: "C"}})

	s.Reconcile([]AccountRecord{{ID: "A"}, {ID: "C"}})
	assert.Equal(t, []string{"A", "C"}, recordIDs(s.Rows()))
}

func TestReconcileKeepsInProgressEdits(t *testing.T) {
	s := NewRowStore()
	authoritative := []AccountRecord{{ID: "A", AccountName: "Old"}, {ID: "B"}}
	s.Reconcile(authoritative)

	require.NoError(t, s.UpdateField("A", "accountName", "Edited"))

	// Re-running with identical input must not reset the unsaved edit.
	s.Reconcile(authoritative)
	s.Reconcile(authoritative)

	rec, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, "Edited", rec.AccountName)
	assert.Equal(t, []string{"A", "B"}, recordIDs(s.Rows()))
}

func TestUpdateFieldScalarAndNestedPaths(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A"})

	var notified [][3]string
	s.SetFieldChangeNotifier(func(rowID, path, value string) {
		notified = append(notified, [3]string{rowID, path, value})
	})
	var persisted []AccountRecord
	s.SetPersistHook(func(rec AccountRecord) { persisted = append(persisted, rec) })

	require.NoError(t, s.UpdateField("A", "email", "ops@acme.io"))
	require.NoError(t, s.UpdateField("A", "address.city", "Lisbon"))
	require.NoError(t, s.UpdateField("A", "technical.technicalUser", "acme-svc"))
	require.NoError(t, s.UpdateField("A", "selectedServices", "Support, Billing"))

	rec, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, "ops@acme.io", rec.Email)
	require.NotNil(t, rec.Address)
	assert.Equal(t, "Lisbon", rec.Address.City)
	require.NotNil(t, rec.Technical)
	assert.Equal(t, "acme-svc", rec.Technical.TechnicalUser)
	assert.Equal(t, []string{"Support", "Billing"}, rec.SelectedServices)

	// Notifier fires synchronously per mutation, persistence hook alongside.
	require.Len(t, notified, 4)
	assert.Equal(t, [3]string{"A", "email", "ops@acme.io"}, notified[0])
	assert.Len(t, persisted, 4)
	assert.Equal(t, "Lisbon", persisted[3].Address.City)
}

func TestUpdateFieldMasterAccountIsDerived(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A"})

	require.NoError(t, s.UpdateField("A", "enterpriseName", "Acme"))
	rec, _ := s.Get("A")
	assert.Equal(t, "Acme", rec.EnterpriseName)
	assert.Equal(t, "Acme", rec.MasterAccount)

	// A write addressed to the legacy field lands on the canonical one.
	require.NoError(t, s.UpdateField("A", "masterAccount", "Globex"))
	rec, _ = s.Get("A")
	assert.Equal(t, "Globex", rec.EnterpriseName)
	assert.Equal(t, "Globex", rec.MasterAccount)
}

func TestUpdateFieldUnknownRowIsReportedNoOp(t *testing.T) {
	s := NewRowStore()
	persistCalled := false
	s.SetPersistHook(func(AccountRecord) { persistCalled = true })

	err := s.UpdateField("missing", "email", "x@y.z")
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.False(t, persistCalled)
}

func TestUpdateFieldUnknownPath(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A"})
	assert.ErrorIs(t, s.UpdateField("A", "nonsense", "x"), ErrUnknownField)
	assert.ErrorIs(t, s.UpdateField("A", "address.nonsense", "x"), ErrUnknownField)
}

func TestLicenseAndContactEditing(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A"})

	var persisted int
	s.SetPersistHook(func(AccountRecord) { persisted++ })

	// Appends alone schedule nothing; the first field edit does.
	require.NoError(t, s.AppendLicense("A"))
	require.NoError(t, s.AppendContact("A", 0))
	assert.Zero(t, persisted)

	require.NoError(t, s.UpdateLicense("A", 0, "product", "Pipelines"))
	require.NoError(t, s.UpdateLicense("A", 0, "renewalNotice", "true"))
	require.NoError(t, s.UpdateLicenseContact("A", 0, 0, "email", "it@acme.io"))
	assert.Equal(t, 3, persisted)

	rec, _ := s.Get("A")
	require.Len(t, rec.Licenses, 1)
	assert.Equal(t, "Pipelines", rec.Licenses[0].Product)
	assert.True(t, rec.Licenses[0].RenewalNotice)
	require.Len(t, rec.Licenses[0].Contacts, 1)
	assert.Equal(t, "it@acme.io", rec.Licenses[0].Contacts[0].Email)
}

func TestLicenseIndexOutOfRangeDegradesGracefully(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A", Licenses: []LicenseEntry{{}}})

	assert.ErrorIs(t, s.UpdateLicense("A", 3, "product", "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.UpdateLicense("A", -1, "product", "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.UpdateLicenseContact("A", 0, 0, "email", "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.AppendContact("A", 9), ErrIndexOutOfRange)
}

func TestContactOrderPreservedAcrossEdits(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A", Licenses: []LicenseEntry{{
		Contacts: []ContactEntry{{Contact: "first"}, {Contact: "second"}, {Contact: "third"}},
	}}})

	require.NoError(t, s.UpdateLicenseContact("A", 0, 1, "title", "Lead"))

	rec, _ := s.Get("A")
	assert.Equal(t, "first", rec.Licenses[0].Contacts[0].Contact)
	assert.Equal(t, "Lead", rec.Licenses[0].Contacts[1].Title)
	assert.Equal(t, "third", rec.Licenses[0].Contacts[2].Contact)
}

func TestAddBlankAndRemove(t *testing.T) {
	s := NewRowStore()
	id := s.AddBlank()
	assert.True(t, IsTemporaryID(id))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Remove(id))
	assert.Zero(t, s.Len())
	assert.ErrorIs(t, s.Remove(id), ErrRowNotFound)
}

func TestRenameTaxonomyFanOut(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{
		ID:             "A",
		EnterpriseName: "Acme",
		MasterAccount:  "Acme",
		Licenses:       []LicenseEntry{{Enterprise: "Acme", Product: "Pipelines"}},
	})
	s.Add(AccountRecord{ID: "B", EnterpriseName: "Globex"})

	changed := s.RenameTaxonomy(CatalogEnterprise, "Acme", "Acme Corp")
	assert.Equal(t, 1, changed)

	a, _ := s.Get("A")
	assert.Equal(t, "Acme Corp", a.EnterpriseName)
	assert.Equal(t, "Acme Corp", a.MasterAccount)
	assert.Equal(t, "Acme Corp", a.Licenses[0].Enterprise)

	// Unrelated records stay untouched.
	b, _ := s.Get("B")
	assert.Equal(t, "Globex", b.EnterpriseName)
}

func TestRenameTaxonomyCallbacksMayReadStore(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{
		ID:             "A",
		EnterpriseName: "Acme",
		MasterAccount:  "Acme",
	})

	// Callbacks that read the store back, like an owner maintaining linkage
	// tables from the notifier. Both must observe the already-renamed row
	// without blocking.
	var seen []string
	s.SetFieldChangeNotifier(func(rowID, fieldPath, value string) {
		rec, ok := s.Get(rowID)
		require.True(t, ok)
		assert.Equal(t, "Acme Corp", rec.EnterpriseName)
		seen = append(seen, fieldPath)
	})
	persisted := 0
	s.SetPersistHook(func(rec AccountRecord) {
		assert.True(t, s.UsesTaxonomy(CatalogEnterprise, "Acme Corp"))
		persisted++
	})

	done := make(chan int, 1)
	go func() {
		done <- s.RenameTaxonomy(CatalogEnterprise, "Acme", "Acme Corp")
	}()

	select {
	case changed := <-done:
		assert.Equal(t, 1, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("RenameTaxonomy blocked with a store-reading notifier")
	}
	assert.Equal(t, []string{"enterpriseName", "masterAccount"}, seen)
	assert.Equal(t, 1, persisted)
}

func TestRenameTaxonomyServiceCoversSelectedServices(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{
		ID:               "A",
		ServiceName:      "Support",
		SelectedServices: []string{"Support", "Billing"},
		Licenses:         []LicenseEntry{{Service: "Support"}},
	})

	s.RenameTaxonomy(CatalogService, "Support", "Customer Support")

	rec, _ := s.Get("A")
	assert.Equal(t, "Customer Support", rec.ServiceName)
	assert.Equal(t, []string{"Customer Support", "Billing"}, rec.SelectedServices)
	assert.Equal(t, "Customer Support", rec.Licenses[0].Service)
}

func TestUsesTaxonomy(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A", SelectedServices: []string{"Support"}})
	s.Add(AccountRecord{ID: "B", Licenses: []LicenseEntry{{Product: "Pipelines"}}})

	assert.True(t, s.UsesTaxonomy(CatalogService, "Support"))
	assert.True(t, s.UsesTaxonomy(CatalogService, "support")) // case-insensitive
	assert.True(t, s.UsesTaxonomy(CatalogProduct, "Pipelines"))
	assert.False(t, s.UsesTaxonomy(CatalogService, "Billing"))
	assert.False(t, s.UsesTaxonomy(CatalogEnterprise, "Acme"))
}

func TestRowsReturnsDeepCopies(t *testing.T) {
	s := NewRowStore()
	s.Add(AccountRecord{ID: "A", Licenses: []LicenseEntry{{Product: "Pipelines"}}})

	rows := s.Rows()
	rows[0].Licenses[0].Product = "mutated"

	rec, _ := s.Get("A")
	assert.Equal(t, "Pipelines", rec.Licenses[0].Product)
}
