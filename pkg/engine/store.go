package engine

import (
	"strings"
	"sync"
)

// FieldChangeFunc is invoked synchronously after every applied field
// mutation so an owning component can do its own bookkeeping (linkage
// tables, dirty markers). It runs regardless of whether persistence ends up
// being skipped for the row.
type FieldChangeFunc func(rowID, fieldPath, value string)

// PersistFunc receives a snapshot of a mutated record. The store calls it
// after every applied mutation; debouncing and skip policies live behind it
// (see Scheduler.Schedule).
type PersistFunc func(rec AccountRecord)

// RowStore holds the table's working copy of all account records. It is
// seeded from the authoritative list owned by the data-fetching collaborator
// and thereafter applies local edits optimistically: the stored value changes
// immediately and persistence happens asynchronously through the persist
// hook.
type RowStore struct {
	mu       sync.Mutex
	rows     []AccountRecord
	onChange FieldChangeFunc
	persist  PersistFunc
}

// NewRowStore returns an empty store with no notifier or persist hook.
func NewRowStore() *RowStore {
	return &RowStore{}
}

// SetFieldChangeNotifier registers the synchronous field-change callback.
func (s *RowStore) SetFieldChangeNotifier(fn FieldChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetPersistHook registers the callback that receives mutated records,
// typically Scheduler.Schedule.
func (s *RowStore) SetPersistHook(fn PersistFunc) {
	s.mu.Lock()
	s.persist = fn
	s.mu.Unlock()
}

// Rows returns a deep-copied snapshot of all rows in their current local
// order.
func (s *RowStore) Rows() []AccountRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AccountRecord, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of rows currently held.
func (s *RowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Get returns a deep copy of the row with the given id.
func (s *RowStore) Get(id string) (AccountRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.rows[i].Clone(), true
	}
	return AccountRecord{}, false
}

// Add appends a record to the end of the local order. An existing row with
// the same id is replaced in place.
func (s *RowStore) Add(rec AccountRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(rec.ID); i >= 0 {
		s.rows[i] = rec.Clone()
		return
	}
	s.rows = append(s.rows, rec.Clone())
}

// AddBlank appends a new empty row carrying a temporary id (the table's
// quick-add action) and returns that id. No persistence is scheduled; the
// record stays client-owned until the external creation flow replaces the
// id.
func (s *RowStore) AddBlank() string {
	id := NewTemporaryID()
	s.mu.Lock()
	s.rows = append(s.rows, AccountRecord{ID: id})
	s.mu.Unlock()
	return id
}

// Remove drops the row from local state immediately, independent of whether
// a backend delete has been confirmed.
func (s *RowStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrRowNotFound
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

// Reconcile merges an externally supplied authoritative list into local
// state: ids present in both sets keep their local order and their local
// (possibly edited) values, newly appeared ids are appended in authoritative
// order, and ids no longer present are dropped. The operation is idempotent;
// re-running it with identical input does not perturb local edits.
func (s *RowStore) Reconcile(authoritative []AccountRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := make(map[string]AccountRecord, len(authoritative))
	for _, rec := range authoritative {
		incoming[rec.ID] = rec
	}

	merged := make([]AccountRecord, 0, len(authoritative))
	seen := make(map[string]bool, len(authoritative))
	for _, local := range s.rows {
		if _, ok := incoming[local.ID]; ok {
			merged = append(merged, local)
			seen[local.ID] = true
		}
	}
	for _, rec := range authoritative {
		if !seen[rec.ID] {
			merged = append(merged, rec.Clone())
			seen[rec.ID] = true
		}
	}
	s.rows = merged
}

// UpdateField applies one field-level mutation to exactly one record. The
// path is either a scalar field name, an "address."- or "technical."-prefixed
// nested field, or "selectedServices" (comma-separated value). An unknown
// row id or field path is a no-op reported through the returned sentinel.
func (s *RowStore) UpdateField(rowID, fieldPath, value string) error {
	s.mu.Lock()
	i := s.indexOf(rowID)
	if i < 0 {
		s.mu.Unlock()
		return ErrRowNotFound
	}
	if err := applyField(&s.rows[i], fieldPath, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.notifyAndPersistLocked(i, rowID, fieldPath, value)
	return nil
}

// UpdateLicense mutates one field of one license row. An out-of-range index
// degrades to a reported no-op so a concurrent license deletion cannot break
// an in-flight edit.
func (s *RowStore) UpdateLicense(rowID string, index int, field, value string) error {
	s.mu.Lock()
	i := s.indexOf(rowID)
	if i < 0 {
		s.mu.Unlock()
		return ErrRowNotFound
	}
	rec := &s.rows[i]
	if index < 0 || index >= len(rec.Licenses) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if err := applyLicenseField(&rec.Licenses[index], field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.notifyAndPersistLocked(i, rowID, licensePath(index, field), value)
	return nil
}

// UpdateLicenseContact mutates one field of one contact row of a license,
// with the same graceful degradation as UpdateLicense.
func (s *RowStore) UpdateLicenseContact(rowID string, licenseIndex, contactIndex int, field, value string) error {
	s.mu.Lock()
	i := s.indexOf(rowID)
	if i < 0 {
		s.mu.Unlock()
		return ErrRowNotFound
	}
	rec := &s.rows[i]
	if licenseIndex < 0 || licenseIndex >= len(rec.Licenses) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	contacts := rec.Licenses[licenseIndex].Contacts
	if contactIndex < 0 || contactIndex >= len(contacts) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if err := applyContactField(&contacts[contactIndex], field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.notifyAndPersistLocked(i, rowID, contactPath(licenseIndex, contactIndex, field), value)
	return nil
}

// AppendLicense appends a blank license row to the record. The append alone
// schedules no persistence; the first field edit of the new entry does.
func (s *RowStore) AppendLicense(rowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(rowID)
	if i < 0 {
		return ErrRowNotFound
	}
	s.rows[i].Licenses = append(s.rows[i].Licenses, LicenseEntry{})
	return nil
}

// AppendContact appends a blank contact row to one license of the record.
func (s *RowStore) AppendContact(rowID string, licenseIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(rowID)
	if i < 0 {
		return ErrRowNotFound
	}
	rec := &s.rows[i]
	if licenseIndex < 0 || licenseIndex >= len(rec.Licenses) {
		return ErrIndexOutOfRange
	}
	lic := &rec.Licenses[licenseIndex]
	lic.Contacts = append(lic.Contacts, ContactEntry{})
	return nil
}

// RenameTaxonomy rewrites every field of every row that stores oldName by
// value for the given catalog kind, fires the field-change notifier for each
// rewritten field and schedules one persist per changed row. It returns the
// number of rows touched. Unrelated records are left untouched.
//
// All rewrites happen under the lock; the callbacks fire after it is
// released, so they may call back into the store like every other mutation
// path.
func (s *RowStore) RenameTaxonomy(kind CatalogKind, oldName, newName string) int {
	type rowChange struct {
		id       string
		fields   []fieldChange
		snapshot AccountRecord
	}

	s.mu.Lock()
	var pending []rowChange
	for i := range s.rows {
		rec := &s.rows[i]
		var touched []fieldChange

		switch kind {
		case CatalogEnterprise:
			if equalFold(rec.EnterpriseName, oldName) {
				rec.EnterpriseName = newName
				rec.MasterAccount = newName
				touched = append(touched,
					fieldChange{"enterpriseName", newName},
					fieldChange{"masterAccount", newName})
			}
			for li := range rec.Licenses {
				if equalFold(rec.Licenses[li].Enterprise, oldName) {
					rec.Licenses[li].Enterprise = newName
					touched = append(touched, fieldChange{licensePath(li, "enterprise"), newName})
				}
			}
		case CatalogProduct:
			if equalFold(rec.ProductName, oldName) {
				rec.ProductName = newName
				touched = append(touched, fieldChange{"productName", newName})
			}
			for li := range rec.Licenses {
				if equalFold(rec.Licenses[li].Product, oldName) {
					rec.Licenses[li].Product = newName
					touched = append(touched, fieldChange{licensePath(li, "product"), newName})
				}
			}
		case CatalogService:
			if equalFold(rec.ServiceName, oldName) {
				rec.ServiceName = newName
				touched = append(touched, fieldChange{"serviceName", newName})
			}
			for si, svc := range rec.SelectedServices {
				if equalFold(svc, oldName) {
					rec.SelectedServices[si] = newName
					touched = append(touched, fieldChange{"selectedServices", strings.Join(rec.SelectedServices, ",")})
				}
			}
			for li := range rec.Licenses {
				if equalFold(rec.Licenses[li].Service, oldName) {
					rec.Licenses[li].Service = newName
					touched = append(touched, fieldChange{licensePath(li, "service"), newName})
				}
			}
		case CatalogTemplate:
			// Templates are not stored by name on account rows.
		}

		if len(touched) == 0 {
			continue
		}
		pending = append(pending, rowChange{id: rec.ID, fields: touched, snapshot: rec.Clone()})
	}
	onChange := s.onChange
	persist := s.persist
	s.mu.Unlock()

	for _, rc := range pending {
		for _, fc := range rc.fields {
			if onChange != nil {
				onChange(rc.id, fc.path, fc.value)
			}
		}
		if persist != nil {
			persist(rc.snapshot)
		}
	}
	return len(pending)
}

// UsesTaxonomy reports whether any currently loaded record references the
// named option of the given kind. Comparison is case-insensitive.
func (s *RowStore) UsesTaxonomy(kind CatalogKind, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		rec := &s.rows[i]
		switch kind {
		case CatalogEnterprise:
			if equalFold(rec.EnterpriseName, name) || equalFold(rec.MasterAccount, name) {
				return true
			}
			for _, lic := range rec.Licenses {
				if equalFold(lic.Enterprise, name) {
					return true
				}
			}
		case CatalogProduct:
			if equalFold(rec.ProductName, name) {
				return true
			}
			for _, lic := range rec.Licenses {
				if equalFold(lic.Product, name) {
					return true
				}
			}
		case CatalogService:
			if equalFold(rec.ServiceName, name) {
				return true
			}
			for _, svc := range rec.SelectedServices {
				if equalFold(svc, name) {
					return true
				}
			}
			for _, lic := range rec.Licenses {
				if equalFold(lic.Service, name) {
					return true
				}
			}
		}
	}
	return false
}

type fieldChange struct {
	path  string
	value string
}

// notifyAndPersistLocked fires the change notifier and persist hook for row
// index i. The caller holds the mutex; it is released here so the callbacks
// run unlocked and may call back into the store.
func (s *RowStore) notifyAndPersistLocked(i int, rowID, fieldPath, value string) {
	onChange := s.onChange
	persist := s.persist
	snapshot := s.rows[i].Clone()
	s.mu.Unlock()

	if onChange != nil {
		onChange(rowID, fieldPath, value)
	}
	if persist != nil {
		persist(snapshot)
	}
}

func (s *RowStore) indexOf(id string) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}
