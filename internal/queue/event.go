// Package queue defines message payloads exchanged over the message broker.
package queue

// AccountSavedEvent is published after an account row is persisted. It
// carries enough of the row for downstream consumers to log or trigger
// notifications without querying the primary database.
type AccountSavedEvent struct {
	AccountID      string `json:"account_id"`
	AccountName    string `json:"account_name"`
	EnterpriseName string `json:"enterprise_name"`
	ProductName    string `json:"product_name"`
	ServiceName    string `json:"service_name"`
	LicenseCount   int    `json:"license_count"`
	SavedBy        uint64 `json:"saved_by"`
	SavedAt        string `json:"saved_at"`
}

// TaxonomyRenamedEvent is published when a taxonomy option is renamed so
// that consumers can audit which catalog changed and how many account rows
// were rewritten to the new name.
type TaxonomyRenamedEvent struct {
	Catalog     string `json:"catalog"`
	OldName     string `json:"old_name"`
	NewName     string `json:"new_name"`
	RowsTouched int    `json:"rows_touched"`
	RenamedBy   uint64 `json:"renamed_by"`
	RenamedAt   string `json:"renamed_at"`
}
