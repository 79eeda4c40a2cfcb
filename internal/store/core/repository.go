package core

import "context"

// CustomerStore is the persistence contract for customers.
//
// All operations are single-row; there is no cross-customer transaction.
// Concurrent read-modify-write sequences (lookup by email, then upsert) are
// NOT coordinated: two simultaneous callbacks for the same new email may
// both insert, producing a unique-constraint failure or last-write-wins.
// That is accepted behavior at expected load.
type CustomerStore interface {
	// Get returns the customer or ErrNotFound.
	Get(ctx context.Context, id string) (*Customer, error)

	// GetByEmail returns the customer with that email or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Customer, error)

	// GetByCompanyID returns the customer whose QuickBooks group carries the
	// given company (realm) id, or ErrNotFound.
	GetByCompanyID(ctx context.Context, companyID string) (*Customer, error)

	// GetAll returns all customers, most recently created first.
	GetAll(ctx context.Context) ([]*Customer, error)

	// Upsert inserts or replaces the whole row keyed by ID. On insert,
	// absent provider groups stay null.
	Upsert(ctx context.Context, c *Customer) error

	// UpdateTokens replaces exactly one provider's token group (nil clears
	// it) and bumps updated_at. Returns ErrNotFound when the id does not
	// exist (zero rows affected).
	UpdateTokens(ctx context.Context, id string, p Provider, ts *TokenSet) error

	// UpdateProfile updates name/picture (empty values are skipped) and
	// bumps updated_at. Returns ErrNotFound when the id does not exist.
	UpdateProfile(ctx context.Context, id, name, picture string) error

	// Delete removes the row. Returns ErrNotFound when the id does not exist.
	Delete(ctx context.Context, id string) error

	// ListSheets returns the customer's spreadsheet links, newest first.
	ListSheets(ctx context.Context, customerID string) ([]SheetLink, error)

	// SaveSheet inserts or replaces a spreadsheet link keyed by
	// (customer_id, sheet_id, purpose).
	SaveSheet(ctx context.Context, link SheetLink) error

	// Ping verifies connectivity (readiness probe).
	Ping(ctx context.Context) error
}
