package core

import "context"

// Repository is the persistence collaborator. Tenant-scoped kinds
// (applications, access grants, schemas, notifications) are stored in
// collections derived through internal/tenant: either from the account
// passed explicitly, or from the ambient account in ctx. Accounts, users,
// application registry entries and the token family are global — they must
// be resolvable before any tenant context exists.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	// Accounts and users (global).
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUniqueKey(ctx context.Context, key string) (*User, error)

	// Client registry. ApplicationIDs are global; the Application record
	// itself lives in the registering account's tenant collection.
	CreateApplicationID(ctx context.Context, a *ApplicationID) error
	GetApplicationID(ctx context.Context, identifier string) (*ApplicationID, error)
	CreateApplication(ctx context.Context, acc *Account, app *Application) error
	GetApplication(ctx context.Context, acc *Account, applicationIDID string) (*Application, error)

	// Access grants (tenant-scoped, one per application).
	UpsertAccessGrant(ctx context.Context, acc *Account, applicationIDID, scope string) (*AccessGrant, error)

	// Token family. kind is the collection name; token values are unique
	// within a kind (Create returns ErrConflict on collision).
	// ConsumeToken is an atomic find-and-destroy: of two concurrent calls
	// with the same value, exactly one gets the token, the other
	// ErrNotFound.
	CreateToken(ctx context.Context, kind string, t *Token) error
	FindToken(ctx context.Context, kind, value string) (*Token, error)
	ConsumeToken(ctx context.Context, kind, value string) (*Token, error)
	FindTokenByApplication(ctx context.Context, kind, accountID, applicationIDID string) (*Token, error)

	// Schemas (tenant-scoped, ambient account).
	CreateSchema(ctx context.Context, s *Schema) error
	FindSchema(ctx context.Context, namespace, uri string) (*Schema, error)

	// Notifications (tenant-scoped when an ambient account is present,
	// otherwise the global collection). Write-only from the core.
	CreateNotification(ctx context.Context, n *Notification) error
}
