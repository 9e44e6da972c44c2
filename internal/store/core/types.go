package core

import "time"

// Account is the tenant boundary. Every tenant-scoped record lives in a
// collection namespaced by the account's ID.
type Account struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	OwnerID   string    `bson:"owner_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// User belongs to an account. UniqueKey is the opaque credential used for
// the key-authenticated schema fetch; the remaining fields feed identity
// token claims.
type User struct {
	ID          string     `bson:"_id"`
	AccountID   string     `bson:"account_id"`
	UniqueKey   string     `bson:"unique_key"`
	Email       string     `bson:"email"`
	Name        string     `bson:"name,omitempty"`
	Picture     string     `bson:"picture,omitempty"`
	ConfirmedAt *time.Time `bson:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
}

// ApplicationID is the public registry entry for an OAuth client. It is
// stored globally so the token endpoint can resolve it before any tenant
// context exists; AccountID points at the tenant that registered it.
type ApplicationID struct {
	ID         string    `bson:"_id"`
	AccountID  string    `bson:"account_id"`
	Identifier string    `bson:"identifier"`
	CreatedAt  time.Time `bson:"created_at"`
}

// Application is the tenant-scoped client configuration, linked 1:1 to an
// ApplicationID. SecretToken is immutable after creation.
type Application struct {
	ID              string         `bson:"_id"`
	ApplicationIDID string         `bson:"application_id"`
	SecretToken     string         `bson:"secret_token"`
	RedirectURIs    []string       `bson:"redirect_uris"`
	Attributes      map[string]any `bson:"attributes,omitempty"`
	CreatedAt       time.Time      `bson:"created_at"`
}

// AccessGrant records the currently authorized scope for an
// (account, application) pair. At most one per pair; updated on every
// grant exchange.
type AccessGrant struct {
	ID            string    `bson:"_id"`
	ApplicationID string    `bson:"application_id"`
	Scope         string    `bson:"scope"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// Token is the shared shape of the whole token family (account, code,
// refresh, access). TokenSpan is in seconds; nil means the token never
// expires. Which collection a token lives in is decided by its kind
// (internal/token).
type Token struct {
	ID            string         `bson:"_id"`
	Token         string         `bson:"token"`
	AccountID     string         `bson:"account_id"`
	ApplicationID string         `bson:"application_id,omitempty"`
	Scope         string         `bson:"scope,omitempty"`
	TokenSpan     *int64         `bson:"token_span"`
	Data          map[string]any `bson:"data,omitempty"`
	CreatedAt     time.Time      `bson:"created_at"`
}

// LongTerm reports whether the token never expires.
func (t *Token) LongTerm() bool { return t.TokenSpan == nil }

// Expired reports whether the token's span has elapsed at now. Expiry is
// advisory: nothing evicts expired tokens, the redeeming caller enforces
// this.
func (t *Token) Expired(now time.Time) bool {
	if t.TokenSpan == nil {
		return false
	}
	return now.After(t.CreatedAt.Add(time.Duration(*t.TokenSpan) * time.Second))
}

// NotificationType classifies diagnostic records.
type NotificationType string

const (
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationNotice  NotificationType = "notice"
	NotificationInfo    NotificationType = "info"
)

// Notification is an append-only diagnostic record; the core only ever
// writes them.
type Notification struct {
	ID        string           `bson:"_id"`
	Type      NotificationType `bson:"type"`
	Message   string           `bson:"message"`
	CreatedAt time.Time        `bson:"created_at"`
}

// SchemaType selects the reference-rewrite strategy for a schema document.
type SchemaType string

const (
	SchemaTypeXML  SchemaType = "xml_schema"
	SchemaTypeJSON SchemaType = "json_schema"
)

// Schema is a tenant-scoped schema document.
type Schema struct {
	ID         string     `bson:"_id"`
	Namespace  string     `bson:"namespace"`
	URI        string     `bson:"uri"`
	Schema     string     `bson:"schema"`
	SchemaType SchemaType `bson:"schema_type"`
	CreatedAt  time.Time  `bson:"created_at"`
}
