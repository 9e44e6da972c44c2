// Package mongo is the production store adapter. Tenant-scoped kinds map
// onto per-tenant collections named through internal/tenant; the token
// family lives in global collections with a unique index on the token
// value, which also provides the regenerate-on-collision behavior for
// token issuance. FindOneAndDelete gives the atomic redeem-then-destroy
// primitive single-use tokens rely on.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// tokenKinds are the global token collections indexed at startup.
var tokenKinds = []string{
	"account_tokens",
	"oauth_code_tokens",
	"oauth_refresh_tokens",
	"oauth_access_tokens",
}

// New connects, pings and prepares indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	for _, kind := range tokenKinds {
		_, err := s.db.Collection(kind).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("index %s.token: %w", kind, err)
		}
	}
	_, err := s.db.Collection("application_ids").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("index application_ids.identifier: %w", err)
	}
	_, err = s.db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "unique_key", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("index users.unique_key: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case err == mongo.ErrNoDocuments:
		return core.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return core.ErrConflict
	default:
		return err
	}
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	if err := col.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

// ─── accounts / users ───

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.Collection("accounts").InsertOne(ctx, a)
	return mapErr(err)
}

func (s *Store) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	return findOne[core.Account](ctx, s.db.Collection("accounts"), bson.M{"_id": id})
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.Collection("users").InsertOne(ctx, u)
	return mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	return findOne[core.User](ctx, s.db.Collection("users"), bson.M{"_id": id})
}

func (s *Store) GetUserByUniqueKey(ctx context.Context, key string) (*core.User, error) {
	if key == "" {
		return nil, core.ErrNotFound
	}
	return findOne[core.User](ctx, s.db.Collection("users"), bson.M{"unique_key": key})
}

// ─── client registry ───

func (s *Store) CreateApplicationID(ctx context.Context, a *core.ApplicationID) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AccountID == "" {
		if acc := tenant.Current(ctx); acc != nil {
			a.AccountID = acc.ID
		}
	}
	_, err := s.db.Collection("application_ids").InsertOne(ctx, a)
	return mapErr(err)
}

func (s *Store) GetApplicationID(ctx context.Context, identifier string) (*core.ApplicationID, error) {
	return findOne[core.ApplicationID](ctx, s.db.Collection("application_ids"), bson.M{"identifier": identifier})
}

func (s *Store) CreateApplication(ctx context.Context, acc *core.Account, app *core.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	col := tenant.CollectionNameFromContext(ctx, acc, "applications")
	_, err := s.db.Collection(col).InsertOne(ctx, app)
	return mapErr(err)
}

func (s *Store) GetApplication(ctx context.Context, acc *core.Account, applicationIDID string) (*core.Application, error) {
	col := tenant.CollectionNameFromContext(ctx, acc, "applications")
	return findOne[core.Application](ctx, s.db.Collection(col), bson.M{"application_id": applicationIDID})
}

// ─── access grants ───

func (s *Store) UpsertAccessGrant(ctx context.Context, acc *core.Account, applicationIDID, scope string) (*core.AccessGrant, error) {
	col := tenant.CollectionNameFromContext(ctx, acc, "oauth_access_grants")
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{"scope": scope, "updated_at": now},
		"$setOnInsert": bson.M{
			"_id":            uuid.NewString(),
			"application_id": applicationIDID,
			"created_at":     now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var g core.AccessGrant
	err := s.db.Collection(col).
		FindOneAndUpdate(ctx, bson.M{"application_id": applicationIDID}, update, opts).
		Decode(&g)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// ─── tokens ───

func (s *Store) CreateToken(ctx context.Context, kind string, t *core.Token) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.Collection(kind).InsertOne(ctx, t)
	return mapErr(err)
}

func (s *Store) FindToken(ctx context.Context, kind, value string) (*core.Token, error) {
	if value == "" {
		return nil, core.ErrNotFound
	}
	return findOne[core.Token](ctx, s.db.Collection(kind), bson.M{"token": value})
}

func (s *Store) ConsumeToken(ctx context.Context, kind, value string) (*core.Token, error) {
	if value == "" {
		return nil, core.ErrNotFound
	}
	var t core.Token
	err := s.db.Collection(kind).FindOneAndDelete(ctx, bson.M{"token": value}).Decode(&t)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *Store) FindTokenByApplication(ctx context.Context, kind, accountID, applicationIDID string) (*core.Token, error) {
	filter := bson.M{"account_id": accountID, "application_id": applicationIDID}
	return findOne[core.Token](ctx, s.db.Collection(kind), filter)
}

// ─── schemas ───

func (s *Store) CreateSchema(ctx context.Context, sch *core.Schema) error {
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	col := tenant.CollectionNameFromContext(ctx, nil, "schemas")
	_, err := s.db.Collection(col).InsertOne(ctx, sch)
	return mapErr(err)
}

func (s *Store) FindSchema(ctx context.Context, namespace, uri string) (*core.Schema, error) {
	col := tenant.CollectionNameFromContext(ctx, nil, "schemas")
	return findOne[core.Schema](ctx, s.db.Collection(col), bson.M{"namespace": namespace, "uri": uri})
}

// ─── notifications ───

func (s *Store) CreateNotification(ctx context.Context, n *core.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	col := tenant.CollectionNameFromContext(ctx, nil, "notifications")
	_, err := s.db.Collection(col).InsertOne(ctx, n)
	return mapErr(err)
}
