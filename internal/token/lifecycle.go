// Package token defines the token family and its lifecycle: issuance with
// collision-safe opaque value generation, redemption, and single-use
// consumption. Expiry is advisory; it is enforced here at redemption time,
// never by background eviction.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
)

// Kind describes one member of the token family: where it is stored, how
// long its opaque value is, and its default span in seconds (nil = never
// expires, which also makes the kind long-term: redeemed without being
// destroyed).
type Kind struct {
	Collection string
	Length     int
	Span       *int64
}

// LongTerm reports whether tokens of this kind survive redemption.
func (k Kind) LongTerm() bool { return k.Span == nil }

// Seconds builds a span pointer from a duration.
func Seconds(d time.Duration) *int64 {
	v := int64(d / time.Second)
	return &v
}

var (
	// Account tokens bootstrap tenant context for unauthenticated schema
	// fetches; single-use, short value.
	Account = Kind{Collection: "account_tokens", Length: 20, Span: Seconds(time.Hour)}
	// Code tokens are the authorization-code grant artifact.
	Code = Kind{Collection: "oauth_code_tokens", Length: 60, Span: Seconds(time.Hour)}
	// Refresh tokens never expire and survive redemption.
	Refresh = Kind{Collection: "oauth_refresh_tokens", Length: 60, Span: nil}
	// Access tokens are the bearer credential.
	Access = Kind{Collection: "oauth_access_tokens", Length: 60, Span: Seconds(time.Hour)}
)

// maxGenerateAttempts bounds regeneration after value collisions. The
// value space makes even one collision vanishingly unlikely; the bound
// exists so a broken store cannot loop forever.
const maxGenerateAttempts = 5

// Issue persists a new token of the given kind, filling in whatever the
// template leaves blank: the opaque value (regenerated on a store
// uniqueness conflict), the span from the kind's default, and the owning
// account from the ambient tenant context.
func Issue(ctx context.Context, r core.Repository, kind Kind, t *core.Token) (*core.Token, error) {
	if t == nil {
		t = &core.Token{}
	}
	if t.AccountID == "" {
		if acc := tenant.Current(ctx); acc != nil {
			t.AccountID = acc.ID
		}
	}
	if t.TokenSpan == nil && kind.Span != nil {
		v := *kind.Span
		t.TokenSpan = &v
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	generated := t.Token == ""
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		if t.Token == "" {
			v, err := Generate(kind.Length)
			if err != nil {
				return nil, err
			}
			t.Token = v
		}
		err := r.CreateToken(ctx, kind.Collection, t)
		if err == nil {
			return t, nil
		}
		if generated && errors.Is(err, core.ErrConflict) {
			t.Token = ""
			t.ID = ""
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("issue %s: exhausted %d generation attempts", kind.Collection, maxGenerateAttempts)
}

// Redeem looks up a token by its exact value and enforces consumption and
// expiry: single-use kinds are atomically destroyed on lookup, long-term
// kinds are left in place. Expired tokens surface as core.ErrNotFound.
func Redeem(ctx context.Context, r core.Repository, kind Kind, value string) (*core.Token, error) {
	if value == "" {
		return nil, core.ErrNotFound
	}
	var (
		t   *core.Token
		err error
	)
	if kind.LongTerm() {
		t, err = r.FindToken(ctx, kind.Collection, value)
	} else {
		t, err = r.ConsumeToken(ctx, kind.Collection, value)
	}
	if err != nil {
		return nil, err
	}
	if t.Expired(time.Now().UTC()) {
		return nil, core.ErrNotFound
	}
	return t, nil
}
