package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
)

func TestSchemasAreTenantScoped(t *testing.T) {
	st := New()
	a := &core.Account{ID: "a1", Name: "A"}
	b := &core.Account{ID: "b1", Name: "B"}
	require.NoError(t, st.CreateAccount(context.Background(), a))
	require.NoError(t, st.CreateAccount(context.Background(), b))

	ctxA := tenant.With(context.Background(), a)
	ctxB := tenant.With(context.Background(), b)

	require.NoError(t, st.CreateSchema(ctxA, &core.Schema{
		Namespace: "NS", URI: "https://x.test/a.xsd", Schema: "<a/>",
		SchemaType: core.SchemaTypeXML,
	}))

	got, err := st.FindSchema(ctxA, "NS", "https://x.test/a.xsd")
	require.NoError(t, err)
	assert.Equal(t, "<a/>", got.Schema)

	// The other tenant never sees it, nor does the global scope.
	_, err = st.FindSchema(ctxB, "NS", "https://x.test/a.xsd")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = st.FindSchema(context.Background(), "NS", "https://x.test/a.xsd")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConsumeTokenIsDestructive(t *testing.T) {
	st := New()
	require.NoError(t, st.CreateToken(context.Background(), "account_tokens", &core.Token{
		ID: "t1", Token: "opaque", AccountID: "a1",
	}))

	got, err := st.ConsumeToken(context.Background(), "account_tokens", "opaque")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccountID)

	_, err = st.ConsumeToken(context.Background(), "account_tokens", "opaque")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Zero(t, st.TokenCount("account_tokens"))
}

func TestCreateTokenRejectsDuplicateValues(t *testing.T) {
	st := New()
	require.NoError(t, st.CreateToken(context.Background(), "oauth_code_tokens", &core.Token{ID: "t1", Token: "same"}))
	err := st.CreateToken(context.Background(), "oauth_code_tokens", &core.Token{ID: "t2", Token: "same"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestUpsertAccessGrantUpdatesScope(t *testing.T) {
	st := New()
	acc := &core.Account{ID: "a1"}
	require.NoError(t, st.CreateAccount(context.Background(), acc))
	ctx := tenant.With(context.Background(), acc)

	first, err := st.UpsertAccessGrant(ctx, acc, "aid1", "auth get NS")
	require.NoError(t, err)

	second, err := st.UpsertAccessGrant(ctx, acc, "aid1", "auth get post NS")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "auth get post NS", second.Scope)
}
