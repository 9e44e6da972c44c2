package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/store/memory"
	"github.com/tenkit/tenkit/internal/tenant"
)

func TestGenerate_Length(t *testing.T) {
	for _, n := range []int{20, 60} {
		v, err := Generate(n)
		require.NoError(t, err)
		assert.Len(t, v, n)
	}
	a, _ := Generate(20)
	b, _ := Generate(20)
	assert.NotEqual(t, a, b)
}

func TestGenerate_DrawsFromWholeAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 200; i++ {
		v, err := Generate(60)
		require.NoError(t, err)
		for _, r := range v {
			require.Contains(t, alphabet, string(r))
			seen[r] = true
		}
	}
	// 12000 uniform draws over 62 characters miss one only with
	// vanishing probability.
	assert.Len(t, seen, len(alphabet))
}

func TestIssue_Defaults(t *testing.T) {
	st := memory.New()
	acc := &core.Account{ID: "a1"}
	ctx := tenant.With(context.Background(), acc)

	tok, err := Issue(ctx, st, Code, nil)
	require.NoError(t, err)
	assert.Len(t, tok.Token, 60)
	assert.Equal(t, "a1", tok.AccountID, "account auto-assigned from ambient context")
	require.NotNil(t, tok.TokenSpan)
	assert.Equal(t, int64(3600), *tok.TokenSpan)
	assert.False(t, tok.CreatedAt.IsZero())
}

func TestIssue_RefreshNeverExpires(t *testing.T) {
	st := memory.New()
	tok, err := Issue(context.Background(), st, Refresh, &core.Token{AccountID: "a1"})
	require.NoError(t, err)
	assert.Nil(t, tok.TokenSpan)
	assert.True(t, tok.LongTerm())
	assert.False(t, tok.Expired(time.Now().Add(100*365*24*time.Hour)))
}

func TestRedeem_SingleUseConsumed(t *testing.T) {
	st := memory.New()
	tok, err := Issue(context.Background(), st, Code, &core.Token{AccountID: "a1"})
	require.NoError(t, err)

	got, err := Redeem(context.Background(), st, Code, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.Token, got.Token)

	_, err = Redeem(context.Background(), st, Code, tok.Token)
	assert.ErrorIs(t, err, core.ErrNotFound, "a single-use token redeems at most once")
}

func TestRedeem_LongTermSurvives(t *testing.T) {
	st := memory.New()
	tok, err := Issue(context.Background(), st, Refresh, &core.Token{AccountID: "a1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := Redeem(context.Background(), st, Refresh, tok.Token)
		require.NoError(t, err)
	}
}

func TestRedeem_Expired(t *testing.T) {
	st := memory.New()
	span := int64(1)
	tok := &core.Token{
		AccountID: "a1",
		TokenSpan: &span,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	_, err := Issue(context.Background(), st, Code, tok)
	require.NoError(t, err)

	_, err = Redeem(context.Background(), st, Code, tok.Token)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedeem_ConcurrentSingleUse(t *testing.T) {
	st := memory.New()
	tok, err := Issue(context.Background(), st, Code, &core.Token{AccountID: "a1"})
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, notFound := 0, 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Redeem(context.Background(), st, Code, tok.Token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, core.ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "exactly one caller may redeem a single-use token")
	assert.Equal(t, callers-1, notFound)
}

func TestIssue_RegeneratesOnConflict(t *testing.T) {
	st := &conflictOnce{Repository: memory.New()}
	tok, err := Issue(context.Background(), st, Access, &core.Token{AccountID: "a1"})
	require.NoError(t, err)
	assert.Len(t, tok.Token, 60)
	assert.Equal(t, 2, st.calls)
}

// conflictOnce reports a uniqueness conflict on the first create.
type conflictOnce struct {
	core.Repository
	calls int
}

func (c *conflictOnce) CreateToken(ctx context.Context, kind string, t *core.Token) error {
	c.calls++
	if c.calls == 1 {
		return core.ErrConflict
	}
	return c.Repository.CreateToken(ctx, kind, t)
}
