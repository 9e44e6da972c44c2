package scope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_OpenIDSection(t *testing.T) {
	sc := Parse("openid email profile")
	assert.True(t, sc.OpenID())
	assert.True(t, sc.Email())
	assert.True(t, sc.Profile())
	assert.True(t, sc.Valid())
	assert.False(t, sc.Recovered())
	assert.Equal(t, []string{"openid", "email", "profile"}, sc.OpenIDTokens())
}

func TestParse_FlagsExtracted(t *testing.T) {
	sc := Parse("auth offline_access openid get ns1")
	assert.True(t, sc.Auth())
	assert.True(t, sc.OfflineAccess())
	assert.True(t, sc.OpenID())
	assert.Equal(t, []string{"get"}, sc.Methods())
	assert.Equal(t, []string{"ns1"}, sc.Namespaces())
}

func TestParse_OpenIDPortionInvalidWithoutOpenID(t *testing.T) {
	// email/profile without openid invalidate the whole OpenID portion,
	// but the rest of the scope survives.
	sc := Parse("email profile get ns1")
	assert.Empty(t, sc.OpenIDTokens())
	assert.False(t, sc.Email())
	assert.True(t, sc.Recovered())
	assert.Equal(t, []string{"get"}, sc.Methods())
	assert.Equal(t, []string{"ns1"}, sc.Namespaces())
	assert.True(t, sc.Valid()) // methods + namespace still grant something
}

func TestParse_DuplicateMethodDiscardsSet(t *testing.T) {
	sc := Parse("get get ns1")
	assert.Empty(t, sc.Methods(), "duplicate token invalidates the whole method set")
	assert.Equal(t, []string{"ns1"}, sc.Namespaces())
	assert.True(t, sc.Recovered())
	assert.False(t, sc.Valid())
}

func TestParse_QuotedNamespaceWithModel(t *testing.T) {
	sc := Parse("get post 'my ns'::Model")
	assert.Equal(t, []string{"get", "post"}, sc.Methods())
	assert.Empty(t, sc.Namespaces())
	assert.Equal(t, map[string][]string{"my ns": {"Model"}}, sc.DataTypes())
	assert.True(t, sc.Valid())
}

func TestParse_QuotedModel(t *testing.T) {
	sc := Parse(`put ns::"My Model"`)
	assert.Equal(t, map[string][]string{"ns": {"My Model"}}, sc.DataTypes())
}

func TestParse_MalformedNamespaceFailsSoft(t *testing.T) {
	cases := []string{
		"get post 'unterminated", // unterminated quote
		"get post ns::",          // dangling separator
		"get post 'a b'junk",     // junk glued to a quoted token
		"get post ns::'m'x",      // junk after a quoted model
		"get post ::Model",       // missing namespace
	}
	for _, in := range cases {
		sc := Parse(in)
		assert.Empty(t, sc.Namespaces(), "input %q", in)
		assert.Empty(t, sc.DataTypes(), "input %q", in)
		// committed sections survive
		assert.Equal(t, []string{"get", "post"}, sc.Methods(), "input %q", in)
		assert.True(t, sc.Recovered(), "input %q", in)
		assert.False(t, sc.Valid(), "input %q", in)
	}
}

func TestParse_Empty(t *testing.T) {
	sc := Parse("")
	assert.False(t, sc.Valid())
	assert.False(t, sc.Recovered())
}

func TestRoundTrip_MethodSets(t *testing.T) {
	sets := []string{
		"get",
		"get post",
		"get post put delete",
		"delete put",
		"post",
	}
	for _, in := range sets {
		first := Parse(in + " ns1")
		second := Parse(first.String())
		assert.Equal(t, first.Methods(), second.Methods(), "input %q", in)
		assert.Equal(t, first.Namespaces(), second.Namespaces(), "input %q", in)
	}
}

func TestRoundTrip_Full(t *testing.T) {
	in := "auth offline_access openid email get post 'my ns'::Model other ns2::A ns2::B"
	first := Parse(in)
	require.True(t, first.Valid())
	second := Parse(first.String())
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, first.OpenIDTokens(), second.OpenIDTokens())
	assert.Equal(t, first.Methods(), second.Methods())
	assert.Equal(t, first.Namespaces(), second.Namespaces())
	assert.Equal(t, first.DataTypes(), second.DataTypes())
	assert.Equal(t, first.Auth(), second.Auth())
	assert.Equal(t, first.OfflineAccess(), second.OfflineAccess())
}

func TestMerge_CommutativeAndIdempotent(t *testing.T) {
	a := Parse("openid get ns1")
	b := Parse("offline_access post ns2 ns1::M")

	ab := a.Merge(b)
	ba := b.Merge(a)
	assert.Equal(t, ab.String(), ba.String())

	aa := a.Merge(a)
	assert.Equal(t, a.String(), aa.String())

	// inputs unmodified
	assert.Equal(t, []string{"get"}, a.Methods())
	assert.Equal(t, []string{"post"}, b.Methods())

	assert.Equal(t, []string{"get", "post"}, ab.Methods())
	assert.Equal(t, []string{"ns1", "ns2"}, ab.Namespaces())
	assert.Equal(t, map[string][]string{"ns1": {"M"}}, ab.DataTypes())
	assert.True(t, ab.OfflineAccess())
	assert.True(t, ab.OpenID())
}

func TestString_QuotesWhitespaceNamespaces(t *testing.T) {
	sc := Parse("get 'my ns'")
	assert.Contains(t, sc.String(), "'my ns'")
}

func TestDescriptions(t *testing.T) {
	sc := Parse("openid email get post ns1 'my ns'::Model")
	ds := sc.Descriptions()
	joined := strings.Join(ds, "\n")
	assert.Contains(t, joined, "View your email")
	assert.Contains(t, joined, "get and post records from namespace 'ns1'")
	assert.Contains(t, joined, "get and post records of type 'my ns::Model'")
}
