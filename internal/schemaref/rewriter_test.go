package schemaref

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkit/tenkit/internal/store/core"
)

func request(schema *core.Schema) Request {
	return Request{
		Schema:     schema,
		UserKey:    "ukey1",
		ServiceURL: "https://tenkit.test",
		SchemaPath: "/api/v2/schema",
	}
}

func TestRewriteXMLSchemaReferences(t *testing.T) {
	body := `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:import namespace="urn:other" schemaLocation="../common/types.xsd"/>
  <xs:include schemaLocation="local.xsd"/>
  <xs:redefine schemaLocation="https://elsewhere.test/base.xsd"/>
  <xs:element name="order" type="xs:string"/>
</xs:schema>`

	out, err := Rewrite(request(&core.Schema{
		Namespace:  "Acme",
		URI:        "https://schemas.acme.test/orders/order.xsd",
		Schema:     body,
		SchemaType: core.SchemaTypeXML,
	}))
	require.NoError(t, err)

	locations := refLocations(t, out)
	require.Len(t, locations, 3)

	for i, want := range []string{
		"https://schemas.acme.test/common/types.xsd",
		"https://schemas.acme.test/orders/local.xsd",
		"https://elsewhere.test/base.xsd",
	} {
		u, err := url.Parse(locations[i])
		require.NoError(t, err)
		assert.Equal(t, "https", u.Scheme)
		assert.Equal(t, "tenkit.test", u.Host)
		assert.Equal(t, "/api/v2/schema", u.Path)
		q := u.Query()
		assert.Equal(t, "ukey1", q.Get("key"))
		assert.Equal(t, "Acme", q.Get("ns"))
		assert.Equal(t, want, q.Get("uri"))
	}

	// Element declarations are not references and stay untouched.
	assert.Contains(t, out, `name="order"`)
}

func TestRewriteXMLSchemaNestedReferencesUntouched(t *testing.T) {
	body := `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:annotation>
    <xs:import schemaLocation="nested.xsd"/>
  </xs:annotation>
</xs:schema>`

	out, err := Rewrite(request(&core.Schema{
		Namespace:  "Acme",
		URI:        "https://schemas.acme.test/a.xsd",
		Schema:     body,
		SchemaType: core.SchemaTypeXML,
	}))
	require.NoError(t, err)
	assert.Contains(t, out, `schemaLocation="nested.xsd"`)
}

func TestRewriteJSONSchemaPassthrough(t *testing.T) {
	body := `{"$ref": "https://schemas.acme.test/common.json"}`
	out, err := Rewrite(request(&core.Schema{
		Namespace:  "Acme",
		URI:        "https://schemas.acme.test/a.json",
		Schema:     body,
		SchemaType: core.SchemaTypeJSON,
	}))
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestRewriteUnsupportedSchemaType(t *testing.T) {
	_, err := Rewrite(request(&core.Schema{SchemaType: "avro_schema"}))
	assert.ErrorIs(t, err, ErrUnsupportedSchemaType)
}

func TestRewriteMalformedXML(t *testing.T) {
	_, err := Rewrite(request(&core.Schema{
		Schema:     "<xs:schema><unclosed",
		SchemaType: core.SchemaTypeXML,
	}))
	assert.Error(t, err)
}

// refLocations pulls every schemaLocation value out of the rewritten body
// in document order.
func refLocations(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	rest := body
	for {
		i := strings.Index(rest, `schemaLocation="`)
		if i < 0 {
			return out
		}
		rest = rest[i+len(`schemaLocation="`):]
		j := strings.Index(rest, `"`)
		require.GreaterOrEqual(t, j, 0)
		out = append(out, strings.ReplaceAll(rest[:j], "&amp;", "&"))
		rest = rest[j:]
	}
}
