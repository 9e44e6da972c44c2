package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tenkit/tenkit/internal/app"
	"github.com/tenkit/tenkit/internal/config"
	"github.com/tenkit/tenkit/internal/jwt"
	"github.com/tenkit/tenkit/internal/oauth"
	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/store/memory"
	"github.com/tenkit/tenkit/internal/tenant"
	"github.com/tenkit/tenkit/internal/token"
)

func testContainer(t *testing.T) (*app.Container, *memory.Store, *core.Account) {
	t.Helper()
	st := memory.New()
	ctx := context.Background()

	acc := &core.Account{ID: "acc1", Name: "Acme", OwnerID: "usr1", CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateAccount(ctx, acc))
	require.NoError(t, st.CreateUser(ctx, &core.User{
		ID: "usr1", AccountID: "acc1", UniqueKey: "ukey1",
		Email: "owner@acme.test", CreatedAt: time.Now().UTC(),
	}))

	cfg := &config.Config{}
	cfg.Server.BasePath = "/api/v2"
	cfg.Homepage = "https://tenkit.test"
	cfg.ServiceURL = "https://tenkit.test"

	signer, err := jwt.NewSigner("none", "")
	require.NoError(t, err)

	return &app.Container{
		Cfg:   cfg,
		Store: st,
		OAuth: &oauth.Service{
			Store:    st,
			Signer:   signer,
			Homepage: cfg.Homepage,
			Log:      zap.NewNop(),
		},
	}, st, acc
}

func seedSchema(t *testing.T, st *memory.Store, acc *core.Account) {
	t.Helper()
	ctx := tenant.With(context.Background(), acc)
	require.NoError(t, st.CreateSchema(ctx, &core.Schema{
		Namespace: "Acme",
		URI:       "https://schemas.acme.test/order.xsd",
		Schema: `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:include schemaLocation="common.xsd"/>
</xs:schema>`,
		SchemaType: core.SchemaTypeXML,
		CreatedAt:  time.Now().UTC(),
	}))
}

func TestSchemaWithAccountToken(t *testing.T) {
	c, st, acc := testContainer(t)
	seedSchema(t, st, acc)

	at, err := token.Issue(tenant.With(context.Background(), acc), st, token.Account, nil)
	require.NoError(t, err)

	q := url.Values{"ns": {"Acme"}, "uri": {"https://schemas.acme.test/order.xsd"}, "token": {at.Token}}
	req := httptest.NewRequest("GET", "/api/v2/schema?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	Schema(c)(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	body := rec.Body.String()
	assert.Contains(t, body, "/api/v2/schema?")
	assert.Contains(t, body, "key=ukey1")
	assert.NotContains(t, body, `schemaLocation="common.xsd"`)

	// The token was one-shot: replaying it is rejected and noted.
	rec = httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "/api/v2/schema?"+q.Encode(), nil))
	assert.Equal(t, 401, rec.Code)

	notes := st.Notifications(nil)
	require.Len(t, notes, 1)
	assert.Equal(t, core.NotificationError, notes[0].Type)
	assert.Contains(t, notes[0].Message, "Accessing service with an invalid token: "+at.Token)
}

func TestSchemaWithUserKey(t *testing.T) {
	c, st, acc := testContainer(t)
	seedSchema(t, st, acc)

	q := url.Values{"ns": {"Acme"}, "uri": {"https://schemas.acme.test/order.xsd"}, "key": {"ukey1"}}
	rec := httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "/api/v2/schema?"+q.Encode(), nil))
	assert.Equal(t, 200, rec.Code)

	// Keys are reusable, unlike account tokens.
	rec = httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "/api/v2/schema?"+q.Encode(), nil))
	assert.Equal(t, 200, rec.Code)
}

func TestSchemaMemberKeyRewritesWithOwnerKey(t *testing.T) {
	c, st, acc := testContainer(t)
	seedSchema(t, st, acc)

	require.NoError(t, st.CreateUser(context.Background(), &core.User{
		ID: "usr2", AccountID: "acc1", UniqueKey: "ukey2",
		Email: "member@acme.test", CreatedAt: time.Now().UTC(),
	}))

	q := url.Values{"ns": {"Acme"}, "uri": {"https://schemas.acme.test/order.xsd"}, "key": {"ukey2"}}
	rec := httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "/api/v2/schema?"+q.Encode(), nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "key=ukey1")
	assert.NotContains(t, body, "key=ukey2")
}

func TestSchemaDefaultsBaseToRequestHost(t *testing.T) {
	c, st, acc := testContainer(t)
	seedSchema(t, st, acc)
	c.Cfg.ServiceURL = ""

	q := url.Values{"ns": {"Acme"}, "uri": {"https://schemas.acme.test/order.xsd"}, "key": {"ukey1"}}
	rec := httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "http://proxy.acme.test/api/v2/schema?"+q.Encode(), nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://proxy.acme.test/api/v2/schema?")
}

func TestSchemaUnknownDocument(t *testing.T) {
	c, _, _ := testContainer(t)

	q := url.Values{"ns": {"Acme"}, "uri": {"https://nowhere.test/x.xsd"}, "key": {"ukey1"}}
	rec := httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "/api/v2/schema?"+q.Encode(), nil))
	assert.Equal(t, 404, rec.Code)
}

func TestSchemaMissingParams(t *testing.T) {
	c, _, _ := testContainer(t)

	rec := httptest.NewRecorder()
	Schema(c)(rec, httptest.NewRequest("GET", "/api/v2/schema?key=ukey1", nil))
	assert.Equal(t, 400, rec.Code)
}

func TestTokenEndpointWireFormat(t *testing.T) {
	c, st, acc := testContainer(t)

	require.NoError(t, st.CreateApplicationID(context.Background(), &core.ApplicationID{
		ID: "aid1", AccountID: "acc1", Identifier: "client-1",
	}))
	require.NoError(t, st.CreateApplication(tenant.With(context.Background(), acc), acc, &core.Application{
		ID: "app1", ApplicationIDID: "aid1", SecretToken: "s3cret",
		RedirectURIs: []string{"https://client.test/cb"},
	}))

	code, err := token.Issue(tenant.With(context.Background(), acc), st, token.Code, &core.Token{
		ApplicationID: "aid1", Scope: "auth get Acme",
	})
	require.NoError(t, err)

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"client-1"},
		"client_secret": {"s3cret"},
		"code":          {code.Token},
		"redirect_uri":  {"https://client.test/cb"},
	}
	req := httptest.NewRequest("POST", "/api/v2/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	Token(c)(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp["token_type"])
	assert.NotEmpty(t, resp["access_token"])
	assert.EqualValues(t, 3600, resp["token_span"])

	// Error shape carries the accumulated message.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v2/token", strings.NewReader("grant_type=password"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	Token(c)(rec, req)
	require.Equal(t, 400, rec.Code)
	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp["error"], "Invalid grant_type parameter.")
}

func TestReadyz(t *testing.T) {
	c, _, _ := testContainer(t)

	rec := httptest.NewRecorder()
	Readyz(c)(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, 200, rec.Code)
}
