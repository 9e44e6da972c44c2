package handlers

import (
	"net/http"

	"github.com/tenkit/tenkit/internal/app"
	httpx "github.com/tenkit/tenkit/internal/http"
	"github.com/tenkit/tenkit/internal/oauth"
	"github.com/tenkit/tenkit/internal/token"
)

// Token is the grant-exchange endpoint: authorization_code and
// refresh_token against client credentials, form-encoded.
func Token(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
			return
		}

		status, body := c.OAuth.Exchange(r.Context(), oauth.ExchangeRequest{
			GrantType:    r.PostFormValue("grant_type"),
			ClientID:     r.PostFormValue("client_id"),
			ClientSecret: r.PostFormValue("client_secret"),
			Code:         r.PostFormValue("code"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			RefreshToken: r.PostFormValue("refresh_token"),
		})

		if status == http.StatusOK {
			httpx.RecordTokenIssued(token.Access.Collection)
			if resp, ok := body.(*oauth.AccessResponse); ok && resp.RefreshToken != "" {
				httpx.RecordTokenIssued(token.Refresh.Collection)
			}
		}

		httpx.WriteJSON(w, status, body)
	}
}
