package oauth

import (
	"context"
	"errors"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tenkit/tenkit/internal/scope"
	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
	"github.com/tenkit/tenkit/internal/token"
)

// AccessResponse is the token-endpoint success body.
type AccessResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	CreatedAt    int64  `json:"created_at"`
	TokenSpan    *int64 `json:"token_span"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// IssueAccessToken mints a fresh access token for (user's account,
// application, scope): the access grant for the pair is upserted with the
// scope, a refresh token is added when the scope asks for offline access
// and none exists yet, and an identity token is attached when the scope
// declares openid.
func (s *Service) IssueAccessToken(ctx context.Context, user *core.User, appID *core.ApplicationID, sc *scope.Scope) (*AccessResponse, error) {
	acc, err := s.Store.GetAccount(ctx, user.AccountID)
	if err != nil {
		return nil, errors.New("user account lookup failed")
	}
	ctx = tenant.With(ctx, acc)

	if _, err := s.Store.UpsertAccessGrant(ctx, acc, appID.ID, sc.String()); err != nil {
		s.Log.Error("access grant upsert failed", zap.String("application_id", appID.ID), zap.Error(err))
		return nil, errors.New("access grant update failed")
	}

	at, err := token.Issue(ctx, s.Store, token.Access, &core.Token{
		AccountID:     acc.ID,
		ApplicationID: appID.ID,
		Scope:         sc.String(),
	})
	if err != nil {
		s.Log.Error("access token issue failed", zap.Error(err))
		return nil, errors.New("access token issue failed")
	}

	resp := &AccessResponse{
		AccessToken: at.Token,
		TokenType:   "Bearer",
		CreatedAt:   at.CreatedAt.Unix(),
		TokenSpan:   at.TokenSpan,
	}

	if sc.OfflineAccess() {
		_, err := s.Store.FindTokenByApplication(ctx, token.Refresh.Collection, acc.ID, appID.ID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			rt, err := token.Issue(ctx, s.Store, token.Refresh, &core.Token{
				AccountID:     acc.ID,
				ApplicationID: appID.ID,
				Scope:         sc.String(),
			})
			if err != nil {
				s.Log.Error("refresh token issue failed", zap.Error(err))
				return nil, errors.New("refresh token issue failed")
			}
			resp.RefreshToken = rt.Token
		case err != nil:
			s.Log.Error("refresh token lookup failed", zap.Error(err))
			return nil, errors.New("refresh token lookup failed")
		}
		// An existing refresh token stays valid and is not repeated in
		// the response.
	}

	if sc.OpenID() {
		idt, err := s.identityToken(user, appID, at, sc)
		if err != nil {
			s.Log.Error("identity token signing failed", zap.Error(err))
			return nil, errors.New("identity token signing failed")
		}
		resp.IDToken = idt
	}

	return resp, nil
}

// identityToken builds and signs the OpenID claims payload for the access
// token just issued.
func (s *Service) identityToken(user *core.User, appID *core.ApplicationID, at *core.Token, sc *scope.Scope) (string, error) {
	claims := jwtv5.MapClaims{
		"iss": s.Homepage,
		"sub": user.ID,
		"aud": appID.Identifier,
		"iat": at.CreatedAt.Unix(),
	}
	if at.TokenSpan != nil {
		claims["exp"] = at.CreatedAt.Unix() + *at.TokenSpan
	}
	if sc.Email() || sc.Profile() {
		claims["email"] = user.Email
		claims["email_verified"] = user.ConfirmedAt != nil
	}
	if sc.Profile() {
		claims["name"] = user.Name
		if user.Picture != "" {
			pic := user.Picture
			if !strings.Contains(pic, "://") {
				pic = strings.TrimRight(s.Homepage, "/") + "/" + strings.TrimLeft(pic, "/")
			}
			claims["picture"] = pic
		}
	}
	return s.Signer.Sign(claims)
}
