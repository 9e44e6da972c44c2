// Package oauth implements the token-endpoint grant exchange and
// access-token issuance.
//
// The exchange accumulates every violated precondition as a human-readable
// message fragment instead of failing fast, so a client sees all its
// mistakes in one response. The presented code or refresh token is only
// consumed after every precondition has passed.
package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tenkit/tenkit/internal/jwt"
	"github.com/tenkit/tenkit/internal/scope"
	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/token"
)

// Service wires the grant exchange to its collaborators.
type Service struct {
	Store    core.Repository
	Signer   jwt.Signer
	Homepage string
	Log      *zap.Logger
}

// ExchangeRequest carries the token-endpoint form fields.
type ExchangeRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	RefreshToken string
}

// ErrorResponse is the 400 body: all accumulated message fragments joined.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Exchange runs the token-endpoint state machine and returns the HTTP
// status plus the JSON-serializable body.
func (s *Service) Exchange(ctx context.Context, req ExchangeRequest) (int, any) {
	var errs strings.Builder

	appID := s.validateClient(ctx, req.ClientID, req.ClientSecret, &errs)

	var (
		kind      token.Kind
		haveKind  bool
		authValue string
	)
	switch req.GrantType {
	case "authorization_code":
		if appID != nil && !s.redirectURIRegistered(ctx, appID, req.RedirectURI) {
			errs.WriteString("Invalid redirect_uri. ")
		}
		if req.Code == "" {
			errs.WriteString("Code missing. ")
		} else {
			authValue = req.Code
		}
		kind, haveKind = token.Code, true
	case "refresh_token":
		if req.RefreshToken == "" {
			errs.WriteString("Refresh token missing. ")
		} else {
			authValue = req.RefreshToken
		}
		kind, haveKind = token.Refresh, true
	default:
		errs.WriteString("Invalid grant_type parameter.")
	}

	switch {
	case haveKind && errs.Len() == 0:
		tok, err := token.Redeem(ctx, s.Store, kind, authValue)
		switch {
		case errors.Is(err, core.ErrNotFound):
			errs.WriteString(grantFailure(req.GrantType))
		case err != nil:
			s.Log.Error("token redemption failed", zap.String("grant_type", req.GrantType), zap.Error(err))
			errs.WriteString(grantFailure(req.GrantType))
		default:
			resp, err := s.issueForToken(ctx, tok, appID)
			if err != nil {
				errs.WriteString(err.Error())
			} else {
				return http.StatusOK, resp
			}
		}
	case haveKind:
		// A known grant kind whose preconditions failed still closes the
		// message with its redemption-failure fragment.
		errs.WriteString(grantFailure(req.GrantType))
	}

	return http.StatusBadRequest, ErrorResponse{Error: errs.String()}
}

func grantFailure(grantType string) string {
	return "Invalid " + strings.ReplaceAll(grantType, "_", " ") + "."
}

// validateClient resolves the client registry entry and checks the secret,
// accumulating the combined failure message on any mismatch. The returned
// ApplicationID is non-nil only for a fully validated client.
func (s *Service) validateClient(ctx context.Context, clientID, clientSecret string, errs *strings.Builder) *core.ApplicationID {
	appID, err := s.Store.GetApplicationID(ctx, clientID)
	if err == nil {
		app, appErr := s.application(ctx, appID)
		if appErr == nil && subtle.ConstantTimeCompare([]byte(app.SecretToken), []byte(clientSecret)) == 1 {
			return appID
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		s.Log.Error("client lookup failed", zap.String("client_id", clientID), zap.Error(err))
	}
	errs.WriteString("Invalid client credentials. ")
	return nil
}

func (s *Service) application(ctx context.Context, appID *core.ApplicationID) (*core.Application, error) {
	acc, err := s.Store.GetAccount(ctx, appID.AccountID)
	if err != nil {
		return nil, err
	}
	return s.Store.GetApplication(ctx, acc, appID.ID)
}

func (s *Service) redirectURIRegistered(ctx context.Context, appID *core.ApplicationID, redirectURI string) bool {
	app, err := s.application(ctx, appID)
	if err != nil {
		return false
	}
	for _, u := range app.RedirectURIs {
		if u == redirectURI {
			return true
		}
	}
	return false
}

// issueForToken turns a redeemed grant token into an access-token bundle
// for the owning account's owner. Failures, including panics out of the
// issuance path, come back as plain errors for the accumulator.
func (s *Service) issueForToken(ctx context.Context, tok *core.Token, appID *core.ApplicationID) (resp *AccessResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("access token issuance panicked", zap.Any("panic", r))
			err = fmt.Errorf("access token issuance failed")
		}
	}()

	acc, err := s.Store.GetAccount(ctx, tok.AccountID)
	if err != nil {
		return nil, fmt.Errorf("token account lookup failed")
	}
	owner, err := s.Store.GetUser(ctx, acc.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("account owner lookup failed")
	}
	return s.IssueAccessToken(ctx, owner, appID, scope.Parse(tok.Scope))
}
