// Package jwt is the identity-token signer collaborator. The default
// deployment issues unsigned tokens (alg=none); a production deployment
// swaps in HS256 through configuration without touching the callers.
package jwt

import (
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Signer turns an identity-token payload into its wire form.
type Signer interface {
	Sign(claims jwtv5.MapClaims) (string, error)
	Alg() string
}

// NewSigner builds a signer for the configured algorithm.
func NewSigner(alg, secret string) (Signer, error) {
	switch alg {
	case "", "none":
		return noneSigner{}, nil
	case "HS256":
		if secret == "" {
			return nil, fmt.Errorf("identity signer: HS256 requires a secret")
		}
		return hsSigner{secret: []byte(secret)}, nil
	default:
		return nil, fmt.Errorf("identity signer: unsupported alg %q", alg)
	}
}

type noneSigner struct{}

func (noneSigner) Alg() string { return "none" }

func (noneSigner) Sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, claims)
	return tk.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
}

type hsSigner struct{ secret []byte }

func (hsSigner) Alg() string { return "HS256" }

func (s hsSigner) Sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(s.secret)
}
