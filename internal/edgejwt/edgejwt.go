// Package edgejwt verifies HS256 tokens using only stdlib primitives
// (crypto/hmac, sha256, base64, encoding/json). It runs in front of every
// request in the route guard, where the full golang-jwt stack must not be
// a dependency. Claim names, algorithm and secret material are shared with
// internal/tokens: a token minted by either side verifies under the other.
package edgejwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ,omitempty"`
}

// Verify returns the claims of a well-formed, correctly signed, unexpired
// HS256 token and nil in every other case. It never returns an error:
// callers gating requests treat any uncertainty as "no identity".
func Verify(token string, secret []byte) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil || h.Alg != "HS256" {
		return nil
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == 0 || time.Now().Unix() >= claims.ExpiresAt {
		return nil
	}
	return &claims
}

// Sign mints an HS256 token from the given claims. The server runtime signs
// with golang-jwt; this exists for contexts restricted to stdlib crypto and
// for cross-compatibility checks.
func Sign(claims Claims, secret []byte) (string, error) {
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
