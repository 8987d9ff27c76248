// Package payme implements the wire protocol of the Payme Merchant API:
// the JSON-RPC 2.0 envelope, request authorization, error and state
// vocabularies and the millisecond timestamp convention.
package payme

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Authorize checks the Authorization header of a Merchant API call
// against the configured credentials. The header must carry HTTP Basic
// credentials of the form login:secret. Comparison runs in constant time.
func Authorize(header, login, secret string) bool {
	scheme, encoded, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return false
	}

	expected := []byte(login + ":" + secret)
	return subtle.ConstantTimeCompare(decoded, expected) == 1
}
