// Package click implements the wire protocol of the Click SHOP API:
// callback actions, the MD5 signature scheme and the merchant error
// code vocabulary.
package click

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// Action codes carried by callbacks
const (
	ActionPrepare  = 0
	ActionComplete = 1
)

// SignaturePayload carries the callback fields covered by the MD5 digest,
// as the raw strings they arrived in. MerchantPrepareID participates only
// for the complete action.
type SignaturePayload struct {
	ClickTransID      string
	ServiceID         string
	SecretKey         string
	MerchantTransID   string
	MerchantPrepareID string
	Amount            string
	Action            int
	SignTime          string
}

// Digest computes the hex MD5 signature over the payload. The complete
// action includes the reservation id between the merchant transaction id
// and the amount; the prepare action omits it.
func Digest(p SignaturePayload) string {
	var b strings.Builder
	b.WriteString(p.ClickTransID)
	b.WriteString(p.ServiceID)
	b.WriteString(p.SecretKey)
	b.WriteString(p.MerchantTransID)
	if p.Action == ActionComplete {
		b.WriteString(p.MerchantPrepareID)
	}
	b.WriteString(p.Amount)
	b.WriteString(strconv.Itoa(p.Action))
	b.WriteString(p.SignTime)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the digest and compares it to the one the
// gateway supplied. A mismatch is an ordinary false, never an error.
func VerifySignature(p SignaturePayload, sign string) bool {
	expected := Digest(p)
	received := strings.ToLower(strings.TrimSpace(sign))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
