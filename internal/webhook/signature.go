package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign returns the signature header value for payload sent at unix time ts.
// The timestamp is part of the MAC so a captured delivery cannot be replayed
// under a fresh timestamp.
func Sign(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func Verify(secret string, ts int64, payload []byte, signature string) bool {
	expectedSignature := Sign(secret, ts, payload)
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}
