package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer produces Bybit V5 API authentication headers. Keys are held as
// []byte so they can be wiped from memory.
type Signer struct {
	accessKey []byte
	secretKey []byte
}

// NewSigner creates a signer for the given key pair.
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{
		accessKey: []byte(accessKey),
		secretKey: []byte(secretKey),
	}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	for i := range s.accessKey {
		s.accessKey[i] = 0
	}
	for i := range s.secretKey {
		s.secretKey[i] = 0
	}
}

// Sign computes the V5 request signature over
// timestamp + apiKey + recvWindow + payload, where payload is the query
// string for GET and the JSON body for POST.
func (s *Signer) Sign(timestamp int64, recvWindow int, payload string) string {
	pre := fmt.Sprintf("%d%s%d%s", timestamp, s.accessKey, recvWindow, payload)
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(pre))
	return hex.EncodeToString(mac.Sum(nil))
}

// WSAuth returns the api key and signature for the private websocket auth
// op. The signature covers "GET/realtime" + expires (unix milliseconds).
func (s *Signer) WSAuth(expires int64) (apiKey, signature string) {
	mac := hmac.New(sha256.New, s.secretKey)
	fmt.Fprintf(mac, "GET/realtime%d", expires)
	return string(s.accessKey), hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the signed header set for one request.
func (s *Signer) Headers(timestamp int64, recvWindow int, payload string) map[string]string {
	return map[string]string{
		"X-BAPI-API-KEY":     string(s.accessKey),
		"X-BAPI-TIMESTAMP":   fmt.Sprintf("%d", timestamp),
		"X-BAPI-RECV-WINDOW": fmt.Sprintf("%d", recvWindow),
		"X-BAPI-SIGN":        s.Sign(timestamp, recvWindow, payload),
		"Content-Type":       "application/json",
	}
}
