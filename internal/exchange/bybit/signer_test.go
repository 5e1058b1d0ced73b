package bybit

import "testing"

// Digests computed independently with HMAC-SHA256, secret "secret".
func TestSigner_Sign(t *testing.T) {
	s := NewSigner("key", "secret")
	got := s.Sign(1700000000000, 5000, "q=1")
	want := "8a80cd9881dc393fdec4af69dbd00c9e123aa2267a25c2dba7b24cd1e54fdb17"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSigner_WSAuth(t *testing.T) {
	s := NewSigner("key", "secret")
	apiKey, sig := s.WSAuth(1700000000000)
	if apiKey != "key" {
		t.Errorf("apiKey = %q", apiKey)
	}
	want := "9baf584ddf7a063dffe910d97ce4eac0cf7064058356de8b8d92f028e5ad936f"
	if sig != want {
		t.Errorf("WSAuth() sig = %s, want %s", sig, want)
	}
}

func TestSigner_Headers(t *testing.T) {
	s := NewSigner("key", "secret")
	h := s.Headers(1700000000000, 5000, "q=1")

	if h["X-BAPI-API-KEY"] != "key" {
		t.Errorf("api key header = %q", h["X-BAPI-API-KEY"])
	}
	if h["X-BAPI-TIMESTAMP"] != "1700000000000" {
		t.Errorf("timestamp header = %q", h["X-BAPI-TIMESTAMP"])
	}
	if h["X-BAPI-RECV-WINDOW"] != "5000" {
		t.Errorf("recv window header = %q", h["X-BAPI-RECV-WINDOW"])
	}
	if h["X-BAPI-SIGN"] != s.Sign(1700000000000, 5000, "q=1") {
		t.Error("sign header does not match Sign()")
	}
	if h["Content-Type"] != "application/json" {
		t.Errorf("content type = %q", h["Content-Type"])
	}
}

func TestSigner_Wipe(t *testing.T) {
	s := NewSigner("key", "secret")
	s.Wipe()
	apiKey, _ := s.WSAuth(1700000000000)
	if apiKey != "\x00\x00\x00" {
		t.Errorf("key not zeroed: %q", apiKey)
	}

	var nilSigner *Signer
	nilSigner.Wipe() // must not panic
}
