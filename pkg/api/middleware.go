package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// KeyStore holds SHA-256 digests of the accepted API keys. Plaintext keys
// are hashed once at startup and never retained.
type KeyStore struct {
	hashes [][sha256.Size]byte
}

// NewKeyStore hashes the given plaintext keys. An empty key list yields a
// store that rejects everything; callers decide whether auth is enabled.
func NewKeyStore(keys []string) *KeyStore {
	ks := &KeyStore{}
	for _, k := range keys {
		ks.hashes = append(ks.hashes, sha256.Sum256([]byte(k)))
	}
	return ks
}

// Enabled reports whether any keys are configured.
func (ks *KeyStore) Enabled() bool {
	return len(ks.hashes) > 0
}

// Verify checks the presented key in constant time per candidate.
func (ks *KeyStore) Verify(key string) bool {
	sum := sha256.Sum256([]byte(key))
	ok := false
	for i := range ks.hashes {
		if subtle.ConstantTimeCompare(ks.hashes[i][:], sum[:]) == 1 {
			ok = true
		}
	}
	return ok
}

// RequireAPIKey rejects requests without a valid X-API-Key header. When no
// keys are configured the middleware passes everything through.
func (ks *KeyStore) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ks.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" || !ks.Verify(key) {
			WriteUnauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
