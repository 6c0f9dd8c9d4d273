// Package signing defines how API requests are signed with an identity's
// ed25519 key.
//
// The signed message is
//
//	METHOD "\n" PATH "\n" TIMESTAMP "\n" hex(SHA-256(body))
//
// and travels in the X-Identity, X-Timestamp and X-Signature headers, all
// hex or decimal text.
package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// Request headers carrying the signature.
const (
	HeaderIdentity  = "X-Identity"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Verification errors.
var (
	ErrMissingSignature = errors.New("missing signature headers")
	ErrBadSignature     = errors.New("signature verification failed")
	ErrStaleTimestamp   = errors.New("timestamp outside allowed skew")
)

// Message returns the bytes covered by the signature.
func Message(method, path, timestamp string, body []byte) []byte {
	sum := sha256.Sum256(body)
	return []byte(method + "\n" + path + "\n" + timestamp + "\n" + hex.EncodeToString(sum[:]))
}

// IdentityOf returns the identity of an ed25519 public key.
func IdentityOf(pub ed25519.PublicKey) models.Identity {
	var id models.Identity
	copy(id[:], pub)
	return id
}

// Sign sets the signature headers on r for body, signed at now.
func Sign(r *http.Request, key ed25519.PrivateKey, body []byte, now time.Time) {
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := ed25519.Sign(key, Message(r.Method, r.URL.Path, ts, body))

	r.Header.Set(HeaderIdentity, IdentityOf(key.Public().(ed25519.PublicKey)).String())
	r.Header.Set(HeaderTimestamp, ts)
	r.Header.Set(HeaderSignature, hex.EncodeToString(sig))
}

// Verify checks the signature headers of r against body and returns the
// signer's identity. Timestamps further than maxSkew from now are rejected.
func Verify(r *http.Request, body []byte, now time.Time, maxSkew time.Duration) (models.Identity, error) {
	idHex := r.Header.Get(HeaderIdentity)
	ts := r.Header.Get(HeaderTimestamp)
	sigHex := r.Header.Get(HeaderSignature)
	if idHex == "" || ts == "" || sigHex == "" {
		return models.Identity{}, ErrMissingSignature
	}

	id, err := models.ParseIdentity(idHex)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return models.Identity{}, fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: malformed timestamp", ErrBadSignature)
	}
	if skew := now.Sub(time.Unix(unix, 0)); skew > maxSkew || skew < -maxSkew {
		return models.Identity{}, ErrStaleTimestamp
	}

	if !ed25519.Verify(ed25519.PublicKey(id[:]), Message(r.Method, r.URL.Path, ts, body), sig) {
		return models.Identity{}, ErrBadSignature
	}
	return id, nil
}
