package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Algorithm selects the HMAC digest.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	SHA1   Algorithm = "sha1"
)

// Result reports a verification outcome. Reason is set iff Verified is false.
// Callers must reject the request on any negative result without surfacing
// Reason to the sender; it is for logs only.
type Result struct {
	Verified bool
	Reason   string
}

func failure(reason string) Result { return Result{Verified: false, Reason: reason} }

// Verify checks a hex-encoded HMAC signature over the exact raw payload that
// was signed. Callers must not re-serialize the body before calling; any
// transformation invalidates the signature. Verify never panics and never
// returns a Go error: every failure mode maps to a Result with a reason.
func Verify(payload, sig, secret string, alg Algorithm) Result {
	if payload == "" {
		return failure("Payload cannot be empty")
	}
	if sig == "" {
		return failure("Signature cannot be empty")
	}
	if secret == "" {
		return failure("Secret cannot be empty")
	}

	newHash, err := hashFunc(alg)
	if err != nil {
		return failure(fmt.Sprintf("Verification failed: %v", err))
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write([]byte(payload))
	computed := mac.Sum(nil)

	supplied, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(sig)))
	if err != nil {
		return failure(fmt.Sprintf("Verification failed: %v", err))
	}

	// Equal-length buffers are a precondition of the constant-time compare,
	// so the length check happens explicitly first.
	if len(supplied) != len(computed) {
		return failure("Signature length mismatch")
	}
	if !hmac.Equal(computed, supplied) {
		return failure("Invalid signature")
	}
	return Result{Verified: true}
}

func hashFunc(alg Algorithm) (func() hash.Hash, error) {
	switch alg {
	case SHA256, "":
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	case SHA1:
		return sha1.New, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
}
