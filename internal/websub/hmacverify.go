package websub

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // accepted-but-warned algorithm
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"log/slog"
)

// Verify checks that signature is the HMAC-algo digest of message
// under secret, in constant time. algo is matched case-insensitively
// against sha1 (accepted, logged as deprecated), sha256, sha384 and
// sha512; any other value is logged and rejected. Unlike the
// gohubbub client this is grounded on, which compares hex strings
// with strings.EqualFold,
// this compares raw digest bytes with hmac.Equal for a genuinely
// constant-time comparison.
func Verify(algo string, signature, secret, message []byte) bool {
	var newHash func() hash.Hash
	switch algo {
	case "sha1":
		slog.Warn("websub: sha1 HMAC signature accepted; deprecated, upgrade the hub")
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	case "sha384":
		newHash = sha512.New384
	case "sha512":
		newHash = sha512.New
	default:
		slog.Warn("websub: unknown HMAC algorithm in push signature", slog.String("algo", algo))
		return false
	}

	mac := hmac.New(newHash, secret)
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), signature)
}
