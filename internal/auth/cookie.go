package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// IdentityCookie is the cookie carrying the signed username. The username is
// the routing identity everywhere: registry keys, message addressing and call
// signaling all use it.
const IdentityCookie = "identity"

var secretKey = loadSecret()

func loadSecret() []byte {
	if s := os.Getenv("COOKIE_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-secret-change-me")
}

// SignIdentity produces a cookie value in the format "username|signature".
func SignIdentity(username string) string {
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(username))
	sig := mac.Sum(nil)
	return fmt.Sprintf("%s|%s",
		base64.URLEncoding.EncodeToString([]byte(username)),
		base64.URLEncoding.EncodeToString(sig))
}

// VerifyIdentity checks the signature and returns the username.
func VerifyIdentity(signedValue string) (string, error) {
	parts := strings.Split(signedValue, "|")
	if len(parts) != 2 {
		return "", errors.New("invalid cookie format")
	}

	raw, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid value encoding")
	}
	username := string(raw)

	sig, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("invalid signature encoding")
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(username))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", errors.New("invalid signature")
	}

	return username, nil
}
