package main

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Credential names looked up in a request's _meta object.
const (
	HeaderAccessKey = "X-Access-Key"
	HeaderSecretKey = "X-Secret-Key"
)

// Credentials are the configured access and secret keys. Zero value
// disables authentication.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Enabled reports whether requests must carry credentials.
func (c Credentials) Enabled() bool {
	return c.AccessKey != "" || c.SecretKey != ""
}

// Check compares the credentials in meta with the configured ones. Header
// names match case-insensitively.
func (c Credentials) Check(meta map[string]any) error {
	if !c.Enabled() {
		return nil
	}

	access, okAccess := metaString(meta, HeaderAccessKey)
	secret, okSecret := metaString(meta, HeaderSecretKey)

	var missing []string
	if !okAccess {
		missing = append(missing, HeaderAccessKey)
	}
	if !okSecret {
		missing = append(missing, HeaderSecretKey)
	}
	if len(missing) > 0 {
		return &RequestError{
			Status:  http.StatusUnauthorized,
			Message: fmt.Sprintf("Missing required authentication headers: %s", strings.Join(missing, ", ")),
		}
	}

	accessOK := subtle.ConstantTimeCompare([]byte(access), []byte(c.AccessKey)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(c.SecretKey)) == 1
	if !accessOK || !secretOK {
		return &RequestError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return nil
}

func metaString(meta map[string]any, name string) (string, bool) {
	for k, v := range meta {
		if !strings.EqualFold(k, name) {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", false
		}
		return s, true
	}
	return "", false
}
