// Package auth holds the credential and authorization-mode types shared by
// the subscription model, the config loader, and the remote API client.
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Mode controls whether a subscription must carry a credential before it is
// allowed to poll.
type Mode string

const (
	// ModeRequired denies a poll cycle when no credential is attached.
	ModeRequired Mode = "required"

	// ModeOpen permits polling without a credential (credential-exempt
	// endpoints, sandbox tenants).
	ModeOpen Mode = "open"
)

// ParseMode parses a mode string from config or storage.
// An empty string defaults to ModeRequired.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRequired, "":
		return ModeRequired, nil
	case ModeOpen:
		return ModeOpen, nil
	default:
		return "", fmt.Errorf("unknown auth mode %q", s)
	}
}

// Credential is an opaque bearer token for the remote API.
type Credential string

// IsZero reports whether no credential is attached.
func (c Credential) IsZero() bool {
	return c == ""
}

// Attach sets the Authorization header on an outbound request.
// No-op for an empty credential.
func (c Credential) Attach(h http.Header) {
	if c.IsZero() {
		return
	}
	h.Set("Authorization", "Bearer "+string(c))
}
