package models

import "strings"

// Identity is an opaque caller reference supplied by the host environment.
// Two calls come from the same principal iff their identities are equal.
type Identity string

// ParseIdentity trims surrounding whitespace; ok is false for an empty identity.
func ParseIdentity(raw string) (Identity, bool) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", false
	}
	return Identity(id), true
}

func (id Identity) String() string {
	return string(id)
}
