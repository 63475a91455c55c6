package domain

import "time"

// SessionRef is the opaque reference addressing one stored conversation.
// Server-generated refs are derived from the creation instant.
type SessionRef string

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Identity is the caller identity resolved by the token verifier.
// StableID is always present; LegacyAlias is the pre-migration address
// (an email) and may be empty.
type Identity struct {
	StableID    string
	LegacyAlias string
}

// Keys returns the storage keys a caller's data may live under,
// primary key first.
func (id Identity) Keys() []string {
	keys := []string{id.StableID}
	if id.LegacyAlias != "" {
		keys = append(keys, id.LegacyAlias)
	}
	return keys
}

type Timestamp = time.Time
