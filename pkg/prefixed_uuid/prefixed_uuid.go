// Package prefixed_uuid generates identifiers of the form "<prefix>-<uuid>",
// used for chat session ids minted by the server.
package prefixed_uuid

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PrefixedUUID is a UUID tagged with a short dash-free prefix.
type PrefixedUUID struct {
	Prefix string
	UUID   uuid.UUID
}

// New generates a random UUID under prefix.
func New(prefix string) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: uuid.New()}
}

// FromUUID wraps an existing UUID.
func FromUUID(prefix string, id uuid.UUID) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: id}
}

// FromString parses "prefix-uuid". The prefix ends at the first dash.
func FromString(s string) (PrefixedUUID, error) {
	prefix, rest, ok := strings.Cut(s, "-")
	if !ok || prefix == "" {
		return PrefixedUUID{}, fmt.Errorf("invalid prefixed UUID format: %q", s)
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return PrefixedUUID{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return PrefixedUUID{Prefix: prefix, UUID: id}, nil
}

// HasPrefix reports whether s parses with the given prefix.
func HasPrefix(s, prefix string) bool {
	p, err := FromString(s)
	return err == nil && p.Prefix == prefix
}

func (p PrefixedUUID) String() string {
	return p.Prefix + "-" + p.UUID.String()
}

// IsZero reports whether p is the zero value.
func (p PrefixedUUID) IsZero() bool {
	return p.Prefix == "" && p.UUID == uuid.Nil
}

func (p PrefixedUUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PrefixedUUID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("prefixed UUID must be a JSON string: %w", err)
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
