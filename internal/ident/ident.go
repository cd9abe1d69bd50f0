// Package ident generates, validates and encodes the opaque identifiers used
// to correlate conversation threads and individual A2A requests.
//
// Identifiers are RFC 4122 UUIDs. The canonical text form is the lowercase,
// hyphenated 36-character string; the same value can be carried as 16 raw
// bytes or as unpadded URL-safe base64 of those bytes.
package ident

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Well-known namespaces for deterministic identifiers.
var (
	NamespaceDNS  = uuid.NameSpaceDNS
	NamespaceURL  = uuid.NameSpaceURL
	NamespaceOID  = uuid.NameSpaceOID
	NamespaceX500 = uuid.NameSpaceX500
)

var canonicalRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// FormatError reports text or bytes that do not decode to an identifier.
type FormatError struct {
	Input string
	Err   error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ident: malformed identifier %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("ident: malformed identifier %q", e.Input)
}

// Unwrap returns the underlying decode error, if any.
func (e *FormatError) Unwrap() error { return e.Err }

// NewRandom returns a random (version 4) identifier.
func NewRandom() uuid.UUID {
	return uuid.New()
}

// NewString is NewRandom in canonical text form.
func NewString() string {
	return uuid.NewString()
}

// NewTimeBased returns a time and node based (version 1) identifier.
func NewTimeBased() (uuid.UUID, error) {
	return uuid.NewUUID()
}

// NewDeterministic returns the version 5 identifier for name within
// namespace. The same inputs always produce the same identifier.
func NewDeterministic(namespace uuid.UUID, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(name))
}

// ParseNamespace resolves one of "dns", "url", "oid", "x500" (any case) or a
// canonical identifier string to a namespace value.
func ParseNamespace(s string) (uuid.UUID, error) {
	switch strings.ToLower(s) {
	case "dns":
		return NamespaceDNS, nil
	case "url":
		return NamespaceURL, nil
	case "oid":
		return NamespaceOID, nil
	case "x500":
		return NamespaceX500, nil
	}
	if !canonicalRE.MatchString(s) {
		return uuid.Nil, &FormatError{Input: s, Err: fmt.Errorf("unknown namespace")}
	}
	return Parse(s)
}

// Parse decodes any text form accepted by the uuid package (canonical,
// braced, urn-prefixed or bare hex).
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &FormatError{Input: s, Err: err}
	}
	return id, nil
}

// Validate reports whether s is a canonical 36-character hyphenated
// identifier of any version. It never panics.
func Validate(s string) bool {
	if !canonicalRE.MatchString(s) {
		return false
	}
	return uuid.Validate(s) == nil
}

// Canonicalize returns the lowercase hyphenated form of s.
func Canonicalize(s string) (string, error) {
	id, err := Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Equal reports whether a and b denote the same identifier. Unparseable
// input is never equal to anything.
func Equal(a, b string) bool {
	x, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	y, err := uuid.Parse(b)
	if err != nil {
		return false
	}
	return x == y
}

// ToBytes returns the 16 raw bytes of id.
func ToBytes(id uuid.UUID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// FromBytes rebuilds an identifier from exactly 16 bytes.
func FromBytes(b []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, &FormatError{Input: fmt.Sprintf("%x", b), Err: err}
	}
	return id, nil
}

// EncodeCompact returns the unpadded URL-safe base64 form of id.
func EncodeCompact(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// DecodeCompact reverses EncodeCompact. Padded input is accepted.
func DecodeCompact(s string) (uuid.UUID, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return uuid.Nil, &FormatError{Input: s, Err: err}
	}
	if len(b) != 16 {
		return uuid.Nil, &FormatError{Input: s, Err: fmt.Errorf("decoded %d bytes, want 16", len(b))}
	}
	return FromBytes(b)
}
