package asset

import (
	"fmt"
	"strings"
)

// Scheme is the fixed URI scheme for asset references.
const Scheme = "asset://"

// knownKinds are the asset kinds the engine recognizes. Unknown kinds are
// accepted but marked so the scorer can treat them as weaker signals.
var knownKinds = map[string]struct{}{
	"database": {},
	"bucket":   {},
	"cache":    {},
	"queue":    {},
	"service":  {},
	"api":      {},
	"pipeline": {},
	"dataset":  {},
	"model":    {},
}

// Reference is a parsed asset identifier.
type Reference struct {
	// Raw is the original identifier as supplied by the caller.
	Raw string `json:"raw"`

	// Kind is the asset category (e.g., "database").
	Kind string `json:"kind"`

	// Descriptor names the asset within its kind (e.g., "customer_data").
	Descriptor string `json:"descriptor"`

	// Domain is the environment or business domain (e.g., "production").
	// Domains may legitimately contain dots; segments beyond the third are
	// rejoined here.
	Domain string `json:"domain"`

	// KnownKind reports whether Kind is one of the recognized categories.
	// Unknown kinds are accepted, not rejected.
	KnownKind bool `json:"known_kind"`
}

// MalformedReferenceError indicates an asset identifier that could not be
// parsed. It is a terminal user-input error: the workflow fails fast and
// does not retry.
type MalformedReferenceError struct {
	URI    string
	Reason string
}

// Error implements the error interface.
func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("malformed asset reference %q: %s", e.URI, e.Reason)
}

// Parse parses an asset URI of the form asset://kind.descriptor.domain.
// The scheme is optional on input; String always includes it. Fewer than
// three dot-separated segments is an error; segments beyond three are
// rejoined into the domain field.
func Parse(uri string) (*Reference, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return nil, &MalformedReferenceError{URI: uri, Reason: "empty identifier"}
	}

	path := trimmed
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		if !strings.HasPrefix(trimmed, Scheme) {
			return nil, &MalformedReferenceError{
				URI:    uri,
				Reason: fmt.Sprintf("unsupported scheme %q, expected %q", trimmed[:idx+3], Scheme),
			}
		}
		path = strings.TrimPrefix(trimmed, Scheme)
	}

	parts := strings.Split(path, ".")
	if len(parts) < 3 {
		return nil, &MalformedReferenceError{
			URI:    uri,
			Reason: fmt.Sprintf("expected at least 3 dot-separated segments (kind.descriptor.domain), got %d", len(parts)),
		}
	}
	for i, p := range parts {
		if p == "" {
			return nil, &MalformedReferenceError{
				URI:    uri,
				Reason: fmt.Sprintf("empty segment at position %d", i),
			}
		}
	}

	kind := parts[0]
	_, known := knownKinds[kind]

	return &Reference{
		Raw:        trimmed,
		Kind:       kind,
		Descriptor: parts[1],
		Domain:     strings.Join(parts[2:], "."),
		KnownKind:  known,
	}, nil
}

// String returns the canonical form of the reference, always including the
// scheme. For any valid input, Parse(x).String() equals Normalize(x).
func (r *Reference) String() string {
	return Scheme + r.Kind + "." + r.Descriptor + "." + r.Domain
}

// Normalize returns the canonical form of an asset URI without fully
// parsing it: whitespace trimmed and the scheme prefixed if absent.
func Normalize(uri string) string {
	trimmed := strings.TrimSpace(uri)
	if strings.HasPrefix(trimmed, Scheme) {
		return trimmed
	}
	return Scheme + trimmed
}
