// Package asset parses asset identifiers of the form
// asset://kind.descriptor.domain into structured references.
//
// Parsing is a pure, total function over valid inputs: it performs no
// network or storage access and is trivially idempotent. Unknown kind
// values are accepted but flagged, not rejected; the flag is consumed
// downstream as a low-confidence signal.
package asset
