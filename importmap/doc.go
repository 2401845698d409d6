// Package importmap parses and reserializes import-map JSON bodies while
// preserving key order. Parse exposes the ordered imports bindings and any
// previously recorded integrity map; Serialize emits compact JSON with the
// original top-level key order, replacing the integrity entry in place or
// appending it when absent. Scopes and unrecognized keys pass through
// untouched.
package importmap
