// Package integrity computes Subresource Integrity values. A value is the
// SHA-384 digest of the resource bytes, base64-encoded with the standard
// alphabet and prefixed with "sha384-", as recognized by the HTML integrity
// attribute. Values are deterministic: the same bytes always produce the
// same value.
package integrity
