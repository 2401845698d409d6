// Package tag scans raw HTML text for script and link tags and classifies
// them for Subresource Integrity treatment. It deliberately works on tag
// substrings via pattern matching instead of a DOM: occurrences carry their
// byte offsets so rewrites can be applied positionally, attribute access is
// anchored to the tag instance, and paired script tags include their body
// and closing tag so content rewrites operate on the whole unit.
package tag
