// Package manifest formats the resources processed during a conversion as
// line-oriented text. The line layout is a fasttemplate format string with
// single-brace {resource} and {integrity} placeholders, defaulting to
// "{resource} {integrity}".
package manifest
