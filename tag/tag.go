package tag

import (
	"regexp"
	"strings"
)

// Kind distinguishes script and link occurrences.
type Kind int

// Tag kinds recognized by Scan.
const (
	Script Kind = iota
	Link
)

// Occurrence is one matched tag in a document. Raw holds
// the full literal text, including the paired closing tag
// for inline scripts. Start and End are byte offsets into
// the scanned document so rewrites can be applied
// positionally even when two tags are textually identical.
type Occurrence struct {
	Raw   string
	Ref   string
	Start int
	End   int
	Kind  Kind
}

// tagChunk consumes one unit of opening-tag text, taking
// quoted attribute values whole so a ">" inside a value
// does not end the tag.
const tagChunk = `(?:[^>"']|"[^"]*"|'[^']*')`

// scanPattern matches, in order of preference: an external
// script opening tag (self-closing or not; the paired
// closing tag is left alone so attribute insertion stays in
// the opening tag), a paired inline script including its
// body, a bare script opening tag with no closing tag, and
// a link tag. Alternation is leftmost-first, so the
// external-script branch wins over the paired branch for
// scripts that carry a src attribute.
var scanPattern = regexp.MustCompile(
	`(?is)<script\b` + tagChunk + `*?\ssrc\s*=\s*` +
		`(?:"[^"]*"|'[^']*')` + tagChunk + `*?>` +
		`|<script\b` + tagChunk + `*>.*?</script\s*>` +
		`|<script\b` + tagChunk + `*>` +
		`|<link\b` + tagChunk + `*>`,
)

// anyAttr matches a quoted name=value attribute. Unquoted
// attribute values are not recognized; quoted values are
// consumed whole, so an "=" inside a value never starts a
// new match.
var anyAttr = regexp.MustCompile(
	`(?i)([a-z][a-z0-9-]*)\s*=\s*("[^"]*"|'[^']*')`,
)

// openForm matches the opening tag at the start of a
// literal, consuming quoted attribute values whole so a
// ">" inside a value does not end the tag.
var openForm = regexp.MustCompile(
	`^<(?:[^>"']|"[^"]*"|'[^']*')*>`,
)

// pairedClose matches the closing script tag at the end of
// a paired occurrence.
var pairedClose = regexp.MustCompile(`(?i)</script\s*>$`)

// Scan finds all script and link tags in doc in document
// order, in a single left-to-right pass. Ref carries the
// src (scripts) or href (links) attribute value when one
// is present.
func Scan(doc string) []Occurrence {
	var occs []Occurrence

	for _, loc := range scanPattern.FindAllStringIndex(
		doc, -1,
	) {
		raw := doc[loc[0]:loc[1]]

		occ := Occurrence{
			Raw:   raw,
			Start: loc[0],
			End:   loc[1],
			Kind:  kindOf(raw),
		}

		switch occ.Kind {
		case Script:
			occ.Ref, _ = Attr(raw, "src")
		case Link:
			occ.Ref, _ = Attr(raw, "href")
		}

		occs = append(occs, occ)
	}

	return occs
}

// kindOf reports whether a matched literal is a script or
// a link tag.
func kindOf(raw string) Kind {
	if len(raw) >= 5 &&
		strings.EqualFold(raw[1:5], "link") {
		return Link
	}

	return Script
}

// openingTag returns the opening tag prefix of raw, up to
// and including its closing ">". Attribute operations are
// anchored here so a paired script's body is never
// mistaken for tag attributes.
func openingTag(raw string) string {
	if ma := openForm.FindString(raw); ma != "" {
		return ma
	}

	return raw
}

// Attr extracts the value of the named attribute from the
// tag's opening form. The second return value reports
// whether the attribute was present.
func Attr(raw string, name string) (string, bool) {
	open := openingTag(raw)

	for _, ma := range anyAttr.FindAllStringSubmatch(
		open, -1,
	) {
		if strings.EqualFold(ma[1], name) {
			quoted := ma[2]

			return quoted[1 : len(quoted)-1], true
		}
	}

	return "", false
}

// WithAttr returns raw with the attribute set to value.
// An existing attribute is replaced in place; otherwise
// the attribute is inserted at the end of the opening tag,
// before "/>" on self-closing tags and before the final
// ">" everywhere else. Paired literals keep their body and
// closing tag untouched.
func WithAttr(raw string, key string, value string) string {
	open := openingTag(raw)

	for _, ma := range anyAttr.FindAllStringSubmatchIndex(
		open, -1,
	) {
		name := open[ma[2]:ma[3]]
		if !strings.EqualFold(name, key) {
			continue
		}

		// ma[4]:ma[5] spans the quoted value; keep the
		// original quote characters.
		return raw[:ma[4]+1] + value + raw[ma[5]-1:]
	}

	attr := ` ` + key + `="` + value + `"`

	if !strings.HasSuffix(open, ">") {
		return raw + attr
	}

	at := len(open) - 1
	if strings.HasSuffix(open, "/>") {
		at = len(open) - 2
	}

	return raw[:at] + attr + raw[at:]
}

// SplitPaired decomposes a paired script occurrence into
// its opening tag, body, and closing tag. ok is false when
// raw has no body (no closing tag, or no ">" ending the
// opening form).
func SplitPaired(raw string) (
	open string,
	body string,
	closing string,
	ok bool,
) {
	open = openForm.FindString(raw)
	if open == "" {
		return "", "", "", false
	}

	loc := pairedClose.FindStringIndex(raw)
	if loc == nil || loc[0] < len(open) {
		return "", "", "", false
	}

	return open, raw[len(open):loc[0]], raw[loc[0]:], true
}
