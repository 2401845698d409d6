package tag

import "strings"

// plainRelTokens make a link eligible outside the preload
// special case.
var plainRelTokens = []string{
	"style", "stylesheet", "modulepreload",
}

// IsSRITag reports whether the tag should receive an
// integrity attribute. Scripts qualify when they reference
// an external resource via src; inline scripts do not
// (import maps take the dedicated path, see
// IsImportMapTag). Links qualify based on their rel
// tokens, with preload narrowed by the as attribute.
func IsSRITag(raw string) bool {
	if kindOf(raw) == Script {
		_, ok := Attr(raw, "src")

		return ok
	}

	rel, ok := Attr(raw, "rel")
	if !ok {
		return false
	}

	tokens := make(map[string]bool)
	for _, to := range strings.Fields(rel) {
		tokens[strings.ToLower(to)] = true
	}

	if tokens["preload"] {
		if as, ok := Attr(raw, "as"); ok {
			as = strings.ToLower(as)

			return as == "style" || as == "script"
		}

		return tokens["stylesheet"] || tokens["style"]
	}

	for _, to := range plainRelTokens {
		if tokens[to] {
			return true
		}
	}

	return false
}

// IsImportMapTag reports whether the tag is a script whose
// type attribute declares an import map.
func IsImportMapTag(raw string) bool {
	if kindOf(raw) != Script {
		return false
	}

	ty, ok := Attr(raw, "type")

	return ok && strings.EqualFold(
		strings.TrimSpace(ty), "importmap",
	)
}
