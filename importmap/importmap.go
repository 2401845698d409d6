package importmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// Binding is one imports entry: a module specifier mapped
// to a resource reference.
type Binding struct {
	Specifier string
	Reference string
}

// IntegrityPair is one entry of the rebuilt integrity map,
// keyed by resource reference.
type IntegrityPair struct {
	Reference string
	Value     string
}

// Map is a structured view of an import-map body. Imports
// preserves the entry order of the source JSON; Integrity
// holds previously recorded values keyed by reference.
// Top-level keys (including scopes and anything
// unrecognized) are retained verbatim for reserialization.
type Map struct {
	keys []string
	raw  map[string]json.RawMessage

	Imports   []Binding
	Integrity map[string]string
}

// Parse decodes an import-map body. It fails when the body
// is empty, not valid JSON, or not a JSON object, and when
// imports entries are not string-to-string.
func Parse(body string) (*Map, error) {
	const errCtx = "failed to parse import map"

	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%s: empty body", errCtx)
	}

	keys, raw, err := decodeObject(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	im := &Map{
		keys:      keys,
		raw:       raw,
		Integrity: make(map[string]string),
	}

	if rawImports, ok := raw["imports"]; ok {
		im.Imports, err = decodeBindings(rawImports)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: imports: %w", errCtx, err,
			)
		}
	}

	if rawIntegrity, ok := raw["integrity"]; ok {
		if err := json.Unmarshal(
			rawIntegrity, &im.Integrity,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: integrity: %w", errCtx, err,
			)
		}
	}

	return im, nil
}

// decodeObject walks the top level of a JSON object with a
// token decoder, keeping key order and raw values.
func decodeObject(body string) (
	[]string,
	map[string]json.RawMessage,
	error,
) {
	dec := json.NewDecoder(strings.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil, fmt.Errorf(
			"not a JSON object: %v", tok,
		)
	}

	var keys []string

	raw := make(map[string]json.RawMessage)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}

		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf(
				"unexpected key token: %v", keyTok,
			)
		}

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, nil, err
		}

		if _, dup := raw[key]; !dup {
			keys = append(keys, key)
		}

		raw[key] = val
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	// nothing may follow the closing brace
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New(
			"trailing data after object",
		)
	}

	return keys, raw, nil
}

// decodeBindings walks the imports object, keeping entry
// order. Every value must be a string reference.
func decodeBindings(
	raw json.RawMessage,
) ([]Binding, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf(
			"not a JSON object: %v", tok,
		)
	}

	var bindings []Binding

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		specifier, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf(
				"unexpected key token: %v", keyTok,
			)
		}

		var reference string
		if err := dec.Decode(&reference); err != nil {
			return nil, fmt.Errorf(
				"entry %s: %w", specifier, err,
			)
		}

		bindings = append(bindings, Binding{
			Specifier: specifier,
			Reference: reference,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return bindings, nil
}

// Serialize emits the import map as compact JSON with
// pairs as the new integrity map. The original top-level
// key order is kept; an existing integrity key is replaced
// in place, otherwise integrity is appended last.
func (im *Map) Serialize(
	pairs []IntegrityPair,
) (string, error) {
	const errCtx = "serializing import map"

	integ, err := marshalPairs(pairs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	var sb strings.Builder

	sb.WriteByte('{')

	wrote := false

	for idx, key := range im.keys {
		if idx > 0 {
			sb.WriteByte(',')
		}

		keyJSON, err := json.Marshal(key)
		if err != nil {
			return "", fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		sb.Write(keyJSON)
		sb.WriteByte(':')

		if key == "integrity" {
			sb.Write(integ)

			wrote = true

			continue
		}

		var compacted bytes.Buffer
		if err := json.Compact(
			&compacted, im.raw[key],
		); err != nil {
			return "", fmt.Errorf(
				"%s: key %s: %w", errCtx, key, err,
			)
		}

		sb.Write(compacted.Bytes())
	}

	if !wrote {
		if len(im.keys) > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(`"integrity":`)
		sb.Write(integ)
	}

	sb.WriteByte('}')

	return sb.String(), nil
}

// marshalPairs emits the integrity map as a compact JSON
// object in pair order.
func marshalPairs(
	pairs []IntegrityPair,
) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for idx, pa := range pairs {
		if idx > 0 {
			buf.WriteByte(',')
		}

		keyJSON, err := json.Marshal(pa.Reference)
		if err != nil {
			return nil, err
		}

		valJSON, err := json.Marshal(pa.Value)
		if err != nil {
			return nil, err
		}

		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
