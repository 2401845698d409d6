package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/byte4ever/sritool/fetch"
	"github.com/byte4ever/sritool/importmap"
	"github.com/byte4ever/sritool/integrity"
	"github.com/byte4ever/sritool/tag"
)

// Options holds the settings for one conversion run.
type Options struct {
	// BaseDir is the directory local references resolve
	// against (typically the input file's directory).
	BaseDir string

	// BaseURL remaps remote-looking references that
	// start with it onto BaseDir.
	BaseURL string

	// NoRemote refuses network fetches.
	NoRemote bool

	// Verify checks existing integrity values against
	// freshly computed ones instead of blindly
	// overwriting. Attributes are still normalized on
	// success.
	Verify bool

	// Fetcher overrides the default HTTP fetcher
	// (used by tests).
	Fetcher fetch.Fetcher
}

// Entry records one processed resource and its computed
// integrity value, in processing order.
type Entry struct {
	Resource  string
	Integrity string
}

// Engine converts documents according to a fixed set of
// options. It is not safe for concurrent use: Entries
// reports the resources of the most recent Convert call.
type Engine struct {
	opts     Options
	resolver *fetch.Resolver
	entries  []Entry
}

// New builds an engine from opts.
func New(opts Options) *Engine {
	return &Engine{
		opts: opts,
		resolver: &fetch.Resolver{
			BaseDir:  opts.BaseDir,
			BaseURL:  opts.BaseURL,
			NoRemote: opts.NoRemote,
			Fetcher:  opts.Fetcher,
		},
	}
}

// Convert is a convenience wrapper around New and
// Engine.Convert for one-shot conversions.
func Convert(
	ctx context.Context,
	doc string,
	opts Options,
) (string, error) {
	return New(opts).Convert(ctx, doc)
}

// Convert rewrites doc and returns the new document text.
// Ineligible tags are passed through untouched. Any
// failure aborts the conversion with an error naming the
// offending reference; no partial output is returned.
func (e *Engine) Convert(
	ctx context.Context,
	doc string,
) (string, error) {
	const errCtx = "converting document"

	e.entries = nil

	var sb strings.Builder

	last := 0

	for _, occ := range tag.Scan(doc) {
		rewritten, changed, err := e.processTag(ctx, occ)
		if err != nil {
			return "", fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		if !changed {
			continue
		}

		sb.WriteString(doc[last:occ.Start])
		sb.WriteString(rewritten)

		last = occ.End
	}

	sb.WriteString(doc[last:])

	return sb.String(), nil
}

// Entries returns the resources processed by the most
// recent Convert call, in processing order.
func (e *Engine) Entries() []Entry {
	return e.entries
}

// processTag dispatches one occurrence: import maps take
// the body-rewrite path, eligible referencing tags take
// the attribute path, everything else is skipped.
func (e *Engine) processTag(
	ctx context.Context,
	occ tag.Occurrence,
) (string, bool, error) {
	if occ.Kind == tag.Script &&
		tag.IsImportMapTag(occ.Raw) {
		rewritten, err := e.processImportMap(ctx, occ.Raw)
		if err != nil {
			return "", false, err
		}

		return rewritten, true, nil
	}

	if occ.Ref == "" || !tag.IsSRITag(occ.Raw) {
		return "", false, nil
	}

	content, err := e.resolver.GetContent(ctx, occ.Ref)
	if err != nil {
		return "", false, fmt.Errorf(
			"processing %s: %w", occ.Ref, err,
		)
	}

	value := integrity.Digest(content)

	if e.opts.Verify {
		if err := verifyAttr(
			occ.Raw, occ.Ref, value,
		); err != nil {
			return "", false, err
		}
	}

	rewritten := tag.WithAttr(occ.Raw, "integrity", value)
	rewritten = tag.WithAttr(
		rewritten, "crossorigin", "anonymous",
	)

	e.entries = append(e.entries, Entry{
		Resource:  occ.Ref,
		Integrity: value,
	})

	return rewritten, true, nil
}

// verifyAttr checks the tag's existing integrity attribute
// against the freshly computed value.
func verifyAttr(raw string, ref string, want string) error {
	found, ok := tag.Attr(raw, "integrity")
	if !ok {
		return fmt.Errorf(
			"Missing hash for %s, expected %s",
			ref, want,
		)
	}

	if found != want {
		return fmt.Errorf(
			"Invalid hash for %s: found %s, expected %s",
			ref, found, want,
		)
	}

	return nil
}

// processImportMap resolves every imports reference,
// rebuilds the integrity map, and substitutes the
// reserialized body between the original opening and
// closing tags.
func (e *Engine) processImportMap(
	ctx context.Context,
	raw string,
) (string, error) {
	open, body, closing, ok := tag.SplitPaired(raw)
	if !ok {
		return "", fmt.Errorf(
			"failed to parse import map: missing body in %s",
			raw,
		)
	}

	im, err := importmap.Parse(body)
	if err != nil {
		return "", fmt.Errorf("in %s: %w", raw, err)
	}

	var pairs []importmap.IntegrityPair

	seen := make(map[string]bool)

	for _, bi := range im.Imports {
		if seen[bi.Reference] {
			continue
		}

		seen[bi.Reference] = true

		content, err := e.resolver.GetContent(
			ctx, bi.Reference,
		)
		if err != nil {
			return "", fmt.Errorf(
				"processing %s: %w", bi.Reference, err,
			)
		}

		value := integrity.Digest(content)

		if e.opts.Verify {
			if err := verifyRecorded(
				im.Integrity, bi.Reference, value,
			); err != nil {
				return "", err
			}
		}

		pairs = append(pairs, importmap.IntegrityPair{
			Reference: bi.Reference,
			Value:     value,
		})

		e.entries = append(e.entries, Entry{
			Resource:  bi.Reference,
			Integrity: value,
		})
	}

	newBody, err := im.Serialize(pairs)
	if err != nil {
		return "", err
	}

	return open + newBody + closing, nil
}

// verifyRecorded checks a reference's previously recorded
// integrity value against the freshly computed one.
func verifyRecorded(
	recorded map[string]string,
	ref string,
	want string,
) error {
	found, ok := recorded[ref]
	if !ok {
		return fmt.Errorf(
			"Missing hash for %s, expected %s",
			ref, want,
		)
	}

	if found != want {
		return fmt.Errorf(
			"Invalid hash for %s: found %s, expected %s",
			ref, found, want,
		)
	}

	return nil
}
