package convert_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/sritool/convert"
	"github.com/byte4ever/sritool/integrity"
)

// writeFile creates a file under dir and returns its path.
func writeFile(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

// fakeFetcher serves canned remote bodies.
type fakeFetcher struct {
	body        string
	contentType string
	calls       int
}

func (ff *fakeFetcher) Fetch(
	_ context.Context,
	_ string,
) ([]byte, string, error) {
	ff.calls++

	return []byte(ff.body), ff.contentType, nil
}

func TestConvert_injects_integrity_and_crossorigin(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "console.log(1);")

	want := integrity.Digest([]byte("console.log(1);"))

	got, err := convert.Convert(
		context.Background(),
		`<script src="/app.js"/>`,
		convert.Options{BaseDir: dir},
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		fmt.Sprintf(
			`<script src="/app.js" integrity="%s" crossorigin="anonymous"/>`,
			want,
		),
		got,
	)
}

func TestConvert_paired_script_keeps_closing_tag(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "x")

	want := integrity.Digest([]byte("x"))

	got, err := convert.Convert(
		context.Background(),
		`<p>before</p><script src="app.js"></script><p>after</p>`,
		convert.Options{BaseDir: dir},
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		fmt.Sprintf(
			`<p>before</p><script src="app.js" integrity="%s" crossorigin="anonymous"></script><p>after</p>`,
			want,
		),
		got,
	)
}

func TestConvert_skips_ineligible_tags(t *testing.T) {
	t.Parallel()

	doc := `<link rel="author" href="humans.txt">` +
		`<meta charset="utf-8">` +
		`<script>var x = 1;</script>`

	got, err := convert.Convert(
		context.Background(), doc,
		convert.Options{BaseDir: t.TempDir()},
	)

	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestConvert_rewrites_duplicate_identical_tags(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.js", "dup")

	got, err := convert.Convert(
		context.Background(),
		`<script src="a.js"/><script src="a.js"/>`,
		convert.Options{BaseDir: dir},
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		2,
		strings.Count(got, `crossorigin="anonymous"`),
	)
}

func TestConvert_round_trip_verifies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(
		filepath.Join(dir, "example"), 0o750,
	))
	writeFile(t, dir, "example/app.js", "console.log(1);")

	doc := `<html><script src="example/app.js"></script></html>`

	converted, err := convert.Convert(
		context.Background(), doc,
		convert.Options{BaseDir: dir},
	)
	require.NoError(t, err)

	verified, err := convert.Convert(
		context.Background(), converted,
		convert.Options{BaseDir: dir, Verify: true},
	)

	require.NoError(t, err)
	assert.Equal(t, converted, verified)
}

func TestConvert_verify_missing_hash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "abc")

	want := integrity.Digest([]byte("abc"))

	_, err := convert.Convert(
		context.Background(),
		`<script src="app.js"></script>`,
		convert.Options{BaseDir: dir, Verify: true},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing hash")
	assert.Contains(t, err.Error(), want)
}

func TestConvert_verify_invalid_hash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "abc")

	want := integrity.Digest([]byte("abc"))

	_, err := convert.Convert(
		context.Background(),
		`<script src="app.js" integrity="bad-hash"></script>`,
		convert.Options{BaseDir: dir, Verify: true},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid hash")
	assert.Contains(t, err.Error(), "bad-hash")
	assert.Contains(t, err.Error(), want)
}

func TestConvert_failure_aborts_whole_document(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "good.js", "ok")

	got, err := convert.Convert(
		context.Background(),
		`<script src="good.js"/><script src="missing.js"/>`,
		convert.Options{BaseDir: dir},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.js")
	assert.Empty(t, got)
}

func TestConvert_import_map_appends_integrity(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "console.log(1);")

	want := integrity.Digest([]byte("console.log(1);"))

	got, err := convert.Convert(
		context.Background(),
		`<script type="importmap">{"imports":{"app":"./app.js"}}</script>`,
		convert.Options{BaseDir: dir},
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		fmt.Sprintf(
			`<script type="importmap">{"imports":{"app":"./app.js"},"integrity":{"./app.js":"%s"}}</script>`,
			want,
		),
		got,
	)
}

func TestConvert_import_map_verify_against_recorded(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "v1")

	want := integrity.Digest([]byte("v1"))

	doc := fmt.Sprintf(
		`<script type="importmap">{"imports":{"app":"./app.js"},"integrity":{"./app.js":"%s"}}</script>`,
		want,
	)

	got, err := convert.Convert(
		context.Background(), doc,
		convert.Options{BaseDir: dir, Verify: true},
	)

	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestConvert_import_map_verify_stale_hash(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "app.js", "v2")

	doc := `<script type="importmap">` +
		`{"imports":{"app":"./app.js"},` +
		`"integrity":{"./app.js":"sha384-stale"}}` +
		`</script>`

	_, err := convert.Convert(
		context.Background(), doc,
		convert.Options{BaseDir: dir, Verify: true},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid hash")
	assert.Contains(t, err.Error(), "sha384-stale")
}

func TestConvert_import_map_invalid_json(t *testing.T) {
	t.Parallel()

	_, err := convert.Convert(
		context.Background(),
		`<script type="importmap">not json</script>`,
		convert.Options{BaseDir: t.TempDir()},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestConvert_remote_resource_via_fetcher(
	t *testing.T,
) {
	t.Parallel()

	ff := &fakeFetcher{
		body:        "remote();",
		contentType: "text/javascript",
	}

	want := integrity.Digest([]byte("remote();"))

	got, err := convert.Convert(
		context.Background(),
		`<script src="https://cdn.example.com/r.js"></script>`,
		convert.Options{
			BaseDir: t.TempDir(),
			Fetcher: ff,
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 1, ff.calls)
	assert.Contains(t, got, want)
}

func TestConvert_no_remote_aborts_with_reference(
	t *testing.T,
) {
	t.Parallel()

	_, err := convert.Convert(
		context.Background(),
		`<script src="https://cdn.example.com/r.js"></script>`,
		convert.Options{
			BaseDir:  t.TempDir(),
			NoRemote: true,
		},
	)

	require.Error(t, err)
	assert.Contains(
		t,
		err.Error(),
		"Remote sri resources not allowed",
	)
	assert.Contains(
		t, err.Error(), "https://cdn.example.com/r.js",
	)
}

func TestEngine_entries_record_processed_resources(
	t *testing.T,
) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.js", "a")
	writeFile(t, dir, "b.css", "b")

	eng := convert.New(convert.Options{BaseDir: dir})

	_, err := eng.Convert(
		context.Background(),
		`<script src="a.js"></script>`+
			`<link rel="stylesheet" href="b.css">`,
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		[]convert.Entry{
			{
				Resource:  "a.js",
				Integrity: integrity.Digest([]byte("a")),
			},
			{
				Resource:  "b.css",
				Integrity: integrity.Digest([]byte("b")),
			},
		},
		eng.Entries(),
	)
}

var errBoom = errors.New("boom")

// erroringFetcher always fails.
type erroringFetcher struct{}

func (erroringFetcher) Fetch(
	_ context.Context,
	_ string,
) ([]byte, string, error) {
	return nil, "", errBoom
}

func TestConvert_fetch_error_propagates(t *testing.T) {
	t.Parallel()

	_, err := convert.Convert(
		context.Background(),
		`<script src="https://cdn.example.com/r.js"></script>`,
		convert.Options{
			BaseDir: t.TempDir(),
			Fetcher: erroringFetcher{},
		},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}
