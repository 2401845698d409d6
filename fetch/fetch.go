package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// allowedContentTypes are the content-type substrings
// accepted from remote responses.
var allowedContentTypes = []string{
	"text/javascript",
	"application/javascript",
	"application/x-javascript",
	"text/css",
	"text/plain",
}

// Fetcher retrieves a remote resource. Implementations
// return the response body and the content-type header
// value.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		url string,
	) (body []byte, contentType string, err error)
}

// defaultClient bounds remote fetches so a hung server
// cannot stall a conversion forever.
var defaultClient = &http.Client{
	Timeout: 30 * time.Second,
}

// HTTPFetcher is the default Fetcher. It issues a plain
// GET with default headers and fails on non-2xx status.
type HTTPFetcher struct {
	// Client overrides the default 30s-timeout client
	// when non-nil.
	Client *http.Client
}

// Fetch issues a GET request to url and returns the body
// and content-type header.
func (hf *HTTPFetcher) Fetch(
	ctx context.Context,
	url string,
) ([]byte, string, error) {
	client := hf.Client
	if client == nil {
		client = defaultClient
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, url, nil,
	)
	if err != nil {
		return nil, "", fmt.Errorf(
			"failed to fetch %s: %w", url, err,
		)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf(
			"failed to fetch %s: %w", url, err,
		)
	}

	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // best-effort close
	}()

	if resp.StatusCode < http.StatusOK ||
		resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", fmt.Errorf(
			"failed to fetch %s: status %s",
			url, resp.Status,
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf(
			"failed to fetch %s: reading body: %w",
			url, err,
		)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// Resolver turns resource references into bytes according
// to the base directory, base URL, and remote policy of
// one conversion run.
type Resolver struct {
	// BaseDir is the directory local references resolve
	// against.
	BaseDir string

	// BaseURL, when set, remaps remote-looking
	// references that start with it onto BaseDir.
	BaseURL string

	// NoRemote refuses network fetches.
	NoRemote bool

	// Fetcher is the remote capability. Nil means the
	// default HTTPFetcher.
	Fetcher Fetcher
}

// GetContent resolves ref to raw bytes. Remote-looking
// references under BaseURL are read locally after prefix
// stripping; other remote references are fetched unless
// NoRemote is set. Everything else is read from the local
// filesystem.
//
// Prefix stripping is plain string surgery followed by
// filepath.Join; a reference whose stripped remainder
// contains ".." can still escape BaseDir. Callers feeding
// untrusted documents should vet references themselves.
func (r *Resolver) GetContent(
	ctx context.Context,
	ref string,
) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") {
		if r.BaseURL != "" &&
			strings.HasPrefix(ref, r.BaseURL) {
			return r.readLocal(ref)
		}

		if r.NoRemote {
			return nil, fmt.Errorf(
				"Remote sri resources not allowed: %s",
				ref,
			)
		}

		return r.fetchRemote(ctx, ref)
	}

	return r.readLocal(ref)
}

// localPath maps ref onto the local filesystem. The base
// URL is tried with a trailing slash first, then verbatim;
// whichever matches is stripped, along with one leading
// "/" of the remainder.
func (r *Resolver) localPath(ref string) string {
	normalized := r.BaseURL
	if normalized != "" &&
		!strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	rest := ref

	switch {
	case normalized != "" &&
		strings.HasPrefix(ref, normalized):
		rest = ref[len(normalized):]
	case r.BaseURL != "" &&
		strings.HasPrefix(ref, r.BaseURL):
		rest = ref[len(r.BaseURL):]
	}

	rest = strings.TrimPrefix(rest, "/")

	return filepath.Join(r.BaseDir, rest)
}

func (r *Resolver) readLocal(ref string) ([]byte, error) {
	pa := r.localPath(ref)

	content, err := os.ReadFile(pa) //nolint:gosec // path derives from the document by design
	if err != nil {
		return nil, fmt.Errorf(
			"failed to read file %s: %w", pa, err,
		)
	}

	return content, nil
}

func (r *Resolver) fetchRemote(
	ctx context.Context,
	ref string,
) ([]byte, error) {
	fe := r.Fetcher
	if fe == nil {
		fe = &HTTPFetcher{}
	}

	body, contentType, err := fe.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !contentTypeAllowed(contentType) {
		return nil, fmt.Errorf(
			"unexpected content type %q for %s",
			contentType, ref,
		)
	}

	return body, nil
}

// contentTypeAllowed reports whether the content-type
// header contains one of the accepted type substrings.
func contentTypeAllowed(contentType string) bool {
	for _, al := range allowedContentTypes {
		if strings.Contains(contentType, al) {
			return true
		}
	}

	return false
}
