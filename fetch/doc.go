// Package fetch resolves resource references to raw bytes. References that
// look remote (http:// or https://) are remapped to local files when they
// fall under the configured base URL, refused when remote access is
// disallowed, and fetched over plain HTTP GET otherwise. All other
// references are read from the local filesystem relative to the base
// directory. The remote capability is an injectable Fetcher so tests can
// substitute deterministic fakes.
package fetch
