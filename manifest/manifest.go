package manifest

import (
	"fmt"
	"io"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/sritool/convert"
)

// DefaultFormat is used when no format string is given.
const DefaultFormat = "{resource} {integrity}"

// Write renders one line per entry to w using format.
// Unknown placeholders are preserved as-is.
func Write(
	w io.Writer,
	entries []convert.Entry,
	format string,
) error {
	const errCtx = "writing manifest"

	if format == "" {
		format = DefaultFormat
	}

	for _, en := range entries {
		line := fasttemplate.ExecuteStringStd(
			format, "{", "}",
			map[string]interface{}{
				"resource":  en.Resource,
				"integrity": en.Integrity,
			},
		)

		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	}

	return nil
}
