// Package main provides the sritool CLI that rewrites an
// HTML document to carry Subresource Integrity attributes
// on its script and link tags.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/byte4ever/sritool/config"
	"github.com/byte4ever/sritool/convert"
	"github.com/byte4ever/sritool/manifest"
)

func run() error {
	const errCtx = "sritool"

	var (
		input          string
		output         string
		baseURL        string
		configPath     string
		manifestPath   string
		manifestFormat string
		noRemote       bool
		verify         bool
	)

	flag.StringVar(
		&input, "input", "",
		"input HTML file (default: stdin)",
	)

	flag.StringVar(
		&output, "output", "",
		"output file path (default: stdout)",
	)

	flag.StringVar(
		&baseURL, "base-url", "",
		"URL prefix remapped onto the input's directory",
	)

	flag.BoolVar(
		&noRemote, "no-remote", false,
		"refuse network fetches",
	)

	flag.BoolVar(
		&verify, "verify", false,
		"verify existing integrity values instead of overwriting",
	)

	flag.StringVar(
		&configPath, "config", "",
		"YAML config file (flags take precedence)",
	)

	flag.StringVar(
		&manifestPath, "manifest", "",
		"write one line per processed resource to this file",
	)

	flag.StringVar(
		&manifestFormat, "manifest-format",
		manifest.DefaultFormat,
		"manifest line layout ({resource}, {integrity})",
	)

	flag.Parse()

	if configPath != "" {
		cf, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		set := make(map[string]bool)
		flag.Visit(func(fl *flag.Flag) {
			set[fl.Name] = true
		})

		if !set["input"] {
			input = cf.Input
		}

		if !set["output"] {
			output = cf.Output
		}

		if !set["base-url"] {
			baseURL = cf.BaseURL
		}

		if !set["no-remote"] {
			noRemote = cf.NoRemote
		}

		if !set["verify"] {
			verify = cf.Verify
		}

		if !set["manifest"] {
			manifestPath = cf.Manifest
		}

		if !set["manifest-format"] &&
			cf.ManifestFormat != "" {
			manifestFormat = cf.ManifestFormat
		}
	}

	htmlText, baseDir, err := readInput(input)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	eng := convert.New(convert.Options{
		BaseDir:  baseDir,
		BaseURL:  baseURL,
		NoRemote: noRemote,
		Verify:   verify,
	})

	result, err := eng.Convert(
		context.Background(), htmlText,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := writeOutput(output, result); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if manifestPath != "" {
		if err := writeManifest(
			manifestPath, eng.Entries(), manifestFormat,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}

// readInput reads the document and determines the base
// directory local references resolve against: the input
// file's directory, or "." when reading stdin.
func readInput(input string) (string, string, error) {
	const errCtx = "reading input"

	if input == "" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf(
				"%s: reading stdin: %w", errCtx, err,
			)
		}

		return string(content), ".", nil
	}

	content, err := os.ReadFile(input) //nolint:gosec // path from CLI flag
	if err != nil {
		return "", "", fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return string(content), filepath.Dir(input), nil
}

// writeOutput writes the converted document to the named
// file, or to stdout followed by a newline.
func writeOutput(output string, result string) error {
	const errCtx = "writing output"

	if output != "" {
		err := os.WriteFile( //nolint:gosec // path from CLI flag
			output, []byte(result), 0o666,
		)
		if err != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return nil
	}

	if _, err := os.Stdout.WriteString(
		result + "\n",
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// writeManifest emits the processed-resource report.
func writeManifest(
	path string,
	entries []convert.Entry,
	format string,
) (retErr error) {
	const errCtx = "writing manifest file"

	fi, err := os.Create(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil &&
			retErr == nil {
			retErr = fmt.Errorf(
				"%s: %w", errCtx, closeErr,
			)
		}
	}()

	if err := manifest.Write(
		fi, entries, format,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
