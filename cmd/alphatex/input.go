package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/alphatex-go"
)

var errNoInput = errors.New("no input: pass a file, '-' for stdin, or --text")

// readInput returns inline text when set, otherwise the contents of path
// ("-" reads stdin).
func readInput(path string, inline string, stdin io.Reader) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	switch strings.TrimSpace(path) {
	case "":
		return nil, errNoInput
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// outputPath derives a sibling path of in with the given extension.
func outputPath(in string, ext string) string {
	if in == "" || in == "-" {
		return "out" + ext
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + ext
}

// loadEvents translates src, or decodes it as a JSON event list written
// by "translate" when asJSON is set.
func loadEvents(src []byte, asJSON bool) ([]alphatex.Event, error) {
	if asJSON {
		events, err := alphatex.ReadJSON(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}
		return events, nil
	}
	res, err := newTranslator().Translate(src)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}
