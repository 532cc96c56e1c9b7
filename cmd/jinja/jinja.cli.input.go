package main

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// loadData decodes the render context from an inline JSON string or a data
// file. YAML is a superset of JSON, so one decoder serves both.
func loadData(inline, filePath string) (map[string]any, error) {
	var raw []byte

	switch {
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		raw = data
	case inline != "":
		raw = []byte(inline)
	default:
		return make(map[string]any), nil
	}

	var decoded any
	if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&decoded); err != nil {
		if errors.Is(err, io.EOF) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	switch v := decoded.(type) {
	case nil:
		return make(map[string]any), nil
	case map[string]any:
		return v, nil
	default:
		return nil, errors.New(ErrMsgDataNotMapping)
	}
}
