package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SwapURL replaces the first verbatim occurrence of oldURL with newURL in
// the source-list document at path, preserving all surrounding formatting.
// Both URLs are matched as JSON string literals, quotes included, so an
// unrelated substring can never be rewritten.
//
// Returns (false, nil) when the old URL is not present: the swap simply did
// not apply this cycle. The write is atomic: the new document goes to a temp
// file in the same directory, then renames over the original, so a crash
// can never leave a half-written config on disk.
func SwapURL(path, oldURL, newURL string) (bool, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read config: %w", err)
	}

	oldLit, err := jsonLiteral(oldURL)
	if err != nil {
		return false, fmt.Errorf("encode url: %w", err)
	}
	newLit, err := jsonLiteral(newURL)
	if err != nil {
		return false, fmt.Errorf("encode url: %w", err)
	}

	if !bytes.Contains(text, oldLit) {
		return false, nil
	}
	text = bytes.Replace(text, oldLit, newLit, 1)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return false, fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("replace config: %w", err)
	}
	return true, nil
}

// jsonLiteral encodes s as a JSON string literal without HTML escaping, so
// the bytes match what a hand-authored document stores for URLs containing
// '&' or similar characters.
func jsonLiteral(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
