// Package assets holds the default schemas and prompt templates shipped with
// the binary.
package assets

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed schemas/*.json prompts/*.md
var files embed.FS

const (
	OutputSchema = "schemas/output.schema.json"
	IntakeSchema = "schemas/intake.schema.json"
	SystemPrompt = "prompts/system.md"
	UserTemplate = "prompts/user_template.md"
)

// Read returns an embedded file by its asset name.
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}

// ReadOrDefault reads path from disk and falls back to the embedded asset
// when the file does not exist.
func ReadOrDefault(path, asset string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return files.ReadFile(asset)
}

// WriteAll copies every embedded asset under dir, skipping files that
// already exist. It returns the paths it wrote.
func WriteAll(dir string) ([]string, error) {
	var written []string
	err := fs.WalkDir(files, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(dst); err == nil {
			return nil
		}
		data, err := files.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		written = append(written, dst)
		return nil
	})
	return written, err
}
