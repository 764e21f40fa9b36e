package knowledge

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed samples
var samples embed.FS

// SeedSamples writes the bundled change-management sample documents into dir,
// one subdirectory per category, and returns the written paths. Existing
// files with the same names are overwritten.
func SeedSamples(dir string) ([]string, error) {
	var written []string
	err := fs.WalkDir(samples, "samples", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("samples", filepath.FromSlash(path))
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := samples.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("write sample %s: %w", target, err)
		}
		written = append(written, target)
		return nil
	})
	return written, err
}
