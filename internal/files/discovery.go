package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds data files by extension
type Discovery struct {
	extensions map[string]struct{}
}

// NewDiscovery creates a discovery for the given extensions, e.g. ".csv".
// Matching is case-insensitive.
func NewDiscovery(extensions []string) *Discovery {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Discovery{extensions: exts}
}

// Supported reports whether name has one of the discovery's extensions.
func (d *Discovery) Supported(name string) bool {
	_, ok := d.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FindFiles lists the supported files directly inside dir, sorted by name.
// Office lock files ("~$report.xlsx") are skipped.
func (d *Discovery) FindFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !d.Supported(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Expand resolves paths in order. Directories contribute their supported
// files; everything else is returned as given, whatever its extension.
func (d *Discovery) Expand(paths []string) ([]FileInfo, error) {
	var out []FileInfo
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			out = append(out, FileInfo{
				Path:    p,
				Name:    filepath.Base(p),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
			continue
		}

		found, err := d.FindFiles(p)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}
