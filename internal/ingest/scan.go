package ingest

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"wsideid/internal/manifest"
	"wsideid/internal/redact"
	"wsideid/internal/services"
)

// DiscoveredFile is one candidate slide found in the import location.
type DiscoveredFile struct {
	Path string
	Name string
	Size int64
}

// ImageID returns the identifier used to match the file against manifest
// rows: the base name without its extension.
func (f DiscoveredFile) ImageID() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// scanResult splits the import location into manifests and image candidates.
type scanResult struct {
	Manifests []string
	Files     []DiscoveredFile
}

var imageExtensions = map[string]bool{
	".svs":  true,
	".ndpi": true,
	".scn":  true,
	".tif":  true,
	".tiff": true,
	".bif":  true,
}

// scanImport walks the import directory collecting manifests and slide
// candidates. Files that are neither are ignored.
func scanImport(dir string) (*scanResult, error) {
	result := &scanResult{}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if manifest.IsManifestFile(name) {
			result.Manifests = append(result.Manifests, path)
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		result.Files = append(result.Files, DiscoveredFile{Path: path, Name: name, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "scan",
			fmt.Sprintf("walk import directory %q", dir), err)
	}
	return result, nil
}

// tiffMagics are the classic and BigTIFF byte-order headers. Every supported
// whole-slide container is TIFF-based, so anything else is unusable.
var tiffMagics = [][]byte{
	{0x49, 0x49, 0x2a, 0x00},
	{0x4d, 0x4d, 0x00, 0x2a},
	{0x49, 0x49, 0x2b, 0x00},
	{0x4d, 0x4d, 0x00, 0x2b},
}

// sniffSlide verifies that the file starts with a TIFF header.
func sniffSlide(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrDecode, "ingest", "sniff", path, err)
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := f.Read(header); err != nil {
		return services.Wrap(services.ErrDecode, "ingest", "sniff",
			fmt.Sprintf("%s: read header", path), err)
	}
	for _, magic := range tiffMagics {
		if bytes.Equal(header, magic) {
			return nil
		}
	}
	return services.Wrap(services.ErrDecode, "ingest", "sniff",
		fmt.Sprintf("%s: not a supported slide container", path), nil)
}

// formatForName guesses the vendor format from the file extension. Metadata
// inspection can refine this later; the guess only selects which
// format-specific pattern sets apply.
func formatForName(name string) redact.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".svs":
		return redact.FormatAperio
	case ".ndpi":
		return redact.FormatHamamatsu
	case ".tif", ".tiff":
		return redact.FormatOMETiff
	default:
		return redact.FormatNone
	}
}
