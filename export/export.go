// Package export renders a research project into shareable documents:
// a markdown report with embedded chart images, or a raw JSON dump.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mosaicsci/inquiry/workflow"
)

// Format identifies an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatMarkdown: {
		Name:        FormatMarkdown,
		MIMEType:    "text/markdown",
		Extension:   ".md",
		Description: "Markdown report with embedded chart images",
	},
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "Complete project document as JSON",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ListFormats returns the supported format names in stable order.
func ListFormats() []Format {
	formats := make([]Format, 0, len(FormatRegistry))
	for f := range FormatRegistry {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Export renders the project in the given format.
func Export(p *workflow.Project, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		doc, err := RenderMarkdown(p)
		if err != nil {
			return nil, err
		}
		return []byte(doc), nil
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile exports the project to a file, deriving the extension from the
// format when path has none.
func WriteFile(p *workflow.Project, format Format, path string) (string, error) {
	data, err := Export(p, format)
	if err != nil {
		return "", err
	}

	info, _ := GetFormatInfo(format)
	if filepath.Ext(path) == "" {
		path += info.Extension
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
