package constants

import (
	"path/filepath"
	"strings"
)

// Format is the extraction strategy picked for an upload.
type Format string

const (
	PDF         Format = "PDF"
	DOCX        Format = "DOCX"
	IMAGE       Format = "IMAGE"
	UNSUPPORTED Format = "UNSUPPORTED"
)

// extToFormat holds the accepted upload extensions.
var extToFormat = map[string]Format{
	"pdf":  PDF,
	"docx": DOCX,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat classifies a bare or dotted extension.
func MapExtToFormat(ext string) Format {
	if f, ok := extToFormat[NormalizeExt(ext)]; ok {
		return f
	}
	return UNSUPPORTED
}

// DetectFormat classifies by suffix only. Content is never sniffed, so a
// mislabelled file is handled as whatever its name claims.
func DetectFormat(filename string) Format {
	return MapExtToFormat(filepath.Ext(strings.TrimSpace(filename)))
}
