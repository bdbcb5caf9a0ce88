package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// AllowedExt checks if a file extension maps to an extraction strategy.
func AllowedExt(ext string) bool {
	return constants.MapExtToFormat(ext) != constants.UNSUPPORTED
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
