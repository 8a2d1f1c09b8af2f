package ports

import "debforge/internal/types"

// DscReader parses and validates source-package description files.
type DscReader interface {
	// Parse reads the description at path.
	Parse(path string) (types.Dsc, error)

	// Verify re-checks every member's SHA-256 digest against the files
	// next to the description. A missing member or a mismatched digest
	// is an error.
	Verify(path string) error
}
