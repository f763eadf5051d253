package transplant

import (
	"errors"

	"github.com/james-see/octatools/pkg/octatrack"
)

// Errors returned by planning and copying. Detailed errors wrap one of these.
var (
	ErrMissingSourceAudio  = errors.New("missing source audio file")
	ErrInsufficientSlots   = errors.New("insufficient free sample slots")
	ErrDestinationModified = errors.New("destination bank has been modified, use force to overwrite")
	ErrVersionMismatch     = errors.New("unsupported project OS version")
	ErrInvalidIndex        = errors.New("invalid bank index, must be between 1 and 16")

	// ErrFormat is returned for malformed project or bank files
	ErrFormat = octatrack.ErrFormat
)
