package types

import "errors"

// Domain errors for preset validation
var (
	ErrUnknownFileType   = errors.New("unknown file type preset")
	ErrUnknownSizePreset = errors.New("unknown size preset")
	ErrUnknownDatePreset = errors.New("unknown date preset")
)
