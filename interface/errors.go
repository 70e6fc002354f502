package iface

import "errors"

var (
	ErrInvalidExtent     = errors.New("invalid image extent")
	ErrModelFormat       = errors.New("malformed model")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNotMapped         = errors.New("route has not been mapped")
	ErrNotClassified     = errors.New("route has not been classified")
	ErrInvalidGrade      = errors.New("grade must be between V2 and V6")
	ErrSelectionMismatch = errors.New("selection flags do not match boxes")
)
