package domain

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid conversion request")
	ErrSourceNotFound        = errors.New("source file not found")
	ErrPathOutsideRoot       = errors.New("path outside server root")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrUnrecognizedFormat    = errors.New("unrecognized format")
	ErrLossyConversion       = errors.New("conversion would drop data")
	ErrRender                = errors.New("graph render failed")
)
