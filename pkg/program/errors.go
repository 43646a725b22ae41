package program

import "errors"

var (
	ErrUnknownSource = errors.New("program: unknown source")
	ErrCycle         = errors.New("program: table dependency cycle")
	ErrNoStore       = errors.New("program: persistent state table without a store")
	ErrNoImage       = errors.New("program: image data without an image")
	ErrUnknownValue  = errors.New("program: unknown value")
	ErrNotVariable   = errors.New("program: value is not a variable")
	ErrUnknownTable  = errors.New("program: unknown table")
	ErrUnknownInput  = errors.New("program: unknown input")
)
