package domain

import "errors"

// Load-level failures. Callers match them with errors.Is; row-level problems
// never surface as errors.
var (
	ErrFileNotFound = errors.New("accident source not found")
	ErrParse        = errors.New("accident source is malformed")
	ErrEmptyDataset = errors.New("no accident records survived cleaning")
)
