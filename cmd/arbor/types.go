package main

// CLIResult is the JSON envelope written by --format ids and by commands
// that fail in a machine-readable format.
type CLIResult struct {
	Command string  `json:"command"`
	Results []int64 `json:"results,omitempty"`
	Count   int     `json:"count"`
	Error   string  `json:"error,omitempty"`
}
