package core

import "fmt"

// ConfigError signals a fatal misconfiguration discovered at start-up: a
// missing or malformed profile file, loci file, or threshold file, or a
// profile whose width disagrees with the scheme's locus count.
type ConfigError struct {
	File   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.File, e.Reason)
}

// ContentionError is returned when another process already holds the
// single-writer lock for this (directory, scheme) pair.
type ContentionError struct {
	LockPath  string
	HolderPID int
}

func (e *ContentionError) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("already running (lock %s held by pid %d)", e.LockPath, e.HolderPID)
	}
	return fmt.Sprintf("already running (lock %s held)", e.LockPath)
}

// InvariantError marks a bug: an internal assumption the algorithm relies on
// was violated (e.g. an empty batch surviving the missing-data filter, or a
// distance kernel denominator propagating uncaught). These are never
// recovered from silently.
type InvariantError struct {
	Where string
	Why   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated in %s: %s", e.Where, e.Why)
}
