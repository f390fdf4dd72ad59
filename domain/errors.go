package domain

import (
	"github.com/cockroachdb/errors"
)

// Lookup sentinels translated from client specific errors by the repositories.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// Failure taxonomy. Errors are classified with errors.Mark so the original
// cause stays inspectable.
var (
	// ErrTransientRemote aborts a whole tick; it is retried on the next one.
	ErrTransientRemote = errors.New("transient remote error")
	// ErrPerObject fails a single remote object; the tick continues.
	ErrPerObject = errors.New("object error")
	// ErrProcessing fails a single raw artifact in the clean stage.
	ErrProcessing = errors.New("processing error")
	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)

func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransientRemote)
}

func MarkPerObject(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPerObject)
}

func MarkProcessing(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrProcessing)
}

// ConfigError builds an ErrConfiguration marked error.
func ConfigError(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func IsTransientRemote(err error) bool { return errors.Is(err, ErrTransientRemote) }
func IsPerObject(err error) bool       { return errors.Is(err, ErrPerObject) }
func IsProcessing(err error) bool      { return errors.Is(err, ErrProcessing) }
func IsConfiguration(err error) bool   { return errors.Is(err, ErrConfiguration) }
func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool    { return errors.Is(err, ErrUnauthorized) }
