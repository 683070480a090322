package command

import "errors"

// Parse errors that can be checked with errors.Is(). They distinguish
// fatal argument problems (the whole command is dropped) from the
// lenient disk-token path, which never produces an error at all.
var (
	// ErrEmptyLine is returned for blank input; the caller must send
	// no response and await the next line.
	ErrEmptyLine = errors.New("empty line")

	// ErrUnknownCommand is returned when the first token is not in the
	// command vocabulary.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArguments is returned when a command has fewer
	// arguments than its mandatory minimum.
	ErrMissingArguments = errors.New("not enough arguments")

	// ErrBadNumber is returned when a mandatory numeric argument does
	// not parse as an integer.
	ErrBadNumber = errors.New("invalid numeric parameter")
)
