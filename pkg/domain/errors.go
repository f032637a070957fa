package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected command.
type ErrorKind string

// Command failure categories. All of them are recoverable: the caller is told
// why and nothing was committed.
const (
	KindIdentity   ErrorKind = "identity"   // unknown player, factory, card or proposal
	KindStage      ErrorKind = "stage"      // command issued in the wrong stage
	KindResource   ErrorKind = "resource"   // storage or ships below requirement
	KindSequencing ErrorKind = "sequencing" // out of turn, converter already used
	KindLegality   ErrorKind = "legality"   // rule violation such as running a must-lend converter as owner
)

// CommandError reports why a command was rejected.
type CommandError struct {
	Kind    ErrorKind
	Message string
}

// NewError constructs a CommandError.
func NewError(kind ErrorKind, msg string) *CommandError {
	return &CommandError{Kind: kind, Message: msg}
}

// Errorf constructs a CommandError with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *CommandError {
	return &CommandError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *CommandError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// IsKind reports whether err is a CommandError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return cmdErr.Kind == kind
}

// KindOf returns the kind of a CommandError, or the empty kind.
func KindOf(err error) ErrorKind {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind
	}
	return ""
}
