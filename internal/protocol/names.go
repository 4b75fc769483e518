package protocol

import (
	"errors"
	"strings"
)

const (
	// DefaultRoom is joined on login and can never be left.
	DefaultRoom = "default"

	// Separator joins the two participant names of a whisper room and is
	// therefore banned from usernames.
	Separator = "."

	// MaxNameLen bounds usernames in bytes.
	MaxNameLen = 32
)

var (
	// ErrIllegalName - username is empty or contains the whisper separator.
	ErrIllegalName = errors.New("protocol: illegal username")

	// ErrNameLength - username exceeds MaxNameLen.
	ErrNameLength = errors.New("protocol: illegal username length")
)

// ValidateName reports whether name may identify a user.
func ValidateName(name string) error {
	if name == "" || strings.Contains(name, Separator) {
		return ErrIllegalName
	}
	if len(name) > MaxNameLen {
		return ErrNameLength
	}
	return nil
}

// WhisperRoom returns the canonical private room name for two users. The
// participants are ordered lexicographically so both directions resolve to
// the same room.
func WhisperRoom(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + Separator + b
}

// IsWhisperRoom reports whether room names a private two-party room.
func IsWhisperRoom(room string) bool {
	return strings.Contains(room, Separator)
}

// WhisperParties splits a whisper room name into its participants.
// ok is false for public room names.
func WhisperParties(room string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(room, Separator)
	return a, b, ok
}
