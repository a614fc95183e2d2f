// internal/farbling/level.go
package farbling

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLevel is returned when a farbling level name cannot be parsed.
var ErrUnknownLevel = errors.New("unknown farbling level")

// Level is the configured farbling intensity for a browsing context.
//
// The levels are not an ordered scale. Maximum is defined as its own destructive
// transform followed by everything Balanced does.
type Level uint8

const (
	// Off returns real data untouched.
	Off Level = iota
	// Balanced perturbs data while keeping it plausible.
	Balanced
	// Maximum discards or replaces real data, then applies Balanced on top.
	Maximum
)

var levelNames = map[Level]string{
	Off:      "off",
	Balanced: "balanced",
	Maximum:  "maximum",
}

// String returns the lowercase name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return Off, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
