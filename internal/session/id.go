package session

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// IDLength is the length of generated session ids (about 190 bits).
const IDLength = 32

// IDGenerator returns a new URL-safe session id on every call.
type IDGenerator func() string

// NewIDGenerator creates a generator of ids with the given length.
func NewIDGenerator(length int) (IDGenerator, error) {
	gen, err := nanoid.Standard(length)
	if err != nil {
		return nil, fmt.Errorf("session: id generator: %w", err)
	}

	return IDGenerator(gen), nil
}

var defaultIDs = mustIDGenerator(IDLength)

// NewID returns a new session id of IDLength characters.
func NewID() string {
	return defaultIDs()
}

func mustIDGenerator(length int) IDGenerator {
	gen, err := NewIDGenerator(length)
	if err != nil {
		panic(err)
	}

	return gen
}
