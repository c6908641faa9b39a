// Package id provides ULID-based identifiers for host sessions.
//
// IDs are prefixed by kind ("sess_01J...") so log lines read without a
// lookup, and they sort by creation time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies one controller session (one shell connection or one
// headless run).
type SessionID string

// SessionPrefix tags session IDs.
const SessionPrefix = "sess"

// Generator generates ULIDs from a shared entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator reading entropy from r. Tests pass a
// deterministic reader.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{entropy: r}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a "prefix_ULID" string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

func (id SessionID) String() string { return string(id) }

// Valid reports whether id has the session prefix and a well-formed ULID.
func (id SessionID) Valid() bool {
	prefix, rest, ok := strings.Cut(string(id), "_")
	if !ok || prefix != SessionPrefix {
		return false
	}
	_, err := ulid.Parse(rest)
	return err == nil
}

// Timestamp extracts the creation time of a session ID.
func (id SessionID) Timestamp() (time.Time, error) {
	_, rest, ok := strings.Cut(string(id), "_")
	if !ok {
		return time.Time{}, fmt.Errorf("session id %q has no prefix", id)
	}
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
