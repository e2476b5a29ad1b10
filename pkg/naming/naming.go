package naming

import (
	"strings"

	"github.com/google/uuid"
)

// IDGenerator produces collision-resistant identifiers for staged and persisted files.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUIDs, 122 random bits each.
type UUIDGenerator struct{}

// NewUUIDGenerator creates the default identifier source
func NewUUIDGenerator() IDGenerator {
	return UUIDGenerator{}
}

// NewID returns a fresh random UUID string
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Extension returns the text after the final "." of a claimed filename,
// or "" when the name has no dot or ends with one.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return filename[i+1:]
}

// FileName joins prefix, id and extension as "<prefix>_<id>[.<ext>]".
func FileName(prefix, id, ext string) string {
	name := prefix + "_" + id
	if ext != "" {
		name += "." + ext
	}
	return name
}
