package todo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator returns a fresh task id on each call.
type IDGenerator func() string

// IDFormat selects how new task ids are generated.
type IDFormat string

const (
	// IDFormatUUID7 uses time-ordered UUIDv7 ids.
	IDFormatUUID7 IDFormat = "uuid7"
	// IDFormatTimestamp uses the creation time in Unix milliseconds.
	// Two tasks created in the same millisecond collide.
	IDFormatTimestamp IDFormat = "timestamp"
)

// ParseIDFormat parses an id format name. Empty selects uuid7.
func ParseIDFormat(s string) (IDFormat, error) {
	switch IDFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", IDFormatUUID7:
		return IDFormatUUID7, nil
	case IDFormatTimestamp:
		return IDFormatTimestamp, nil
	default:
		return "", fmt.Errorf("unknown id format %q (want uuid7 or timestamp)", s)
	}
}

// Generator returns the id generator for the format.
func (f IDFormat) Generator() IDGenerator {
	if f == IDFormatTimestamp {
		return NewTimestampGenerator(time.Now)
	}
	return NewUUIDGenerator()
}

// NewUUIDGenerator returns a generator of UUIDv7 strings. It falls back to
// a random v4 UUID if the clock sequence cannot be read.
func NewUUIDGenerator() IDGenerator {
	return func() string {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	}
}

// NewTimestampGenerator returns a generator of decimal millisecond ids.
func NewTimestampGenerator(now func() time.Time) IDGenerator {
	return func() string {
		return strconv.FormatInt(now().UnixMilli(), 10)
	}
}
