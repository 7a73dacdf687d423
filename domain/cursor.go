package domain

import (
	"chatrooms/errors"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const cursorPrefix = "seq:"

// Cursor is an opaque pagination token derived from a message sequence number.
// Listing "before" a cursor returns messages with a strictly lower Seq.
type Cursor string

func NewCursor(seq uint64) Cursor {
	raw := cursorPrefix + strconv.FormatUint(seq, 10)
	return Cursor(base64.RawURLEncoding.EncodeToString([]byte(raw)))
}

// Seq decodes the cursor. An empty cursor decodes to 0, meaning "from the newest".
func (c Cursor) Seq() (uint64, error) {
	if c == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidCursor, err)
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, errors.ErrInvalidCursor
	}
	seq, err := strconv.ParseUint(s, 10, 64)
	if err != nil || seq == 0 {
		return 0, errors.ErrInvalidCursor
	}
	return seq, nil
}

func (c Cursor) String() string { return string(c) }
