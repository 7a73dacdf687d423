package domain

import (
	"chatrooms/errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const maxUsernameLength = 32

// Profile is the public face of an identity. Online and LastSeen belong to
// the presence tracker; clients only change Username and AvatarRef.
type Profile struct {
	ID        string
	Username  string
	AvatarRef string
	Online    bool
	LastSeen  time.Time
	CreatedAt time.Time
}

// Presence is the tracker's view of an identity at a point in time.
type Presence struct {
	Identity string
	Online   bool
	LastSeen time.Time
}

// NormalizeUsername trims the username and rejects empty, oversized or
// whitespace-bearing values. The returned key is used for uniqueness.
func NormalizeUsername(username string) (display, key string, err error) {
	display = strings.TrimSpace(username)
	if display == "" {
		return "", "", fmt.Errorf("%w: username is empty", errors.ErrValidation)
	}
	if len([]rune(display)) > maxUsernameLength {
		return "", "", fmt.Errorf("%w: username longer than %d characters", errors.ErrValidation, maxUsernameLength)
	}
	if strings.IndexFunc(display, unicode.IsSpace) >= 0 {
		return "", "", fmt.Errorf("%w: username contains whitespace", errors.ErrValidation)
	}
	return display, strings.ToLower(display), nil
}
