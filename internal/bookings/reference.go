package bookings

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var referenceEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewReference builds prefix + base36(unix millis) + 8 random base32 characters.
// The time part keeps references roughly sortable, the 40 random bits keep
// same-millisecond references apart.
func NewReference(prefix string, now time.Time) (string, error) {
	var random [5]byte
	if _, err := rand.Read(random[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return prefix + stamp + referenceEncoding.EncodeToString(random[:]), nil
}
