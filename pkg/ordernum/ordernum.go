// Package ordernum generates human-readable order numbers of the form
// ORD<8 timestamp digits><3 random digits>. Numbers are unique-enough for
// display; the database still enforces uniqueness on insert.
package ordernum

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const prefix = "ORD"

// Generate produces a new order number using the current time.
func Generate() string {
	return generateAt(time.Now())
}

func generateAt(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		// crypto/rand only fails when the platform source is broken;
		// fall back to a time-derived suffix rather than panic.
		n = big.NewInt(now.UnixNano() % 1000)
	}

	return fmt.Sprintf("%s%s%03d", prefix, millis, n.Int64())
}

// IsValid reports whether the value looks like a generated order number.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	digits := strings.TrimPrefix(value, prefix)
	if len(digits) != 11 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
