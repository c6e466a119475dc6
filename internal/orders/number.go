package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "LV"
	sequenceDigits    = 3
)

// DayKey is the YYMMDD part of an order number for t, in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("060102")
}

// FormatOrderNumber renders LV{YY}{MM}{DD}{seq}, zero-padding seq to three digits.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%0*d", orderNumberPrefix, DayKey(day), sequenceDigits, seq)
}

// NumberPrefix is the order-number prefix shared by every order placed on day.
func NumberPrefix(day time.Time) string {
	return orderNumberPrefix + DayKey(day)
}

// ParseSequence extracts the trailing sequence of an order number with the given prefix.
func ParseSequence(number, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || len(rest) < sequenceDigits {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
