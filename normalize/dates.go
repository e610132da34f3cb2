package normalize

import (
	"bankops/bank"
	"strconv"
	"strings"
	"time"
)

// ISODate is the single canonical date representation every adapter emits.
const ISODate = "2006-01-02"

// source formats observed across institutions, tried in order. the list is ordered
// from most to least specific so ambiguous inputs resolve consistently.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	ISODate,
	"01/02/2006",
	"1/2/2006",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"2 January 2006",
}

// Date parses a backend date in any observed source format and returns it in
// ISO-8601. numeric inputs are treated as unix timestamps (seconds or milliseconds).
func Date(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &bank.MalformedResponseError{Field: "date", Detail: "empty date value"}
	}

	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil && len(value) >= 10 {
		if len(value) >= 13 {
			epoch /= 1000
		}
		return time.Unix(epoch, 0).UTC().Format(ISODate), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ISODate), nil
		}
	}
	return "", &bank.MalformedResponseError{Field: "date", Detail: "unrecognized date format " + strconv.Quote(value)}
}

// MustDate is for adapter-internal constants that are known-good at compile time.
func MustDate(value string) string {
	date, err := Date(value)
	if err != nil {
		panic(err)
	}
	return date
}
