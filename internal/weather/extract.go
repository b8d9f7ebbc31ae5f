// Package weather decodes the weather service "now" payload by anchoring on
// literal keys instead of parsing the whole document.
package weather

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// ErrStructural is returned when a mandatory anchor is missing and the payload
// is not recognisable as a weather response at all
var ErrStructural = errors.New("weather: payload missing structural anchor")

// Structural anchors every payload must contain
const (
	ResultsAnchor  = `"results":`
	LocationAnchor = `"location":`
	NowAnchor      = `"now":`
)

// Record is the decoded weather payload. Every field starts at its zero value
// and is only overwritten when its key is found and scans cleanly.
type Record struct {
	City        string
	Path        string
	Weather     string
	Code        int
	Temperature float64
}

// Equal compares two records field by field. Two NaN temperatures are equal.
func (r Record) Equal(o Record) bool {
	return r.City == o.City &&
		r.Path == o.Path &&
		r.Weather == o.Weather &&
		r.Code == o.Code &&
		floatEqual(r.Temperature, o.Temperature)
}

// Field describes one optional value inside a section of the payload
type Field struct {
	// Section is the anchor of the sub-object the key lives under
	Section string
	// Key is the literal key anchor, including quotes and colon
	Key string
	// MaxLen bounds how many bytes are copied out of the quotes
	MaxLen int
	// Assign stores the scanned text into the record. A returned error
	// leaves the field at its previous value.
	Assign func(r *Record, raw string) error
}

// Fields returns the descriptors for the seniverse "now" endpoint
func Fields() []Field {
	return []Field{
		{Section: LocationAnchor, Key: `"name":`, MaxLen: 31, Assign: func(r *Record, raw string) error {
			r.City = raw
			return nil
		}},
		{Section: LocationAnchor, Key: `"path":`, MaxLen: 128, Assign: func(r *Record, raw string) error {
			r.Path = raw
			return nil
		}},
		{Section: NowAnchor, Key: `"text":`, MaxLen: 15, Assign: func(r *Record, raw string) error {
			r.Weather = raw
			return nil
		}},
		{Section: NowAnchor, Key: `"code":`, MaxLen: 15, Assign: func(r *Record, raw string) error {
			code, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			r.Code = code
			return nil
		}},
		{Section: NowAnchor, Key: `"temperature":`, MaxLen: 15, Assign: func(r *Record, raw string) error {
			t, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return err
			}
			r.Temperature = t
			return nil
		}},
	}
}

// Extract locates the results container and each field's section, then fills
// a Record from whichever field keys are present.
//
// Missing results or a missing section referenced by a field is a structural
// failure and returns a zero Record. A missing or unparsable field is not.
func Extract(text string, fields []Field) (Record, error) {
	start := strings.Index(text, ResultsAnchor)
	if start < 0 {
		return Record{}, errors.Wrapf(ErrStructural, "anchor %s not found", ResultsAnchor)
	}
	results := text[start:]

	// Resolve every section up front so a structural failure never leaves a
	// half-populated record behind
	sections := make(map[string]string)
	for _, f := range fields {
		if _, ok := sections[f.Section]; ok {
			continue
		}
		idx := strings.Index(results, f.Section)
		if idx < 0 {
			return Record{}, errors.Wrapf(ErrStructural, "anchor %s not found", f.Section)
		}
		sections[f.Section] = results[idx:]
	}

	var rec Record
	for _, f := range fields {
		raw, ok := scanField(sections[f.Section], f.Key, f.MaxLen)
		if !ok {
			continue
		}
		_ = f.Assign(&rec, raw)
	}

	return rec, nil
}

// scanField finds key in section and copies at most maxLen bytes from
// between the following pair of quotes, never splitting a UTF-8 sequence. Whitespace between the key and the
// opening quote is skipped. An empty value counts as not found.
func scanField(section, key string, maxLen int) (string, bool) {
	idx := strings.Index(section, key)
	if idx < 0 {
		return "", false
	}

	rest := strings.TrimLeftFunc(section[idx+len(key):], unicode.IsSpace)
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}
	rest = rest[1:]

	end := strings.IndexByte(rest, '"')
	if end < 0 {
		end = len(rest)
	}
	if end > maxLen {
		end = maxLen
		for end > 0 && !utf8.RuneStart(rest[end]) {
			end--
		}
	}
	if end == 0 {
		return "", false
	}

	return rest[:end], true
}

func floatEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
