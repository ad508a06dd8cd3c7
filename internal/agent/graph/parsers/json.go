package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// MaxDays is the longest itinerary the planner produces.
const MaxDays = 60

// basic safety limits to avoid pathological completions
const (
	maxContentLen = 128 * 1024 // 128KB
	maxPerList    = 20
	maxErrSnippet = 200
)

var (
	ErrNoJSON          = errors.New("no json object in completion")
	ErrItineraryLength = errors.New("itinerary length out of range")
)

// ExtractJSON returns the first balanced JSON object in s. Markdown code fences
// and surrounding prose are ignored.
func ExtractJSON(s string) (string, error) {
	if len(s) > maxContentLen {
		logx.Warn().
			Str("component", "json_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(s)).
			Msg("content truncated due to size limit")
		s = s[:maxContentLen]
	}
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s, start); end > start {
			return s[start : end+1], nil
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", fmt.Errorf("%w: %s", ErrNoJSON, safeSnippet(s))
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// decodeObject extracts and decodes the first JSON object of content into v.
func decodeObject(content string, v any) error {
	raw, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode completion json: %w", err)
	}
	return nil
}

// NormalizeLabel lower-cases a classifier label and strips surrounding
// quotes, punctuation and markup. Inner spaces and hyphens become underscores.
func NormalizeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) && r != '_' || r == '`'
	})
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// looseString accepts a JSON string, number or bool.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = looseString(strings.TrimSpace(s))
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		*l = ""
		return nil
	}
	*l = looseString(b)
	return nil
}

// looseInt accepts a JSON number or a numeric string; anything else is 0.
type looseInt int

func (l *looseInt) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*l = 0
		return nil
	}
	*l = looseInt(int(f))
	return nil
}

// looseFloat accepts a JSON number or a string starting with one ("4.5/5").
type looseFloat float64

func (l *looseFloat) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	str := string(s)
	end := strings.IndexFunc(str, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' })
	if end >= 0 {
		str = str[:end]
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*l = 0
		return nil
	}
	*l = looseFloat(f)
	return nil
}

// looseStrings accepts a JSON array of scalars or a comma separated string.
type looseStrings []string

func (l *looseStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []looseString
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				out = append(out, string(it))
			}
		}
		*l = out
		return nil
	}
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*l = nil
	for _, part := range strings.Split(string(s), ",") {
		if p := strings.TrimSpace(part); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
