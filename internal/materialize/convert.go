package materialize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asString renders a driver value as text; nil becomes "".
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func asStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asInt64Ptr(v any) *int64 {
	var n int64
	switch t := v.(type) {
	case nil:
		return nil
	case int64:
		n = t
	case int32:
		n = int64(t)
	case int:
		n = int64(t)
	case float64:
		n = int64(t)
	case float32:
		n = int64(t)
	case string, []byte:
		s := strings.TrimSpace(asString(t))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			n = int64(f)
		} else {
			return nil
		}
	default:
		return nil
	}
	return &n
}

func asIntPtr(v any) *int {
	p := asInt64Ptr(v)
	if p == nil {
		return nil
	}
	n := int(*p)
	return &n
}

func asFloatPtr(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case int:
		f = float64(t)
	case string, []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(asString(t)), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// truthy coerces the source's adult flag. Numbers are true when non-zero;
// text is true for 1/true/t/yes/y in any case.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case int32:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	case string, []byte:
		switch strings.ToLower(strings.TrimSpace(asString(t))) {
		case "1", "true", "t", "yes", "y":
			return true
		}
	}
	return false
}

// SortKey folds a title for ordering: diacritics removed, lower-cased and
// reduced to letters and digits, so "#Alive" sorts under "a".
func SortKey(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, folded)
}
