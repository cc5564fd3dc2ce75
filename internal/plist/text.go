package plist

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// Text returns the canonical text of a scalar value. It reports false for
// *Array and *Dict, which have no flat text form.
func Text(v Value) (string, bool) {
	switch v := v.(type) {
	case String:
		return string(v), true
	case Integer:
		return strconv.FormatInt(int64(v), 10), true
	case Real:
		return strconv.FormatFloat(v.Float, 'f', v.Precision, 64), true
	case Boolean:
		if v.Token != "" {
			return v.Token, true
		}
		return strconv.FormatBool(v.Bool), true
	case Date:
		if v.Text != "" {
			return v.Text, true
		}
		return v.Time.UTC().Format(DateLayout), true
	case Data:
		return base64.StdEncoding.EncodeToString(v.b), true
	case *Array, *Dict:
		return "", false
	default:
		return "", false
	}
}

// Describe returns a short human-readable form of v: the kind and size of
// containers, or the kind and quoted text of scalars, cut to 60 characters.
func Describe(v Value) string {
	switch v := v.(type) {
	case *Array:
		return fmt.Sprintf("array (%d items)", v.Len())
	case *Dict:
		return fmt.Sprintf("dict (%d keys)", v.Len())
	default:
		text, _ := Text(v)
		if r := []rune(text); len(r) > 60 {
			text = string(r[:57]) + "..."
		}
		return fmt.Sprintf("%s %q", v.Kind(), text)
	}
}
