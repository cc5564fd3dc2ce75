// Package composition writes one text file per album listing the file
// paths of its member images.
package composition

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
)

// ForbiddenChars may not appear in a composition file name.
const ForbiddenChars = `"<>:/\|?*`

// DefaultUnresolvedPrefix starts the line written for a reference that did
// not resolve to a path.
const DefaultUnresolvedPrefix = "#unresolved:"

// Namer builds composition file names from an album's id, type and name.
type Namer struct {
	// Pad zero-pads the album id to at least this many digits.
	Pad int
	// Join separates id, type and name.
	Join string
	// Escape replaces forbidden characters in the id, type and name.
	Escape string
}

// DefaultNamer returns the naming used when nothing is configured.
func DefaultNamer() Namer {
	return Namer{Pad: 5, Join: "_", Escape: "-"}
}

// Validate checks that Join and Escape are single characters that are
// themselves allowed in file names.
func (n Namer) Validate() error {
	if n.Pad < 0 {
		return fmt.Errorf("id padding must not be negative, got %d", n.Pad)
	}
	for _, c := range []struct{ name, value string }{{"join", n.Join}, {"escape", n.Escape}} {
		if utf8.RuneCountInString(c.value) != 1 {
			return fmt.Errorf("%s character must be exactly one character, got %q", c.name, c.value)
		}
		if strings.ContainsAny(c.value, ForbiddenChars) {
			return fmt.Errorf("%s character %q is not allowed in file names", c.name, c.value)
		}
	}
	return nil
}

// FileName returns the composition file name of album:
// <padded id><join><type><join><name>.txt, each part escaped.
func (n Namer) FileName(album iphoto.Album, fields iphoto.Fields) (string, error) {
	parts := make([]string, 0, 3)
	for _, field := range []string{fields.AlbumID, fields.AlbumType, fields.AlbumName} {
		text, ok := album.Text(field)
		if !ok {
			return "", fmt.Errorf("album %s has no %q field", album.Label(fields), field)
		}
		parts = append(parts, text)
	}

	parts[0] = zeroPad(parts[0], n.Pad)
	for i := range parts {
		parts[i] = n.escape(parts[i])
	}
	return strings.Join(parts, n.Join) + ".txt", nil
}

func (n Namer) escape(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(ForbiddenChars, r) {
			r, _ = utf8.DecodeRuneInString(n.Escape)
		}
		return r
	}, name)
}

// zeroPad left-fills s with zeros up to width, keeping a leading sign in
// front.
func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}
	return sign + strings.Repeat("0", width-len(sign)-len(s)) + s
}

// Render returns the file body of comp: one line per reference in order,
// the resolved path or prefix followed by the unresolved key. Lines are
// separated by "\n" without a trailing newline.
func Render(comp iphoto.Composition, prefix string) string {
	lines := make([]string, len(comp.References))
	for i, ref := range comp.References {
		if ref.Resolved {
			lines[i] = ref.Path
		} else {
			lines[i] = prefix + ref.Key
		}
	}
	return strings.Join(lines, "\n")
}
