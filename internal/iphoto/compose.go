package iphoto

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

// Reasons recorded on an UnresolvedReferenceError.
const (
	ReasonEmptyKey  = "empty reference"
	ReasonNotFound  = "not found in the master image list"
	ReasonNoPath    = "master image has no path"
	ReasonNotRecord = "master image is not a record"
)

// UnresolvedReferenceError describes one KeyList token that did not resolve
// to a file path. It is reported, never fatal.
type UnresolvedReferenceError struct {
	Album    string
	Position int
	Key      string
	Reason   string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("album %s: reference %d (key %q): %s", e.Album, e.Position, e.Key, e.Reason)
}

// Reference is one resolved (or unresolved) member of an album.
type Reference struct {
	Position int
	Key      string
	Path     string
	Resolved bool
	Image    *plist.Dict
	Reason   string
}

// Composition is the ordered member list of one album. It always holds one
// Reference per KeyList token.
type Composition struct {
	Album      Album
	Label      string
	References []Reference
}

// Len returns the number of references.
func (c Composition) Len() int { return len(c.References) }

// Paths returns the resolved path of each reference, "" for gaps.
func (c Composition) Paths() []string {
	paths := make([]string, len(c.References))
	for i, ref := range c.References {
		paths[i] = ref.Path
	}
	return paths
}

// Unresolved returns one error per gap, in reference order.
func (c Composition) Unresolved() []*UnresolvedReferenceError {
	var errs []*UnresolvedReferenceError
	for _, ref := range c.References {
		if ref.Resolved {
			continue
		}
		errs = append(errs, &UnresolvedReferenceError{
			Album:    c.Label,
			Position: ref.Position,
			Key:      ref.Key,
			Reason:   ref.Reason,
		})
	}
	return errs
}

// Resolve expands album's KeyList against images. A missing or empty
// KeyList yields an empty composition.
func Resolve(album Album, images MasterImages, fields Fields) Composition {
	tokens := album.Tokens(fields.KeyList)
	comp := Composition{
		Album:      album,
		Label:      album.Label(fields),
		References: make([]Reference, 0, len(tokens)),
	}

	for i, token := range tokens {
		ref := Reference{Position: i, Key: token}
		key := strings.TrimSpace(token)

		switch v, ok := images.dict.Get(key); {
		case key == "":
			ref.Reason = ReasonEmptyKey
		case !ok:
			ref.Reason = ReasonNotFound
		default:
			rec, isDict := v.(*plist.Dict)
			if !isDict {
				ref.Reason = ReasonNotRecord
				break
			}
			ref.Image = rec
			if path := imagePath(rec, fields); path != "" {
				ref.Path = path
				ref.Resolved = true
			} else {
				ref.Reason = ReasonNoPath
			}
		}

		comp.References = append(comp.References, ref)
	}
	return comp
}

// ResolveAll resolves every album in order.
func ResolveAll(albums []Album, images MasterImages, fields Fields) []Composition {
	comps := make([]Composition, 0, len(albums))
	for _, album := range albums {
		comps = append(comps, Resolve(album, images, fields))
	}
	return comps
}

// imagePath prefers the original (master) file over the edited preview.
func imagePath(rec *plist.Dict, fields Fields) string {
	for _, field := range []string{fields.OriginalPath, fields.ImagePath} {
		if field == "" {
			continue
		}
		v, ok := rec.Get(field)
		if !ok {
			continue
		}
		if s, ok := v.(plist.String); ok && s != "" {
			return string(s)
		}
	}
	return ""
}
