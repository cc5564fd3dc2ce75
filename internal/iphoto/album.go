package iphoto

import (
	"strings"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

// KeyListDelimiter separates master image keys in a string KeyList.
const KeyListDelimiter = "|"

// Fields names the record attributes the joiner and the composition files
// read. Everything else in a record passes through untouched.
type Fields struct {
	AlbumID      string
	AlbumType    string
	AlbumName    string
	KeyList      string
	ImagePath    string
	OriginalPath string
}

// DefaultFields returns the attribute names iPhoto writes.
func DefaultFields() Fields {
	return Fields{
		AlbumID:      "AlbumId",
		AlbumType:    "Album Type",
		AlbumName:    "AlbumName",
		KeyList:      "KeyList",
		ImagePath:    "ImagePath",
		OriginalPath: "OriginalPath",
	}
}

// Album is one entry of the album list.
type Album struct {
	dict *plist.Dict
}

// NewAlbum wraps d.
func NewAlbum(d *plist.Dict) Album {
	return Album{dict: d}
}

// Dict returns the album's raw record.
func (a Album) Dict() *plist.Dict { return a.dict }

// Text returns the canonical text of a scalar attribute.
func (a Album) Text(field string) (string, bool) {
	v, ok := a.dict.Get(field)
	if !ok {
		return "", false
	}
	return plist.Text(v)
}

// Label identifies the album in logs and errors: its id when present,
// otherwise its name.
func (a Album) Label(f Fields) string {
	if id, ok := a.Text(f.AlbumID); ok {
		return id
	}
	name, _ := a.Text(f.AlbumName)
	return name
}

// Tokens returns the album's member references in order. A string KeyList
// is split on "|"; an array (or dict) KeyList contributes one token per
// element. Non-scalar elements yield an empty token so the position is kept.
func (a Album) Tokens(field string) []string {
	v, ok := a.dict.Get(field)
	if !ok {
		return nil
	}
	switch v := v.(type) {
	case *plist.Array:
		tokens := make([]string, 0, v.Len())
		for _, item := range v.All() {
			text, _ := plist.Text(item)
			tokens = append(tokens, text)
		}
		return tokens
	case *plist.Dict:
		tokens := make([]string, 0, v.Len())
		for _, item := range v.All() {
			text, _ := plist.Text(item)
			tokens = append(tokens, text)
		}
		return tokens
	default:
		text, _ := plist.Text(v)
		if text == "" {
			return nil
		}
		return strings.Split(text, KeyListDelimiter)
	}
}
