// Package iphoto extracts the media records and album definitions of an
// iPhoto AlbumData.xml catalog and resolves album membership into file paths.
package iphoto

import (
	"fmt"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

// Default top-level section names of AlbumData.xml.
const (
	MasterImageListKey = "Master Image List"
	ListOfAlbumsKey    = "List of Albums"
)

// MissingSectionError is returned when a top-level section is absent.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("section %q not found in catalog root", e.Section)
}

// TypeMismatchError is returned when a section, or an element within it,
// does not have the expected plist kind.
type TypeMismatchError struct {
	Section string
	Path    string
	Want    plist.Kind
	Got     plist.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("section %q: %s is %s, expected %s", e.Section, e.Path, e.Got, e.Want)
}

// MasterImages is the keyed set of media records.
type MasterImages struct {
	dict *plist.Dict
}

// NewMasterImages wraps d. Every value of d must be a *plist.Dict.
func NewMasterImages(d *plist.Dict) MasterImages {
	return MasterImages{dict: d}
}

// Len returns the number of records.
func (m MasterImages) Len() int { return m.dict.Len() }

// Keys returns the record identifiers in document order.
func (m MasterImages) Keys() []string { return m.dict.Keys() }

// Get returns the record stored under key.
func (m MasterImages) Get(key string) (*plist.Dict, bool) {
	v, ok := m.dict.Get(key)
	if !ok {
		return nil, false
	}
	rec, ok := v.(*plist.Dict)
	return rec, ok
}

// Dict returns the underlying keyed dictionary.
func (m MasterImages) Dict() *plist.Dict { return m.dict }

// Catalog is a decoded catalog root with both sections extracted.
type Catalog struct {
	Root         *plist.Dict
	MasterImages MasterImages
	Albums       []Album
}

// Sections names the two top-level keys to extract.
type Sections struct {
	MasterImageList string
	ListOfAlbums    string
}

// DefaultSections returns the section names iPhoto writes.
func DefaultSections() Sections {
	return Sections{MasterImageList: MasterImageListKey, ListOfAlbums: ListOfAlbumsKey}
}

// ExtractMasterImages locates the "Master Image List" section of root.
func ExtractMasterImages(root *plist.Dict) (MasterImages, error) {
	return extractMasterImages(root, MasterImageListKey)
}

// ExtractAlbums locates the "List of Albums" section of root.
func ExtractAlbums(root *plist.Dict) ([]Album, error) {
	return extractAlbums(root, ListOfAlbumsKey)
}

// ExtractMasterImages locates the master image section named by s.
func (s Sections) ExtractMasterImages(root *plist.Dict) (MasterImages, error) {
	return extractMasterImages(root, s.MasterImageList)
}

// ExtractAlbums locates the album section named by s.
func (s Sections) ExtractAlbums(root *plist.Dict) ([]Album, error) {
	return extractAlbums(root, s.ListOfAlbums)
}

// Extract pulls both sections out of root using the given section names.
func Extract(root *plist.Dict, sections Sections) (*Catalog, error) {
	images, err := extractMasterImages(root, sections.MasterImageList)
	if err != nil {
		return nil, err
	}
	albums, err := extractAlbums(root, sections.ListOfAlbums)
	if err != nil {
		return nil, err
	}
	return &Catalog{Root: root, MasterImages: images, Albums: albums}, nil
}

func extractMasterImages(root *plist.Dict, section string) (MasterImages, error) {
	v, ok := root.Get(section)
	if !ok {
		return MasterImages{}, &MissingSectionError{Section: section}
	}
	d, ok := v.(*plist.Dict)
	if !ok {
		return MasterImages{}, &TypeMismatchError{Section: section, Path: section, Want: plist.KindDict, Got: v.Kind()}
	}
	for key, rec := range d.All() {
		if rec.Kind() != plist.KindDict {
			return MasterImages{}, &TypeMismatchError{
				Section: section,
				Path:    fmt.Sprintf("%s[%q]", section, key),
				Want:    plist.KindDict,
				Got:     rec.Kind(),
			}
		}
	}
	return MasterImages{dict: d}, nil
}

func extractAlbums(root *plist.Dict, section string) ([]Album, error) {
	v, ok := root.Get(section)
	if !ok {
		return nil, &MissingSectionError{Section: section}
	}
	arr, ok := v.(*plist.Array)
	if !ok {
		return nil, &TypeMismatchError{Section: section, Path: section, Want: plist.KindArray, Got: v.Kind()}
	}
	albums := make([]Album, 0, arr.Len())
	for i, item := range arr.All() {
		d, ok := item.(*plist.Dict)
		if !ok {
			return nil, &TypeMismatchError{
				Section: section,
				Path:    fmt.Sprintf("%s[%d]", section, i),
				Want:    plist.KindDict,
				Got:     item.Kind(),
			}
		}
		albums = append(albums, Album{dict: d})
	}
	return albums, nil
}
