package iphoto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

func image(path string) *plist.Dict {
	return plist.NewDict(
		plist.Entry{Key: "Caption", Value: plist.String("caption " + path)},
		plist.Entry{Key: "ImagePath", Value: plist.String(path)},
	)
}

func album(id int64, name string, keyList plist.Value) *plist.Dict {
	entries := []plist.Entry{
		{Key: "AlbumId", Value: plist.Integer(id)},
		{Key: "AlbumName", Value: plist.String(name)},
		{Key: "Album Type", Value: plist.String("Regular")},
	}
	if keyList != nil {
		entries = append(entries, plist.Entry{Key: "KeyList", Value: keyList})
	}
	return plist.NewDict(entries...)
}

func testRoot() *plist.Dict {
	return plist.NewDict(
		plist.Entry{Key: "Application Version", Value: plist.String("8.1.2")},
		plist.Entry{Key: MasterImageListKey, Value: plist.NewDict(
			plist.Entry{Key: "10", Value: image("/lib/10.jpg")},
			plist.Entry{Key: "30", Value: image("/lib/30.jpg")},
		)},
		plist.Entry{Key: ListOfAlbumsKey, Value: plist.NewArray(
			album(1, "Library", plist.String("10|30")),
			album(2, "Trip", plist.NewArray(plist.String("30"), plist.String("10"))),
		)},
	)
}

func TestExtract(t *testing.T) {
	cat, err := Extract(testRoot(), DefaultSections())
	require.NoError(t, err)

	assert.Equal(t, []string{"10", "30"}, cat.MasterImages.Keys())
	require.Len(t, cat.Albums, 2)
	name, ok := cat.Albums[1].Text("AlbumName")
	assert.True(t, ok)
	assert.Equal(t, "Trip", name)
}

func TestExtractMissingSection(t *testing.T) {
	root := plist.NewDict(plist.Entry{Key: MasterImageListKey, Value: plist.NewDict()})

	_, err := ExtractAlbums(root)
	var missing *MissingSectionError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, ListOfAlbumsKey, missing.Section)

	_, err = ExtractMasterImages(plist.NewDict())
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, MasterImageListKey, missing.Section)
}

func TestExtractTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		root *plist.Dict
		path string
		run  func(*plist.Dict) error
	}{
		{
			name: "master image list is an array",
			root: plist.NewDict(plist.Entry{Key: MasterImageListKey, Value: plist.NewArray()}),
			path: MasterImageListKey,
			run:  func(d *plist.Dict) error { _, err := ExtractMasterImages(d); return err },
		},
		{
			name: "master image record is a string",
			root: plist.NewDict(plist.Entry{Key: MasterImageListKey, Value: plist.NewDict(
				plist.Entry{Key: "7", Value: plist.String("oops")},
			)}),
			path: `Master Image List["7"]`,
			run:  func(d *plist.Dict) error { _, err := ExtractMasterImages(d); return err },
		},
		{
			name: "album list is a dict",
			root: plist.NewDict(plist.Entry{Key: ListOfAlbumsKey, Value: plist.NewDict()}),
			path: ListOfAlbumsKey,
			run:  func(d *plist.Dict) error { _, err := ExtractAlbums(d); return err },
		},
		{
			name: "album entry is an integer",
			root: plist.NewDict(plist.Entry{Key: ListOfAlbumsKey, Value: plist.NewArray(
				album(1, "ok", nil), plist.Integer(4),
			)}),
			path: "List of Albums[1]",
			run:  func(d *plist.Dict) error { _, err := ExtractAlbums(d); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(tt.root)
			var mismatch *TypeMismatchError
			require.True(t, errors.As(err, &mismatch), "expected TypeMismatchError, got %v", err)
			assert.Equal(t, tt.path, mismatch.Path)
		})
	}
}

func TestResolveKeepsGaps(t *testing.T) {
	images := NewMasterImages(plist.NewDict(
		plist.Entry{Key: "10", Value: image("/lib/10.jpg")},
		plist.Entry{Key: "30", Value: image("/lib/30.jpg")},
	))

	comp := Resolve(NewAlbum(album(5, "Gap", plist.String("10|20|30"))), images, DefaultFields())

	require.Equal(t, 3, comp.Len())
	assert.Equal(t, []string{"/lib/10.jpg", "", "/lib/30.jpg"}, comp.Paths())
	assert.True(t, comp.References[0].Resolved)
	assert.False(t, comp.References[1].Resolved)
	assert.Equal(t, "20", comp.References[1].Key)
	assert.True(t, comp.References[2].Resolved)

	unresolved := comp.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "5", unresolved[0].Album)
	assert.Equal(t, 1, unresolved[0].Position)
	assert.Equal(t, ReasonNotFound, unresolved[0].Reason)
}

func TestResolveEmptyKeyList(t *testing.T) {
	images := NewMasterImages(plist.NewDict())

	tests := []struct {
		name    string
		keyList plist.Value
	}{
		{name: "absent", keyList: nil},
		{name: "empty string", keyList: plist.String("")},
		{name: "empty array", keyList: plist.NewArray()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := Resolve(NewAlbum(album(1, "Empty", tt.keyList)), images, DefaultFields())
			assert.Equal(t, 0, comp.Len())
			assert.Empty(t, comp.Unresolved())
		})
	}
}

func TestResolveOddTokens(t *testing.T) {
	images := NewMasterImages(plist.NewDict(
		plist.Entry{Key: "1", Value: image("/lib/1.jpg")},
		plist.Entry{Key: "2", Value: plist.NewDict(plist.Entry{Key: "Caption", Value: plist.String("no path")})},
	))

	comp := Resolve(NewAlbum(album(9, "Odd", plist.String("1|| |2"))), images, DefaultFields())

	require.Equal(t, 4, comp.Len())
	reasons := []string{}
	for _, err := range comp.Unresolved() {
		reasons = append(reasons, err.Reason)
	}
	assert.Equal(t, []string{ReasonEmptyKey, ReasonEmptyKey, ReasonNoPath}, reasons)
}

func TestResolvePrefersOriginalPath(t *testing.T) {
	rec := plist.NewDict(
		plist.Entry{Key: "ImagePath", Value: plist.String("/lib/Modified/1.jpg")},
		plist.Entry{Key: "OriginalPath", Value: plist.String("/lib/Originals/1.jpg")},
	)
	empty := plist.NewDict(
		plist.Entry{Key: "ImagePath", Value: plist.String("/lib/Masters/2.jpg")},
		plist.Entry{Key: "OriginalPath", Value: plist.String("")},
	)
	images := NewMasterImages(plist.NewDict(
		plist.Entry{Key: "1", Value: rec},
		plist.Entry{Key: "2", Value: empty},
	))

	comp := Resolve(NewAlbum(album(1, "Edited", plist.String("1|2"))), images, DefaultFields())
	assert.Equal(t, []string{"/lib/Originals/1.jpg", "/lib/Masters/2.jpg"}, comp.Paths())
}

func TestResolveIsStable(t *testing.T) {
	cat, err := Extract(testRoot(), DefaultSections())
	require.NoError(t, err)

	first := ResolveAll(cat.Albums, cat.MasterImages, DefaultFields())
	second := ResolveAll(cat.Albums, cat.MasterImages, DefaultFields())

	require.Len(t, first, 2)
	for i := range first {
		assert.Equal(t, first[i].Paths(), second[i].Paths())
	}
	assert.Equal(t, []string{"/lib/30.jpg", "/lib/10.jpg"}, first[1].Paths())
}

func strPtr(s string) *string { return &s }

func TestFieldsFilter(t *testing.T) {
	regular := album(1, "A", nil)
	smart := plist.NewDict(
		plist.Entry{Key: "AlbumId", Value: plist.Integer(2)},
		plist.Entry{Key: "Album Type", Value: plist.String("Smart")},
	)
	untyped := plist.NewDict(plist.Entry{Key: "AlbumId", Value: plist.Integer(3)})
	albums := []Album{NewAlbum(regular), NewAlbum(smart), NewAlbum(untyped)}

	tests := []struct {
		name   string
		filter *FieldsFilter
		ids    []string
	}{
		{name: "nil keeps all", filter: nil, ids: []string{"1", "2", "3"}},
		{
			name:   "include value",
			filter: &FieldsFilter{Include: map[string][]*string{"Album Type": {strPtr("Regular")}}},
			ids:    []string{"1"},
		},
		{
			name:   "include value or absent",
			filter: &FieldsFilter{Include: map[string][]*string{"Album Type": {strPtr("Smart"), nil}}},
			ids:    []string{"2", "3"},
		},
		{
			name:   "exclude values",
			filter: &FieldsFilter{Exclude: map[string][]*string{"Album Type": {strPtr("Smart"), strPtr("Regular")}}},
			ids:    []string{"3"},
		},
		{
			name:   "exclude absent",
			filter: &FieldsFilter{Exclude: map[string][]*string{"Album Type": {nil}}},
			ids:    []string{"1", "2"},
		},
		{
			name: "include and exclude",
			filter: &FieldsFilter{
				Include: map[string][]*string{"AlbumId": {strPtr("1"), strPtr("2")}},
				Exclude: map[string][]*string{"Album Type": {strPtr("Smart")}},
			},
			ids: []string{"1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, a := range FilterAlbums(albums, tt.filter) {
				id, _ := a.Text("AlbumId")
				ids = append(ids, id)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestFilterMasterImagesKeepsOrder(t *testing.T) {
	images := NewMasterImages(plist.NewDict(
		plist.Entry{Key: "3", Value: plist.NewDict(plist.Entry{Key: "MediaType", Value: plist.String("Image")})},
		plist.Entry{Key: "1", Value: plist.NewDict(plist.Entry{Key: "MediaType", Value: plist.String("Movie")})},
		plist.Entry{Key: "2", Value: plist.NewDict(plist.Entry{Key: "MediaType", Value: plist.String("Image")})},
	))
	filter := &FieldsFilter{Include: map[string][]*string{"MediaType": {strPtr("Image")}}}

	kept := FilterMasterImages(images, filter)
	assert.Equal(t, []string{"3", "2"}, kept.Keys())
}
