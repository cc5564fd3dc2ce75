package iphoto

import (
	"slices"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

// FieldsFilter keeps records by attribute value. A nil value in a list
// stands for "attribute absent".
//
// A record passes when, for every Include field, it matches one of the
// listed values, and, for every Exclude field, it matches none of them.
type FieldsFilter struct {
	Include map[string][]*string `yaml:"include"`
	Exclude map[string][]*string `yaml:"exclude"`
}

// Empty reports whether the filter keeps every record.
func (f *FieldsFilter) Empty() bool {
	return f == nil || (len(f.Include) == 0 && len(f.Exclude) == 0)
}

// Match reports whether rec passes the filter.
func (f *FieldsFilter) Match(rec *plist.Dict) bool {
	if f.Empty() {
		return true
	}
	for _, field := range sortedFields(f.Include) {
		if !matchesAny(rec, field, f.Include[field]) {
			return false
		}
	}
	for _, field := range sortedFields(f.Exclude) {
		if matchesAny(rec, field, f.Exclude[field]) {
			return false
		}
	}
	return true
}

// FilterMasterImages returns the records of images that pass f, keyed and
// ordered as before.
func FilterMasterImages(images MasterImages, f *FieldsFilter) MasterImages {
	if f.Empty() {
		return images
	}
	entries := make([]plist.Entry, 0, images.Len())
	for key, v := range images.dict.All() {
		rec, ok := v.(*plist.Dict)
		if ok && f.Match(rec) {
			entries = append(entries, plist.Entry{Key: key, Value: rec})
		}
	}
	return MasterImages{dict: plist.NewDict(entries...)}
}

// FilterAlbums returns the albums that pass f, in order.
func FilterAlbums(albums []Album, f *FieldsFilter) []Album {
	if f.Empty() {
		return albums
	}
	kept := make([]Album, 0, len(albums))
	for _, album := range albums {
		if f.Match(album.dict) {
			kept = append(kept, album)
		}
	}
	return kept
}

func matchesAny(rec *plist.Dict, field string, values []*string) bool {
	v, present := rec.Get(field)
	for _, want := range values {
		if want == nil {
			if !present {
				return true
			}
			continue
		}
		if !present {
			continue
		}
		if text, ok := plist.Text(v); ok && text == *want {
			return true
		}
	}
	return false
}

func sortedFields(m map[string][]*string) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}
