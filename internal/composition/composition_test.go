package composition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

func album(id int64, kind, name, keyList string) iphoto.Album {
	return iphoto.NewAlbum(plist.NewDict(
		plist.Entry{Key: "AlbumId", Value: plist.Integer(id)},
		plist.Entry{Key: "Album Type", Value: plist.String(kind)},
		plist.Entry{Key: "AlbumName", Value: plist.String(name)},
		plist.Entry{Key: "KeyList", Value: plist.String(keyList)},
	))
}

func masters() iphoto.MasterImages {
	return iphoto.NewMasterImages(plist.NewDict(
		plist.Entry{Key: "10", Value: plist.NewDict(plist.Entry{Key: "ImagePath", Value: plist.String("/lib/10.jpg")})},
		plist.Entry{Key: "30", Value: plist.NewDict(plist.Entry{Key: "ImagePath", Value: plist.String("/lib/30.jpg")})},
	))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name  string
		namer Namer
		album iphoto.Album
		want  string
	}{
		{
			name:  "padded id",
			namer: Namer{Pad: 5, Join: "_", Escape: "-"},
			album: album(42, "Regular", "Summer", ""),
			want:  "00042_Regular_Summer.txt",
		},
		{
			name:  "id longer than padding",
			namer: Namer{Pad: 2, Join: " ", Escape: "-"},
			album: album(12345, "Event", "Party", ""),
			want:  "12345 Event Party.txt",
		},
		{
			name:  "negative id keeps sign first",
			namer: Namer{Pad: 4, Join: "_", Escape: "-"},
			album: album(-5, "Smart", "Flagged", ""),
			want:  "-005_Smart_Flagged.txt",
		},
		{
			name:  "forbidden characters escaped",
			namer: Namer{Pad: 0, Join: "_", Escape: "~"},
			album: album(1, "Regular", `a/b\c:d*e?f"g<h>i|j`, ""),
			want:  "1_Regular_a~b~c~d~e~f~g~h~i~j.txt",
		},
		{
			name:  "type escaped",
			namer: Namer{Pad: 5, Join: "_", Escape: "-"},
			album: album(2, "Smart/Folder", "Bad", ""),
			want:  "00002_Smart-Folder_Bad.txt",
		},
		{
			name:  "relative type stays in directory",
			namer: Namer{Pad: 0, Join: "_", Escape: "-"},
			album: album(7, "../../x", "y", ""),
			want:  "7_..-..-x_y.txt",
		},
		{
			name:  "multibyte escape",
			namer: Namer{Pad: 0, Join: "・", Escape: "＿"},
			album: album(3, "Regular", "夏/冬", ""),
			want:  "3・Regular・夏＿冬.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.namer.FileName(tt.album, iphoto.DefaultFields())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileNameMissingField(t *testing.T) {
	a := iphoto.NewAlbum(plist.NewDict(plist.Entry{Key: "AlbumId", Value: plist.Integer(1)}))
	_, err := DefaultNamer().FileName(a, iphoto.DefaultFields())
	assert.Error(t, err)
}

func TestNamerValidate(t *testing.T) {
	tests := []struct {
		name    string
		namer   Namer
		wantErr bool
	}{
		{name: "default", namer: DefaultNamer()},
		{name: "empty join", namer: Namer{Join: "", Escape: "-"}, wantErr: true},
		{name: "two character escape", namer: Namer{Join: "_", Escape: "--"}, wantErr: true},
		{name: "forbidden join", namer: Namer{Join: "/", Escape: "-"}, wantErr: true},
		{name: "forbidden escape", namer: Namer{Join: "_", Escape: "?"}, wantErr: true},
		{name: "negative pad", namer: Namer{Pad: -1, Join: "_", Escape: "-"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.namer.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRender(t *testing.T) {
	comp := iphoto.Resolve(album(5, "Regular", "Gap", "10|20|30"), masters(), iphoto.DefaultFields())
	assert.Equal(t, "/lib/10.jpg\n#unresolved:20\n/lib/30.jpg", Render(comp, DefaultUnresolvedPrefix))

	empty := iphoto.Resolve(album(6, "Regular", "Empty", ""), masters(), iphoto.DefaultFields())
	assert.Equal(t, "", Render(empty, DefaultUnresolvedPrefix))
}

func newWriter(dir string) *Writer {
	return &Writer{
		Dir:     dir,
		Namer:   DefaultNamer(),
		Fields:  iphoto.DefaultFields(),
		Workers: 4,
	}
}

func TestWriteAll(t *testing.T) {
	albums := []iphoto.Album{
		album(1, "Regular", "Library", "10|30"),
		album(2, "Regular", "Trip: day 1", "30|20"),
		album(3, "Smart", "Empty", ""),
	}
	comps := iphoto.ResolveAll(albums, masters(), iphoto.DefaultFields())

	dir := t.TempDir()
	paths, err := newWriter(dir).WriteAll(context.Background(), comps)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "00002_Regular_Trip- day 1.txt"), paths[1])

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "/lib/30.jpg\n#unresolved:20", string(data))

	data, err = os.ReadFile(paths[2])
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteAllIsReproducible(t *testing.T) {
	comps := iphoto.ResolveAll([]iphoto.Album{
		album(1, "Regular", "A", "10|30|10"),
		album(2, "Regular", "B", "30"),
	}, masters(), iphoto.DefaultFields())

	first, second := t.TempDir(), t.TempDir()
	_, err := newWriter(first).WriteAll(context.Background(), comps)
	require.NoError(t, err)
	_, err = newWriter(second).WriteAll(context.Background(), comps)
	require.NoError(t, err)

	entries, err := os.ReadDir(first)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		a, err := os.ReadFile(filepath.Join(first, entry.Name()))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, entry.Name()))
		require.NoError(t, err)
		assert.Equal(t, a, b, entry.Name())
	}
}

func TestWriteAllRejectsDuplicateNames(t *testing.T) {
	comps := iphoto.ResolveAll([]iphoto.Album{
		album(1, "Regular", "a/b", "10"),
		album(1, "Regular", "a:b", "30"),
	}, masters(), iphoto.DefaultFields())

	dir := t.TempDir()
	_, err := newWriter(dir).WriteAll(context.Background(), comps)
	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup), "expected DuplicateNameError, got %v", err)
	assert.Equal(t, "00001_Regular_a-b.txt", dup.Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAllEscapesEveryNamePart(t *testing.T) {
	comps := iphoto.ResolveAll([]iphoto.Album{
		album(1, "Regular", "Good", "10"),
		album(2, "Smart/Folder", "Bad", "30"),
		album(3, `..\..\out`, "Up", "10"),
	}, masters(), iphoto.DefaultFields())

	dir := t.TempDir()
	w := newWriter(dir)
	w.Workers = 1
	paths, err := w.WriteAll(context.Background(), comps)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		assert.False(t, entry.IsDir(), entry.Name())
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{
		"00001_Regular_Good.txt",
		"00002_Smart-Folder_Bad.txt",
		"00003_..-..-out_Up.txt",
	}, names)
}

func TestWriteAllRefusesExistingFiles(t *testing.T) {
	comps := iphoto.ResolveAll([]iphoto.Album{
		album(1, "Regular", "A", "10"),
		album(2, "Regular", "B", "30"),
	}, masters(), iphoto.DefaultFields())

	dir := t.TempDir()
	existing := filepath.Join(dir, "00002_Regular_B.txt")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0644))

	_, err := newWriter(dir).WriteAll(context.Background(), comps)
	require.ErrorIs(t, err, os.ErrExist)
	_, statErr := os.Stat(filepath.Join(dir, "00001_Regular_A.txt"))
	assert.True(t, os.IsNotExist(statErr), "no file may be written when the plan fails")

	w := newWriter(dir)
	w.Overwrite = true
	_, err = w.WriteAll(context.Background(), comps)
	require.NoError(t, err)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "/lib/30.jpg", string(data))
}

func TestWriteAllEncoding(t *testing.T) {
	comps := iphoto.ResolveAll([]iphoto.Album{album(1, "Regular", "A", "7")}, iphoto.NewMasterImages(plist.NewDict(
		plist.Entry{Key: "7", Value: plist.NewDict(plist.Entry{Key: "ImagePath", Value: plist.String("/lib/写真.jpg")})},
	)), iphoto.DefaultFields())

	dir := t.TempDir()
	w := newWriter(dir)
	w.Encoding = "shift_jis"
	paths, err := w.WriteAll(context.Background(), comps)
	require.NoError(t, err)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("/lib/\x8e\xca\x90\x5e.jpg"), data)
}
