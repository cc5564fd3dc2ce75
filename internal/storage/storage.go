package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/config"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

// Snapshot is one decoded and joined catalog. It is never modified after
// it is built.
type Snapshot struct {
	Source       string
	LoadedAt     time.Time
	Fields       iphoto.Fields
	MasterImages iphoto.MasterImages
	Albums       []iphoto.Album
	Compositions []iphoto.Composition

	byLabel map[string]int
}

// Composition returns the composition of the album labelled label.
func (s *Snapshot) Composition(label string) (iphoto.Composition, bool) {
	i, ok := s.byLabel[label]
	if !ok {
		return iphoto.Composition{}, false
	}
	return s.Compositions[i], true
}

// NewSnapshot decodes, filters and joins the catalog named by cfg.
func NewSnapshot(cfg *config.Config) (*Snapshot, error) {
	var opts []plist.Option
	if !cfg.Input.NormalizeStrings {
		opts = append(opts, plist.WithoutNormalization())
	}
	root, err := plist.NewDecoder(opts...).DecodeFile(cfg.Input.XMLPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	rootDict, ok := root.(*plist.Dict)
	if !ok {
		return nil, fmt.Errorf("failed to decode catalog: root is %s, expected dict", root.Kind())
	}

	cat, err := iphoto.Extract(rootDict, cfg.Sections())
	if err != nil {
		return nil, fmt.Errorf("failed to extract catalog: %w", err)
	}

	fields := cfg.Fields()
	images := iphoto.FilterMasterImages(cat.MasterImages, cfg.Process.FieldsFilter.MasterImageList)
	albums := iphoto.FilterAlbums(cat.Albums, cfg.Process.FieldsFilter.ListOfAlbums)
	comps := iphoto.ResolveAll(albums, images, fields)

	byLabel := make(map[string]int, len(comps))
	for i, comp := range comps {
		if _, dup := byLabel[comp.Label]; dup {
			slog.Warn("Duplicate album label, keeping the first", "album", comp.Label)
			continue
		}
		byLabel[comp.Label] = i
	}

	return &Snapshot{
		Source:       cfg.Input.XMLPath,
		LoadedAt:     time.Now(),
		Fields:       fields,
		MasterImages: images,
		Albums:       albums,
		Compositions: comps,
		byLabel:      byLabel,
	}, nil
}

// CatalogStore holds the current snapshot for concurrent readers.
type CatalogStore struct {
	snapshot *Snapshot
	mu       sync.RWMutex
}

func New() *CatalogStore {
	return &CatalogStore{}
}

// Get returns the current snapshot, if one has been loaded.
func (s *CatalogStore) Get() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.snapshot != nil
}

// Set replaces the current snapshot.
func (s *CatalogStore) Set(snapshot *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

// Load builds a snapshot from cfg and makes it current. On error the
// previous snapshot stays in place.
func (s *CatalogStore) Load(cfg *config.Config) (*Snapshot, error) {
	snapshot, err := NewSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	s.Set(snapshot)
	slog.Info("Catalog loaded", "path", snapshot.Source, "master_images", snapshot.MasterImages.Len(), "albums", len(snapshot.Albums))
	return snapshot, nil
}
