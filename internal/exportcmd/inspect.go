package exportcmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/composition"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/config"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/table"
)

// InspectOptions selects what Inspect prints.
type InspectOptions struct {
	Album  string
	Image  string
	Limit  int
	Prefix string
}

// Inspect decodes the configured catalog and prints an overview, or the
// detail of one album or master image, to w.
func Inspect(w io.Writer, cfg *config.Config, opts InspectOptions) error {
	var decodeOpts []plist.Option
	if !cfg.Input.NormalizeStrings {
		decodeOpts = append(decodeOpts, plist.WithoutNormalization())
	}
	root, err := plist.NewDecoder(decodeOpts...).DecodeFile(cfg.Input.XMLPath)
	if err != nil {
		return fmt.Errorf("failed to decode catalog: %w", err)
	}
	rootDict, ok := root.(*plist.Dict)
	if !ok {
		return fmt.Errorf("catalog root is %s, expected dict", root.Kind())
	}

	cat, err := iphoto.Extract(rootDict, cfg.Sections())
	if err != nil {
		return fmt.Errorf("failed to extract catalog sections: %w", err)
	}
	fields := cfg.Fields()

	switch {
	case opts.Image != "":
		rec, ok := cat.MasterImages.Get(opts.Image)
		if !ok {
			return fmt.Errorf("master image %q not found", opts.Image)
		}
		fmt.Fprintf(w, "Master image %s\n", opts.Image)
		printRecord(w, rec, cfg.TableOptions())
		return nil

	case opts.Album != "":
		for _, album := range cat.Albums {
			if album.Label(fields) != opts.Album {
				continue
			}
			comp := iphoto.Resolve(album, cat.MasterImages, fields)
			fmt.Fprintf(w, "Album %s\n", opts.Album)
			printRecord(w, album.Dict(), cfg.TableOptions())
			fmt.Fprintf(w, "\nMembers (%d, %d unresolved):\n", comp.Len(), len(comp.Unresolved()))
			prefix := opts.Prefix
			if prefix == "" {
				prefix = cfg.Output.Composition.UnresolvedPrefix
			}
			if prefix == "" {
				prefix = composition.DefaultUnresolvedPrefix
			}
			if comp.Len() == 0 {
				return nil
			}
			for _, line := range strings.Split(renderLimited(comp, prefix, opts.Limit), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
			return nil
		}
		return fmt.Errorf("album %q not found", opts.Album)
	}

	fmt.Fprintf(w, "Catalog %s\n\n", cfg.Input.XMLPath)
	fmt.Fprintln(w, "Top-level keys:")
	for key, v := range rootDict.All() {
		fmt.Fprintf(w, "  %-32s %s\n", key, plist.Describe(v))
	}
	fmt.Fprintf(w, "\n%d master images, %d albums\n", cat.MasterImages.Len(), len(cat.Albums))

	comps := iphoto.ResolveAll(cat.Albums, cat.MasterImages, fields)
	shown := 0
	for _, comp := range comps {
		if opts.Limit > 0 && shown >= opts.Limit {
			fmt.Fprintf(w, "  ... %d more\n", len(comps)-shown)
			break
		}
		name, _ := comp.Album.Text(fields.AlbumName)
		kind, _ := comp.Album.Text(fields.AlbumType)
		fmt.Fprintf(w, "  %-8s %-12s %-40s %5d members, %d unresolved\n", comp.Label, kind, name, comp.Len(), len(comp.Unresolved()))
		shown++
	}
	return nil
}

func renderLimited(comp iphoto.Composition, prefix string, limit int) string {
	if limit > 0 && len(comp.References) > limit {
		comp.References = comp.References[:limit]
	}
	return composition.Render(comp, prefix)
}

func printRecord(w io.Writer, rec *plist.Dict, opts table.Options) {
	for key, v := range rec.All() {
		text, err := table.Format(v, opts)
		if err != nil {
			text = plist.Describe(v)
		}
		fmt.Fprintf(w, "  %-24s %s\n", key, text)
	}
}
