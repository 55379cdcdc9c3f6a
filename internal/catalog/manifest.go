package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"

	"github.com/playperu/spotguess/internal/spotguess"
)

// Manifest is the import format of the catalog. Field names follow the
// maps and spots table exports of the hosted game, so an export can be
// imported unchanged.
type Manifest struct {
	Maps  []ManifestMap  `json:"maps"`
	Spots []ManifestSpot `json:"spots"`
}

type ManifestMap struct {
	// ID defaults to a slug of Name.
	ID    string `json:"id,omitempty"`
	Name  string `json:"map_name"`
	Image string `json:"topdown_image_url"`

	// Width and Height are the natural image size in pixels, filled in by
	// the import tool when the image is available locally.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

type ManifestSpot struct {
	ID      FlexID            `json:"id"`
	MapName string            `json:"map_name"`
	Coords  []spotguess.Point `json:"coords"`
	Images  ManifestImages    `json:"images"`
}

// ManifestImages names the spot images by zoom level. zoom3 is the closest
// crop and is shown before any hint.
type ManifestImages struct {
	Zoom1 string `json:"zoom1"`
	Zoom2 string `json:"zoom2"`
	Zoom3 string `json:"zoom3"`
}

// FlexID accepts both string and numeric ids.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := sonic.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	for _, c := range b {
		if (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("id %s is neither a string nor an integer", b)
		}
	}
	*id = FlexID(b)
	return nil
}

// DecodeManifest reads, normalises and validates a manifest.
func DecodeManifest(r io.Reader) (Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	m.normalize()
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// EncodeManifest writes m as indented JSON.
func EncodeManifest(w io.Writer, m Manifest) error {
	data, err := sonic.ConfigStd.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func (m *Manifest) normalize() {
	for i := range m.Maps {
		mp := &m.Maps[i]
		mp.Name = strings.TrimSpace(mp.Name)
		if mp.ID == "" {
			mp.ID = Slug(mp.Name)
		}
	}
	for i := range m.Spots {
		m.Spots[i].MapName = strings.TrimSpace(m.Spots[i].MapName)
	}
}

// Validate reports every problem in m at once.
func (m Manifest) Validate() error {
	var errs []error

	ids := map[string]bool{}
	names := map[string]bool{}
	for i, mp := range m.Maps {
		switch {
		case mp.Name == "":
			errs = append(errs, fmt.Errorf("map %d: empty name", i))
		case names[mp.Name]:
			errs = append(errs, fmt.Errorf("map %q: duplicate name", mp.Name))
		}
		if mp.ID == "" {
			errs = append(errs, fmt.Errorf("map %d: empty id", i))
		} else if ids[mp.ID] {
			errs = append(errs, fmt.Errorf("map %q: duplicate id", mp.ID))
		}
		if mp.Image == "" {
			errs = append(errs, fmt.Errorf("map %q: no image", mp.Name))
		}
		if (mp.Width > 0) != (mp.Height > 0) || mp.Width < 0 || mp.Height < 0 {
			errs = append(errs, fmt.Errorf("map %q: bad size %gx%g", mp.Name, mp.Width, mp.Height))
		}
		ids[mp.ID] = true
		names[mp.Name] = true
	}

	spotIDs := map[FlexID]bool{}
	for i, sp := range m.Spots {
		if sp.ID == "" {
			errs = append(errs, fmt.Errorf("spot %d: empty id", i))
		} else if spotIDs[sp.ID] {
			errs = append(errs, fmt.Errorf("spot %s: duplicate id", sp.ID))
		}
		spotIDs[sp.ID] = true

		if !names[sp.MapName] {
			errs = append(errs, fmt.Errorf("spot %s: unknown map %q", sp.ID, sp.MapName))
		}
		if len(sp.Coords) == 0 {
			errs = append(errs, fmt.Errorf("spot %s: no correct points", sp.ID))
		}
		for _, p := range sp.Coords {
			if !p.InCanonicalSpace() {
				errs = append(errs, fmt.Errorf("spot %s: point (%g,%g) outside canonical space", sp.ID, p.X, p.Y))
			}
		}
		if sp.Images.Zoom1 == "" || sp.Images.Zoom2 == "" || sp.Images.Zoom3 == "" {
			errs = append(errs, fmt.Errorf("spot %s: missing image variant", sp.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, errors.Join(errs...))
	}
	return nil
}

func (m Manifest) MapDefinitions() []spotguess.MapDefinition {
	out := make([]spotguess.MapDefinition, 0, len(m.Maps))
	for _, mp := range m.Maps {
		out = append(out, spotguess.MapDefinition{
			ID:              mp.ID,
			Name:            mp.Name,
			DisplayImageRef: mp.Image,
			NaturalSize:     spotguess.Size{W: mp.Width, H: mp.Height},
		})
	}
	return out
}

func (m Manifest) SpotList() []spotguess.Spot {
	out := make([]spotguess.Spot, 0, len(m.Spots))
	for _, sp := range m.Spots {
		out = append(out, spotguess.Spot{
			ID:            string(sp.ID),
			MapName:       sp.MapName,
			CorrectPoints: append([]spotguess.Point{}, sp.Coords...),
			Images: spotguess.ImageVariants{
				Tier0: sp.Images.Zoom3,
				Tier1: sp.Images.Zoom2,
				Tier2: sp.Images.Zoom1,
			},
		})
	}
	return out
}

// Slug lower-cases name and replaces runs of anything but letters and digits
// with a single dash.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
