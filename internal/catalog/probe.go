package catalog

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/playperu/spotguess/internal/spotguess"
)

// ProbeSize reads just enough of an image to return its pixel size and
// format name. PNG, JPEG, GIF, WebP, BMP and TIFF are recognised.
func ProbeSize(r io.Reader) (spotguess.Size, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return spotguess.Size{}, "", fmt.Errorf("probing image: %w", err)
	}
	return spotguess.Size{W: float64(cfg.Width), H: float64(cfg.Height)}, format, nil
}

// Prober resolves map image references to image sizes. References starting
// with http:// or https:// are fetched; anything else is a path under Root.
type Prober struct {
	Root   string
	Client *http.Client
	Logger *slog.Logger
}

func (p *Prober) Probe(ctx context.Context, ref string) (spotguess.Size, error) {
	rc, err := p.open(ctx, ref)
	if err != nil {
		return spotguess.Size{}, err
	}
	defer rc.Close()

	size, _, err := ProbeSize(rc)
	if err != nil {
		return spotguess.Size{}, fmt.Errorf("%s: %w", ref, err)
	}
	return size, nil
}

func (p *Prober) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		client := p.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", ref, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: status %d", ref, resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(filepath.Join(p.Root, filepath.FromSlash(ref)))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", ref, err)
	}
	return f, nil
}

// FillSizes probes every map in m that has no stored size. Maps whose image
// cannot be read keep a zero size and are reported in the log; the viewport
// then waits for the client to report the loaded image size.
func (p *Prober) FillSizes(ctx context.Context, m *Manifest) int {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	filled := 0
	for i := range m.Maps {
		mp := &m.Maps[i]
		if mp.Width > 0 && mp.Height > 0 {
			continue
		}
		size, err := p.Probe(ctx, mp.Image)
		if err != nil {
			logger.Warn("map image size unknown", "map", mp.Name, "error", err)
			continue
		}
		mp.Width, mp.Height = size.W, size.H
		filled++
		logger.Debug("map image probed", "map", mp.Name, "width", size.W, "height", size.H)
	}
	return filled
}
