package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/spotguess/internal/catalog"
)

// handleCatalogMaps lists the maps, for checking an import.
func handleCatalogMaps(logger *slog.Logger, src catalog.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maps, err := src.ListMaps(r.Context())
		if err != nil {
			logger.Error("listing maps", "error", err)
			writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
			return
		}
		writeJSON(w, http.StatusOK, maps)
	}
}

// handleCatalogSpots lists every spot with its answer. An optional ?map=
// filters by map name.
func handleCatalogSpots(logger *slog.Logger, src catalog.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spots, err := src.ListSpots(r.Context())
		if err != nil {
			logger.Error("listing spots", "error", err)
			writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
			return
		}

		if name := r.URL.Query().Get("map"); name != "" {
			filtered := spots[:0]
			for _, sp := range spots {
				if sp.MapName == name {
					filtered = append(filtered, sp)
				}
			}
			spots = filtered
		}
		writeJSON(w, http.StatusOK, spots)
	}
}
