package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/spotguess/internal/handler/health"
)

func addRoutes(r chi.Router, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("SpotGuess API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(d.Logger, d.Required, d.Optional).Routes())

	r.Get("/api/catalog/maps", handleCatalogMaps(d.Logger, d.Catalog))
	r.Get("/api/catalog/spots", handleCatalogSpots(d.Logger, d.Catalog))

	r.Post("/api/sessions", handleCreateSession(d.Logger, d.Sessions))

	// {id} resolved by sessionMiddleware.
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Use(sessionMiddleware(d.Sessions))
		r.Get("/", handleGetSession())
		r.Delete("/", handleDeleteSession(d.Sessions))

		r.Post("/map", handleSelectMap())
		r.Post("/viewport", handleLayoutViewport())
		r.Post("/input", handleInput())
		r.Post("/guess", handlePlaceGuess())
		r.Post("/submit", handleSubmit())
		r.Post("/hint", handleHint())
		r.Post("/hint/confirm", handleHintConfirm())
		r.Post("/hint/cancel", handleHintCancel())
		r.Post("/advance", handleAdvance())

		r.Get("/events", handleEvents(d.Broker))
		r.Get("/ws", handleWS(d.Logger, d.Broker, d.Sessions))
	})
}
