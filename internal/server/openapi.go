package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/spotguess/internal/handler/health"
	"github.com/playperu/spotguess/internal/session"
	"github.com/playperu/spotguess/internal/spotguess"
	"github.com/playperu/spotguess/internal/viewport"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type sessionPath struct {
	ID string `path:"id" format:"uuid"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "SpotGuess API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Drives single-player geolocation guessing sessions.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Reports the catalog database and, when configured, the catalog cache.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/catalog/maps
	listMaps, _ := r.NewOperationContext(http.MethodGet, "/api/catalog/maps")
	listMaps.SetSummary("List maps")
	listMaps.AddRespStructure([]spotguess.MapDefinition{}, openapi.WithHTTPStatus(http.StatusOK))
	listMaps.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(listMaps)

	// GET /api/catalog/spots
	listSpots, _ := r.NewOperationContext(http.MethodGet, "/api/catalog/spots")
	listSpots.SetSummary("List spots")
	listSpots.SetDescription("Lists every spot with its correct points. Filter with ?map=<map name>.")
	listSpots.AddReqStructure(struct {
		Map string `query:"map"`
	}{})
	listSpots.AddRespStructure([]spotguess.Spot{}, openapi.WithHTTPStatus(http.StatusOK))
	listSpots.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(listSpots)

	// POST /api/sessions
	create, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	create.SetSummary("Start a session")
	create.SetDescription("Loads the catalog and starts the first round. Omitted fields use the server defaults.")
	create.AddReqStructure(CreateSessionRequest{})
	create.AddRespStructure(session.Snapshot{}, openapi.WithHTTPStatus(http.StatusCreated))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(create)

	// GET /api/sessions/{id}
	get, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}")
	get.SetSummary("Get session")
	get.SetDescription("Returns the session snapshot. The spot's map and correct points are hidden while the round is played.")
	get.AddReqStructure(sessionPath{})
	get.AddRespStructure(session.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	get.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(get)

	// DELETE /api/sessions/{id}
	del, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{id}")
	del.SetSummary("Exit session")
	del.SetDescription("Abandons the session from any phase and returns its final snapshot.")
	del.AddReqStructure(sessionPath{})
	del.AddRespStructure(session.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	del.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(del)

	addCommand(r, "/map", "Select map", "Chooses the map the pin goes on. An empty mapId returns to the map list.",
		SelectMapRequest{})
	addCommand(r, "/viewport", "Lay out viewport", "Reports container and image size after load or resize. Resets pan and zoom.",
		ViewportRequest{})
	addCommand(r, "/input", "Pointer input", "Feeds a pointer, wheel or zoom button event. A click that ends no drag places the pin.",
		viewport.Event{})
	addCommand(r, "/guess", "Place pin", "Places the pin at a container-relative position.",
		GuessRequest{})
	addCommand(r, "/submit", "Submit guess", "Resolves the round. Needs a selected map and a pin.", nil)
	addCommand(r, "/hint", "Request hint", "Opens the hint confirmation.", nil)
	addCommand(r, "/hint/confirm", "Confirm hint", "Spends a hint and widens the spot image.", nil)
	addCommand(r, "/hint/cancel", "Cancel hint", "Closes the hint confirmation.", nil)
	addCommand(r, "/advance", "Advance", "Leaves the round summary for the next round or the final results.", nil)

	// GET /api/sessions/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: phase, round, complete and tick. The first event is the current snapshot.")
	getEvents.AddReqStructure(sessionPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{id}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/ws")
	getWS.SetSummary("Session WebSocket")
	getWS.SetDescription("Upgrades to a WebSocket. Send WSCommand messages; receive WSMessage replies and forwarded events.")
	getWS.AddReqStructure(sessionPath{})
	getWS.AddRespStructure(WSMessage{}, openapi.WithHTTPStatus(http.StatusSwitchingProtocols))
	_ = r.AddOperation(getWS)

	return r.Spec
}

// addCommand documents a POST under /api/sessions/{id}. body is nil for
// commands without a request body.
func addCommand(r *openapi3.Reflector, suffix, summary, description string, body any) {
	op, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}"+suffix)
	op.SetSummary(summary)
	op.SetDescription(description)
	op.AddReqStructure(sessionPath{})
	if body != nil {
		op.AddReqStructure(body)
	}
	op.AddRespStructure(session.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(op)
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
