package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/routetree/internal/apperr"
	"github.com/starford/routetree/internal/models"
	"github.com/starford/routetree/internal/routeservice"
	"github.com/starford/routetree/internal/routetree"
)

// Handler holds API route handlers.
type Handler struct {
	svc *routeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *routeservice.Service) *Handler {
	return &Handler{svc: svc}
}

// routeID extracts the {id} URL parameter.
func routeID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	var verr *routetree.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: verr.Message, Kind: string(verr.Kind)})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("route conflicts with stored data"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListRoutes handles GET /api/routes.
//
//	@Summary		List every route in creation order
//	@Tags			routes
//	@Produce		json
//	@Success		200		{object}	RouteListResponse
//	@Router			/routes [get]
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.svc.ListRoutes(r.Context())
	if err != nil {
		writeError(w, "list routes", err)
		return
	}
	writeJSON(w, http.StatusOK, RouteListResponse{Routes: routes, Total: len(routes)})
}

// CreateRoute handles POST /api/routes.
//
//	@Summary		Create a route node
//	@Tags			routes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRouteRequest	true	"Route to create"
//	@Success		201		{object}	RouteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/routes [post]
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	route, err := h.svc.CreateRoute(r.Context(), req.Draft())
	if err != nil {
		writeError(w, "create route", err)
		return
	}
	writeJSON(w, http.StatusCreated, route)
}

// GetRoute handles GET /api/routes/{id}.
//
//	@Summary		Get a route with its depth and children
//	@Tags			routes
//	@Produce		json
//	@Param			id	path		int	true	"Route id"
//	@Success		200	{object}	RouteDetail
//	@Failure		404	{object}	errResponse
//	@Router			/routes/{id} [get]
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid route id"))
		return
	}
	route, err := h.svc.GetRoute(r.Context(), id)
	if err != nil {
		writeError(w, "get route", err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// Children handles GET /api/routes/{id}/children.
//
//	@Summary		List a route's children, left first
//	@Tags			routes
//	@Produce		json
//	@Param			id	path		int	true	"Route id"
//	@Success		200	{object}	ChildrenResponse
//	@Failure		404	{object}	errResponse
//	@Router			/routes/{id}/children [get]
func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid route id"))
		return
	}
	children, err := h.svc.Children(r.Context(), id)
	if err != nil {
		writeError(w, "children", err)
		return
	}
	writeJSON(w, http.StatusOK, ChildrenResponse{Children: children})
}

// LastReachable handles GET /api/routes/{id}/last.
//
//	@Summary		Follow one direction to the last reachable route
//	@Tags			queries
//	@Produce		json
//	@Param			id			path		int		true	"Starting route id"
//	@Param			direction	query		string	true	"Direction"	Enums(left, right)
//	@Success		200			{object}	Reachability
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/routes/{id}/last [get]
func (h *Handler) LastReachable(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid route id"))
		return
	}
	dir, err := models.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'direction' must be left or right"))
		return
	}
	res, err := h.svc.LastReachable(r.Context(), id, dir)
	if err != nil {
		writeError(w, "last reachable", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Longest handles GET /api/routes/longest.
//
//	@Summary		Route with the longest duration
//	@Tags			queries
//	@Produce		json
//	@Success		200	{object}	models.Route
//	@Success		204	"Tree is empty"
//	@Router			/routes/longest [get]
func (h *Handler) Longest(w http.ResponseWriter, r *http.Request) {
	route, err := h.svc.Longest(r.Context())
	writeOptional(w, "longest", route, err)
}

// Shortest handles GET /api/routes/shortest.
//
//	@Summary		Route with the shortest duration
//	@Tags			queries
//	@Produce		json
//	@Success		200	{object}	models.Route
//	@Success		204	"Tree is empty"
//	@Router			/routes/shortest [get]
func (h *Handler) Shortest(w http.ResponseWriter, r *http.Request) {
	route, err := h.svc.Shortest(r.Context())
	writeOptional(w, "shortest", route, err)
}

func writeOptional(w http.ResponseWriter, op string, route *models.Route, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	if route == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Tree summary
//	@Tags			queries
//	@Produce		json
//	@Success		200	{object}	Dashboard
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dashboard(r.Context()))
}
