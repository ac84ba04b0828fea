package api

import (
	"github.com/starford/routetree/internal/models"
	"github.com/starford/routetree/internal/routeservice"
)

// CreateRouteRequest is the request body for creating a route node.
// Position accepts ROOT, L, R or the words root, left, right.
type CreateRouteRequest struct {
	Code     string `json:"code" example:"JFK" validate:"required"`
	ParentID *int64 `json:"parent_id" example:"1"`
	Position string `json:"position" example:"L" validate:"required"`
	Duration int    `json:"duration" example:"120"`
}

// Draft converts the request into a draft for validation. Unknown positions
// pass through unchanged so validation reports them.
func (r CreateRouteRequest) Draft() models.Draft {
	pos, err := models.ParsePosition(r.Position)
	if err != nil {
		pos = models.Position(r.Position)
	}
	return models.Draft{
		Code:     r.Code,
		ParentID: r.ParentID,
		Position: pos,
		Duration: r.Duration,
	}
}

// RouteDetail is the full route response type (aliased from the domain layer).
type RouteDetail = routeservice.RouteDetail

// Reachability is the traversal response type (aliased from the domain layer).
type Reachability = routeservice.Reachability

// Dashboard is the summary response type (aliased from the domain layer).
type Dashboard = routeservice.Dashboard

// RouteListResponse wraps the full route listing.
type RouteListResponse struct {
	Routes []models.Route `json:"routes" validate:"required"`
	Total  int            `json:"total" example:"3" validate:"required"`
}

// ChildrenResponse lists a node's children, left first.
type ChildrenResponse struct {
	Children []models.Route `json:"children" validate:"required"`
}
