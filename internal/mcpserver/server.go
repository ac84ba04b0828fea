// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes route tree tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/routetree/internal/apperr"
	"github.com/starford/routetree/internal/models"
	"github.com/starford/routetree/internal/routeservice"
)

const rulesURI = "routetree://rules"

// Server wraps the MCP server with route tree tools.
type Server struct {
	mcp *server.MCPServer
	svc *routeservice.Service
}

// New creates a new MCP server with all route tools registered.
func New(svc *routeservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"routetree",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_route",
		mcp.WithDescription("Add an airport node to the route tree. "+
			"Read the rules first via the get_route_rules tool or the "+rulesURI+" resource."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Airport code, 1 to 10 characters (e.g. DXB)")),
		mcp.WithString("position", mcp.Required(), mcp.Description("ROOT, L or R"),
			mcp.Enum("ROOT", "L", "R")),
		mcp.WithNumber("parent_id", mcp.Description("Id of the parent route; omit for the root")),
		mcp.WithNumber("duration", mcp.Description("Distance in km from the parent; 0 for the root")),
	), s.addRoute)

	s.mcp.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List every route in creation order."),
	), s.listRoutes)

	s.mcp.AddTool(mcp.NewTool("find_last_reachable",
		mcp.WithDescription("Follow one direction from a start route until no child exists that way."),
		mcp.WithNumber("start_id", mcp.Required(), mcp.Description("Id of the starting route")),
		mcp.WithString("direction", mcp.Required(), mcp.Description("left or right"),
			mcp.Enum("left", "right")),
	), s.findLastReachable)

	s.mcp.AddTool(mcp.NewTool("longest_duration",
		mcp.WithDescription("Route with the longest duration across the whole tree."),
	), s.longestDuration)

	s.mcp.AddTool(mcp.NewTool("shortest_duration",
		mcp.WithDescription("Route with the shortest duration across the whole tree."),
	), s.shortestDuration)

	s.mcp.AddTool(mcp.NewTool("route_depth",
		mcp.WithDescription("Number of hops from a route to the root."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Route id")),
	), s.routeDepth)

	s.mcp.AddTool(mcp.NewTool("get_route_rules",
		mcp.WithDescription("Returns the rules every route must satisfy. "+
			"Call this before adding routes."),
	), s.getRouteRules)

	s.mcp.AddResource(
		mcp.NewResource(rulesURI, "Route Tree Rules",
			mcp.WithResourceDescription("Structural rules of the airport route tree."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("route not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) addRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawPos, err := req.RequireString("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos, err := models.ParsePosition(rawPos)
	if err != nil {
		pos = models.Position(rawPos)
	}

	d := models.Draft{Code: code, Position: pos, Duration: req.GetInt("duration", 0)}
	if _, ok := req.GetArguments()["parent_id"]; ok {
		parent, err := req.RequireInt("parent_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id := int64(parent)
		d.ParentID = &id
	}

	route, err := s.svc.CreateRoute(ctx, d)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(route), nil
}

func (s *Server) listRoutes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routes, err := s.svc.ListRoutes(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(routes), nil
}

func (s *Server) findLastReachable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireInt("start_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawDir, err := req.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := models.ParseDirection(rawDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.LastReachable(ctx, int64(start), dir)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) longestDuration(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	route, err := s.svc.Longest(ctx)
	return optionalResult(route, err), nil
}

func (s *Server) shortestDuration(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	route, err := s.svc.Shortest(ctx)
	return optionalResult(route, err), nil
}

func optionalResult(route *models.Route, err error) *mcp.CallToolResult {
	if err != nil {
		return errorResult(err)
	}
	if route == nil {
		return mcp.NewToolResultText("the route tree is empty")
	}
	return jsonResult(route)
}

func (s *Server) routeDepth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth, err := s.svc.Depth(ctx, int64(id))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", depth)), nil
}

func (s *Server) getRouteRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RouteRulesContract), nil
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesURI,
			MIMEType: "text/markdown",
			Text:     RouteRulesContract,
		},
	}, nil
}
