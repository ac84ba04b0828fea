package routeservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/routetree/internal/metrics"
	"github.com/starford/routetree/internal/models"
	"github.com/starford/routetree/internal/routedb"
	"github.com/starford/routetree/internal/routetree"
)

// Publisher receives committed routes with the tree stats right after each
// commit. *sse.Broker satisfies it.
type Publisher interface {
	PublishRouteCreated(r models.Route, stats routetree.Stats)
}

// RouteDetail is the full representation of a route node.
type RouteDetail struct {
	models.Route
	Label   string `json:"label"`
	Depth   int    `json:"depth"`
	LeftID  *int64 `json:"left_id"`
	RightID *int64 `json:"right_id"`
}

// Reachability is the outcome of a directional traversal.
type Reachability struct {
	Start     models.Route     `json:"start"`
	Result    models.Route     `json:"result"`
	Direction models.Direction `json:"direction"`
	IsStart   bool             `json:"is_start"`
}

// Dashboard summarizes the whole tree.
type Dashboard struct {
	TotalNodes    int           `json:"total_nodes"`
	TotalDuration int64         `json:"total_duration"`
	Root          *models.Route `json:"root"`
	Longest       *models.Route `json:"longest"`
	Shortest      *models.Route `json:"shortest"`
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where committed routes are announced.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// Service coordinates the in-memory tree, persistence and notifications.
type Service struct {
	store   *routetree.Store
	db      routedb.RouteIndex
	events  Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a new route service.
func NewService(store *routetree.Store, db routedb.RouteIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load commits every persisted route into the tree, in creation order.
// It is meant to run once, before the service accepts submissions.
func (s *Service) Load(ctx context.Context) error {
	routes, err := s.db.All(ctx)
	if err != nil {
		return err
	}
	err = s.store.Update(func(t *routetree.Tree) error {
		for _, r := range routes {
			t.Commit(r)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.SetRoutes(len(routes))
	s.logger.Info("routes loaded", slog.Int("count", len(routes)))
	return nil
}

// CreateRoute validates d, persists it and commits it to the tree. The tree
// stays locked for writers from validation until commit.
func (s *Service) CreateRoute(ctx context.Context, d models.Draft) (*RouteDetail, error) {
	var (
		created models.Route
		stats   routetree.Stats
	)
	err := s.store.Update(func(t *routetree.Tree) error {
		v, err := routetree.Validate(d, t)
		if err != nil {
			return err
		}
		staged := t.Stage(v)
		if err := s.db.Insert(ctx, staged); err != nil {
			return err
		}
		t.Commit(staged)
		created = staged
		stats = t.Stats()
		return nil
	})
	if err != nil {
		var verr *routetree.ValidationError
		if errors.As(err, &verr) {
			s.metrics.RouteRejected(string(verr.Kind))
			s.logger.Debug("route rejected",
				slog.String("code", d.Code),
				slog.String("kind", string(verr.Kind)))
		}
		return nil, err
	}

	s.metrics.RouteCreated(stats.TotalNodes)
	if s.events != nil {
		s.events.PublishRouteCreated(created, stats)
	}
	s.logger.Info("route created",
		slog.Int64("id", created.ID),
		slog.String("code", created.Code),
		slog.String("position", string(created.Position)))
	return s.GetRoute(ctx, created.ID)
}

// GetRoute returns a route with its depth and child ids.
func (s *Service) GetRoute(_ context.Context, id int64) (*RouteDetail, error) {
	var out *RouteDetail
	err := s.store.View(func(v routetree.View) error {
		d, err := detail(v, id)
		out = d
		return err
	})
	return out, err
}

// ListRoutes returns every route in creation order.
func (s *Service) ListRoutes(_ context.Context) ([]models.Route, error) {
	return nonNilSlice(s.store.All()), nil
}

// Children returns the left then right child of id.
func (s *Service) Children(_ context.Context, id int64) ([]models.Route, error) {
	children, err := s.store.Children(id)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(children), nil
}

// LastReachable follows dir from startID to the last node reachable that way.
func (s *Service) LastReachable(_ context.Context, startID int64, dir models.Direction) (*Reachability, error) {
	var out Reachability
	err := s.store.View(func(v routetree.View) error {
		start, err := v.Get(startID)
		if err != nil {
			return err
		}
		result, err := v.LastReachable(startID, dir)
		if err != nil {
			return err
		}
		out = Reachability{Start: start, Result: result, Direction: dir, IsStart: result.ID == start.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Longest returns the route with the largest duration, or nil when the tree is empty.
func (s *Service) Longest(_ context.Context) (*models.Route, error) {
	if r, ok := s.store.Longest(); ok {
		return &r, nil
	}
	return nil, nil
}

// Shortest returns the route with the smallest duration, or nil when the tree is empty.
func (s *Service) Shortest(_ context.Context) (*models.Route, error) {
	if r, ok := s.store.Shortest(); ok {
		return &r, nil
	}
	return nil, nil
}

// Depth returns the number of parent hops from id to the root.
func (s *Service) Depth(_ context.Context, id int64) (int, error) {
	return s.store.Depth(id)
}

// Dashboard returns the tree summary.
func (s *Service) Dashboard(_ context.Context) Dashboard {
	st := s.store.Stats()
	return Dashboard{
		TotalNodes:    st.TotalNodes,
		TotalDuration: st.TotalDuration,
		Root:          st.Root,
		Longest:       st.Longest,
		Shortest:      st.Shortest,
	}
}

// Ready checks the backing database.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("routeservice: database not ready: %w", err)
	}
	return nil
}

func detail(v routetree.View, id int64) (*RouteDetail, error) {
	r, err := v.Get(id)
	if err != nil {
		return nil, err
	}
	depth, err := v.Depth(id)
	if err != nil {
		return nil, err
	}
	d := &RouteDetail{Route: r, Label: r.String(), Depth: depth}
	if c, ok := v.ChildAt(id, models.PositionLeft); ok {
		d.LeftID = &c.ID
	}
	if c, ok := v.ChildAt(id, models.PositionRight); ok {
		d.RightID = &c.ID
	}
	return d, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
