package routedb

import (
	"context"

	"github.com/starford/routetree/internal/models"
)

// RouteIndex defines the persistence operations the service depends on.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type RouteIndex interface {
	Insert(ctx context.Context, r models.Route) error
	Get(ctx context.Context, id int64) (*models.Route, error)
	All(ctx context.Context) ([]models.Route, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies RouteIndex at compile time.
var _ RouteIndex = (*DB)(nil)
