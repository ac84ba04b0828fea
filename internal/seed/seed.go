// Package seed imports route drafts from a YAML file.
//
// Entries are submitted in file order. An entry names its parent either by the
// code of an earlier entry in the same file (parent) or by the id of a route
// that is already stored (parent_id).
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/routetree/internal/models"
	"github.com/starford/routetree/internal/routeservice"
)

// File is the top-level document of a seed file.
type File struct {
	Routes []Entry `yaml:"routes"`
}

// Entry is one route in a seed file.
type Entry struct {
	Code     string `yaml:"code"`
	Parent   string `yaml:"parent"`
	ParentID *int64 `yaml:"parent_id"`
	Position string `yaml:"position"`
	Duration int    `yaml:"duration"`
}

// Creator is the part of the route service the importer needs.
type Creator interface {
	CreateRoute(ctx context.Context, d models.Draft) (*routeservice.RouteDetail, error)
}

// Result reports what an import did.
type Result struct {
	Created []models.Route
	// Skipped lists stored routes that matched an entry, see Resume.
	Skipped []models.Route
}

// Parse decodes a seed document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	return &f, nil
}

// LoadFile reads and decodes the seed file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Import submits every entry in order and stops at the first failure. Routes
// created before the failure stay committed and are listed in the result.
func Import(ctx context.Context, svc Creator, f *File) (*Result, error) {
	return Resume(ctx, svc, f, nil)
}

// Resume is Import for a tree that may already hold part of the file, such
// as after an interrupted import. An entry whose code, parent and position
// match a route in existing is skipped and that route stands in for it when
// later entries name it as parent.
func Resume(ctx context.Context, svc Creator, f *File, existing []models.Route) (*Result, error) {
	res := &Result{}
	byCode := make(map[string]int64, len(f.Routes))

	for i, e := range f.Routes {
		d, err := e.draft(byCode)
		if err != nil {
			return res, fmt.Errorf("seed: entry %d (%s): %w", i+1, e.Code, err)
		}
		if r, ok := match(existing, d); ok {
			if _, dup := byCode[r.Code]; !dup {
				byCode[r.Code] = r.ID
			}
			res.Skipped = append(res.Skipped, r)
			continue
		}
		created, err := svc.CreateRoute(ctx, d)
		if err != nil {
			return res, fmt.Errorf("seed: entry %d (%s): %w", i+1, e.Code, err)
		}
		if _, dup := byCode[created.Code]; !dup {
			byCode[created.Code] = created.ID
		}
		res.Created = append(res.Created, created.Route)
	}
	return res, nil
}

func match(existing []models.Route, d models.Draft) (models.Route, bool) {
	code := strings.TrimSpace(d.Code)
	for _, r := range existing {
		if r.Code != code || r.Position != d.Position {
			continue
		}
		if (r.ParentID == nil) != (d.ParentID == nil) {
			continue
		}
		if r.ParentID != nil && *r.ParentID != *d.ParentID {
			continue
		}
		return r, true
	}
	return models.Route{}, false
}

func (e Entry) draft(byCode map[string]int64) (models.Draft, error) {
	if e.Parent != "" && e.ParentID != nil {
		return models.Draft{}, errors.New("set parent or parent_id, not both")
	}
	pos, err := models.ParsePosition(e.Position)
	if err != nil {
		pos = models.Position(e.Position)
	}
	d := models.Draft{Code: e.Code, ParentID: e.ParentID, Position: pos, Duration: e.Duration}
	if e.Parent != "" {
		id, ok := byCode[e.Parent]
		if !ok {
			return models.Draft{}, fmt.Errorf("parent %q is not defined earlier in the file", e.Parent)
		}
		d.ParentID = &id
	}
	return d, nil
}
