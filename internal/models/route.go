// Package models defines the domain types for routetree.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Position is a node's structural role relative to its parent.
type Position string

const (
	PositionRoot  Position = "ROOT"
	PositionLeft  Position = "L"
	PositionRight Position = "R"
)

// Positions lists every accepted position value.
var Positions = []Position{PositionRoot, PositionLeft, PositionRight}

// Display returns the human-readable label of the position.
func (p Position) Display() string {
	switch p {
	case PositionRoot:
		return "Root"
	case PositionLeft:
		return "Left"
	case PositionRight:
		return "Right"
	}
	return string(p)
}

// ParsePosition accepts the canonical codes as well as the words
// "root", "left" and "right" in any case.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ROOT":
		return PositionRoot, nil
	case "L", "LEFT":
		return PositionLeft, nil
	case "R", "RIGHT":
		return PositionRight, nil
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// Direction selects which child to follow during traversal.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection parses "left" or "right", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return DirectionLeft, nil
	case "right", "r":
		return DirectionRight, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Position returns the child position that a step in this direction lands on.
func (d Direction) Position() Position {
	if d == DirectionLeft {
		return PositionLeft
	}
	return PositionRight
}

// Route is one airport node in the route tree.
type Route struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	ParentID  *int64    `json:"parent_id"`
	Position  Position  `json:"position"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// IsRoot reports whether the route has no parent.
func (r Route) IsRoot() bool {
	return r.ParentID == nil
}

// Clone returns a copy of r that shares no memory with it.
func (r Route) Clone() Route {
	if r.ParentID != nil {
		p := *r.ParentID
		r.ParentID = &p
	}
	return r
}

func (r Route) String() string {
	return fmt.Sprintf("%s (%s) - %dkm", r.Code, r.Position.Display(), r.Duration)
}

// Draft is a proposed route submitted for validation.
// ID is zero for a new node and set when revalidating an existing record.
type Draft struct {
	ID       int64    `json:"id,omitempty" yaml:"-"`
	Code     string   `json:"code" yaml:"code"`
	ParentID *int64   `json:"parent_id" yaml:"parent_id"`
	Position Position `json:"position" yaml:"position"`
	Duration int      `json:"duration" yaml:"duration"`
}
