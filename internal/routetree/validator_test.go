package routetree

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/routetree/internal/apperr"
	"github.com/starford/routetree/internal/models"
)

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "error %v is not a ValidationError", err)
	assert.Equal(t, want, verr.Kind, verr.Message)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidate_Rules(t *testing.T) {
	s := NewStore()
	root := mustSubmit(t, s, rootDraft("DXB"))
	mustSubmit(t, s, childDraft("JFK", root.ID, models.PositionLeft, 120))

	tests := []struct {
		name  string
		draft models.Draft
		want  Kind
	}{
		{"blank code", models.Draft{Code: "  ", Position: models.PositionRoot}, KindInvalidField},
		{"code too long", models.Draft{Code: "ABCDEFGHIJK", Position: models.PositionRoot}, KindInvalidField},
		{"unknown position", models.Draft{Code: "X", ParentID: ptr(root.ID), Position: "UP", Duration: 1}, KindInvalidField},
		{"root with left position", models.Draft{Code: "X", Position: models.PositionLeft}, KindRootPositionMismatch},
		{"root with duration", models.Draft{Code: "X", Position: models.PositionRoot, Duration: 5}, KindRootDurationNonZero},
		{"second root", rootDraft("SEC"), KindDuplicateRoot},
		{"child claims root", childDraft("X", root.ID, models.PositionRoot, 5), KindNonRootCannotBeRoot},
		{"child zero duration", childDraft("X", root.ID, models.PositionRight, 0), KindNonPositiveDuration},
		{"child negative duration", childDraft("X", root.ID, models.PositionRight, -3), KindNonPositiveDuration},
		{"duplicate left", childDraft("X", root.ID, models.PositionLeft, 5), KindDuplicateSibling},
		{"dangling parent", childDraft("X", 404, models.PositionLeft, 5), KindDanglingParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.View(func(v View) error {
				_, err := Validate(tt.draft, v)
				return err
			})
			requireKind(t, err, tt.want)
		})
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	s := NewStore()
	mustSubmit(t, s, rootDraft("DXB"))

	// Wrong position, non-zero duration and a duplicate root all at once.
	_, err := s.Submit(models.Draft{Code: "X", Position: models.PositionRight, Duration: 9})
	requireKind(t, err, KindRootPositionMismatch)

	_, err = s.Submit(models.Draft{Code: "X", Position: models.PositionRoot, Duration: 9})
	requireKind(t, err, KindRootDurationNonZero)

	// Root position checked before duration for children.
	_, err = s.Submit(childDraft("X", 1, models.PositionRoot, 0))
	requireKind(t, err, KindNonRootCannotBeRoot)
}

func TestValidate_DuplicateRootRegardlessOfFields(t *testing.T) {
	s := NewStore()
	mustSubmit(t, s, rootDraft("DXB"))

	_, err := s.Submit(rootDraft("AUH"))
	requireKind(t, err, KindDuplicateRoot)
	assert.True(t, strings.Contains(err.Error(), "DXB"))
}

func TestValidate_DuplicateSiblingOnBothSides(t *testing.T) {
	s := NewStore()
	root := mustSubmit(t, s, rootDraft("DXB"))
	for _, pos := range []models.Position{models.PositionLeft, models.PositionRight} {
		mustSubmit(t, s, childDraft("A", root.ID, pos, 1))
		_, err := s.Submit(childDraft("B", root.ID, pos, 1))
		requireKind(t, err, KindDuplicateSibling)
	}
}

func TestValidate_RootCodeIsTrimmedAndDurationZero(t *testing.T) {
	v, err := Validate(models.Draft{Code: "  DXB ", Position: models.PositionRoot}, NewTree())
	require.NoError(t, err)
	assert.Equal(t, "DXB", v.Draft().Code)
	assert.Equal(t, 0, v.Draft().Duration)
}

func TestValidate_NoSideEffects(t *testing.T) {
	tree := NewTree()
	_, err := Validate(rootDraft("DXB"), tree)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
}

// Revalidating an existing root excludes its own record from the duplicate
// root check, while revalidating an existing child does not exclude its own
// slot from the duplicate sibling check. Both behaviors are kept as is.
func TestValidate_EditAsymmetry_RootExcludesSelfSiblingDoesNot(t *testing.T) {
	s := NewStore()
	root := mustSubmit(t, s, rootDraft("DXB"))
	child := mustSubmit(t, s, childDraft("JFK", root.ID, models.PositionLeft, 120))

	err := s.View(func(v View) error {
		d := rootDraft("DXB")
		d.ID = root.ID
		_, err := Validate(d, v)
		return err
	})
	assert.NoError(t, err)

	err = s.View(func(v View) error {
		d := childDraft("JFK", root.ID, models.PositionLeft, 150)
		d.ID = child.ID
		_, err := Validate(d, v)
		return err
	})
	requireKind(t, err, KindDuplicateSibling)
}

func TestSubmit_ConcurrentWritersKeepSingleRoot(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Submit(rootDraft("DXB"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, KindDuplicateRoot)
	}
	assert.Equal(t, 1, ok)
	assertSingleRoot(t, s)
}
