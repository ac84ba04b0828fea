package routetree

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/routetree/internal/models"
)

// MaxCodeLength bounds an airport code.
const MaxCodeLength = 10

// ValidatedNode is a draft that passed Validate against some view of the tree.
type ValidatedNode struct {
	draft models.Draft
}

// Draft returns the accepted fields, after trimming and root duration coercion.
func (v ValidatedNode) Draft() models.Draft {
	return v.draft
}

// Validate checks d against the tree seen through view. Rules run in a fixed
// order and the first failure is returned, so the same input against the same
// tree always yields the same error.
//
// When d.ID is set the draft revalidates an existing record: the duplicate
// root check skips that record, the duplicate sibling check does not.
func Validate(d models.Draft, view View) (ValidatedNode, error) {
	d.Code = strings.TrimSpace(d.Code)
	if err := validateFields(&d); err != nil {
		return ValidatedNode{}, &ValidationError{Kind: KindInvalidField, Message: err.Error()}
	}

	if d.ParentID == nil {
		if d.Position != models.PositionRoot {
			return ValidatedNode{}, invalid(KindRootPositionMismatch,
				"Root node must have position 'ROOT'.")
		}
		if d.Duration != 0 {
			return ValidatedNode{}, invalid(KindRootDurationNonZero,
				"Root node must have duration = 0 (no parent to travel from).")
		}
		d.Duration = 0
		if root, ok := view.Root(); ok && root.ID != d.ID {
			return ValidatedNode{}, invalid(KindDuplicateRoot,
				"A root node already exists: %s. The system can only have ONE root node. Please select it as parent.",
				root.Code)
		}
		return ValidatedNode{draft: d}, nil
	}

	if d.Position == models.PositionRoot {
		return ValidatedNode{}, invalid(KindNonRootCannotBeRoot,
			"Only the root node can have position 'ROOT'.")
	}
	if d.Duration <= 0 {
		return ValidatedNode{}, invalid(KindNonPositiveDuration,
			"Child nodes must have duration > 0 (distance from parent node).")
	}
	if _, taken := view.ChildAt(*d.ParentID, d.Position); taken {
		return ValidatedNode{}, invalid(KindDuplicateSibling,
			"A %s child already exists for the selected parent.", d.Position.Display())
	}
	if _, err := view.Get(*d.ParentID); err != nil {
		return ValidatedNode{}, invalid(KindDanglingParent,
			"Parent route %d does not exist.", *d.ParentID)
	}
	return ValidatedNode{draft: d}, nil
}

func validateFields(d *models.Draft) error {
	positions := make([]any, len(models.Positions))
	for i, p := range models.Positions {
		positions[i] = p
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Code, validation.Required, validation.RuneLength(1, MaxCodeLength)),
		validation.Field(&d.Position, validation.Required, validation.In(positions...)),
	)
}
