package snapshot

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants of a durable record: required
// identifiers, known provenance values and at most one relationship per
// child.
func (r *DurableRecord) Validate() error {
	if r == nil {
		return errors.New("nil durable record")
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid durable record: %w", err)
	}
	return r.Snapshot.checkUniqueChildren()
}

// Validate checks the structural invariants of a snapshot.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return s.checkUniqueChildren()
}

func (s *Snapshot) checkUniqueChildren() error {
	seen := make(map[string]bool, len(s.Relationships))
	for _, rel := range s.Relationships {
		if seen[rel.ChildID] {
			return fmt.Errorf("invalid snapshot: duplicate relationship for child %q", rel.ChildID)
		}
		seen[rel.ChildID] = true
	}
	return nil
}
