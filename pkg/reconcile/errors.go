package reconcile

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
)

// MutationError reports a mutation the backend rejected or that failed in
// transport. The tentative snapshot has already been rolled back when it is
// returned. Message is suitable for a user-visible notice.
type MutationError struct {
	Op      string
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is matches apperrors.ErrMutationRejected.
func (e *MutationError) Is(target error) bool {
	return target == apperrors.ErrMutationRejected
}
