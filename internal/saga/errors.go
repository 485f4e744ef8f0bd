package saga

import "errors"

var (
	// ErrNoHandler means an event reached a component that neither handles
	// nor explicitly ignores its type.
	ErrNoHandler = errors.New("no handler registered for event type")

	// ErrSagaInconsistent marks an event that references a saga with no
	// matching prior state.
	ErrSagaInconsistent = errors.New("saga inconsistency")

	ErrMalformed = errors.New("malformed envelope")

	errPanic = errors.New("handler panic")
)

// IsPermanent reports whether redelivering the same envelope can never
// succeed. Permanent failures are dead-lettered instead of retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNoHandler) ||
		errors.Is(err, ErrSagaInconsistent) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, errPanic)
}
