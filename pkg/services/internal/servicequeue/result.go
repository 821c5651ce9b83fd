package servicequeue

// NamedResult pairs a provider name with its outcome.
type NamedResult[R any] struct {
	name  string
	value R
	err   error
}

// NewNamedResult wraps a successful outcome.
func NewNamedResult[R any](name string, value R) *NamedResult[R] {
	return &NamedResult[R]{name: name, value: value}
}

// NewNamedError wraps a failed outcome.
func NewNamedError[R any](name string, err error) *NamedResult[R] {
	return &NamedResult[R]{name: name, err: err}
}

// Name identifies the provider that produced this result.
func (r *NamedResult[R]) Name() string {
	return r.name
}

// IsError reports whether the provider failed.
func (r *NamedResult[R]) IsError() bool {
	return r.err != nil
}

// Value returns the successful outcome; zero when the provider failed.
func (r *NamedResult[R]) Value() R {
	return r.value
}

// Err returns the failure; nil when the provider succeeded.
func (r *NamedResult[R]) Err() error {
	return r.err
}
