// Package servicequeue coordinates calls to interchangeable chain-data
// providers. A queue holds the providers that implement one method and
// either races through them until one answers (OneByOne) or fans out to all
// of them (All).
package servicequeue

import "context"

// Service is a named provider function taking only a context.
type Service[R any] struct {
	name    string
	service func(context.Context) (R, error)
}

// NewService names a provider function.
func NewService[R any](name string, service func(context.Context) (R, error)) *Service[R] {
	return &Service[R]{name: name, service: service}
}

// Name identifies the provider in results and logs.
func (s *Service[R]) Name() string {
	return s.name
}

// Service1 is a named provider function taking a context and one argument.
type Service1[A, R any] struct {
	name    string
	service func(context.Context, A) (R, error)
}

// NewService1 names a provider function with one argument.
func NewService1[A, R any](name string, service func(context.Context, A) (R, error)) *Service1[A, R] {
	return &Service1[A, R]{name: name, service: service}
}

// Name identifies the provider in results and logs.
func (s *Service1[A, R]) Name() string {
	return s.name
}

// Service2 is a named provider function taking a context and two arguments.
type Service2[A, B, R any] struct {
	name    string
	service func(context.Context, A, B) (R, error)
}

// NewService2 names a provider function with two arguments.
func NewService2[A, B, R any](name string, service func(context.Context, A, B) (R, error)) *Service2[A, B, R] {
	return &Service2[A, B, R]{name: name, service: service}
}

// Name identifies the provider in results and logs.
func (s *Service2[A, B, R]) Name() string {
	return s.name
}
