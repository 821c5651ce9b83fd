package servicequeue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/go-softwarelab/common/pkg/is"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
)

// ErrEmptyResult marks a provider that answered without an error but with a
// nil result.
var ErrEmptyResult = fmt.Errorf("service returned an empty result")

// ErrNoServicesRegistered marks a queue with no providers for the method.
var ErrNoServicesRegistered = fmt.Errorf("no services registered")

// Queue dispatches a no-argument method across its providers.
type Queue[R any] struct {
	logger     *slog.Logger
	methodName string
	services   []*Service[R]
}

// NewQueue builds a queue for the named method.
func NewQueue[R any](logger *slog.Logger, methodName string, services ...*Service[R]) Queue[R] {
	return Queue[R]{
		logger:     logging.Child(logger, "services."+methodName),
		methodName: methodName,
		services:   services,
	}
}

// OneByOne tries providers in registration order until one succeeds.
func (q *Queue[R]) OneByOne(ctx context.Context) (R, error) {
	return oneByOne(q.logger, q.services, func(s *Service[R]) (R, error) {
		return s.service(ctx)
	})
}

// All calls every provider in parallel and returns one result per provider,
// in registration order.
func (q *Queue[R]) All(ctx context.Context) ([]*NamedResult[R], error) {
	return all(ctx, q.logger, q.services, func(ctx context.Context, s *Service[R]) (R, error) {
		return s.service(ctx)
	})
}

// GetNames returns the method name and provider names for diagnostics.
func (q *Queue[R]) GetNames() (methodName string, serviceNames []string) {
	return q.methodName, names(q.services)
}

// Queue1 dispatches a one-argument method across its providers.
type Queue1[A, R any] struct {
	logger     *slog.Logger
	methodName string
	services   []*Service1[A, R]
}

// NewQueue1 builds a queue for the named method.
func NewQueue1[A, R any](logger *slog.Logger, methodName string, services ...*Service1[A, R]) Queue1[A, R] {
	return Queue1[A, R]{
		logger:     logging.Child(logger, "services."+methodName),
		methodName: methodName,
		services:   services,
	}
}

// OneByOne tries providers in registration order until one succeeds.
func (q *Queue1[A, R]) OneByOne(ctx context.Context, a A) (R, error) {
	return oneByOne(q.logger, q.services, func(s *Service1[A, R]) (R, error) {
		return s.service(ctx, a)
	})
}

// All calls every provider in parallel and returns one result per provider,
// in registration order.
func (q *Queue1[A, R]) All(ctx context.Context, a A) ([]*NamedResult[R], error) {
	return all(ctx, q.logger, q.services, func(ctx context.Context, s *Service1[A, R]) (R, error) {
		return s.service(ctx, a)
	})
}

// GetNames returns the method name and provider names for diagnostics.
func (q *Queue1[A, R]) GetNames() (methodName string, serviceNames []string) {
	return q.methodName, names(q.services)
}

// Queue2 dispatches a two-argument method across its providers.
type Queue2[A, B, R any] struct {
	logger     *slog.Logger
	methodName string
	services   []*Service2[A, B, R]
}

// NewQueue2 builds a queue for the named method.
func NewQueue2[A, B, R any](logger *slog.Logger, methodName string, services ...*Service2[A, B, R]) Queue2[A, B, R] {
	return Queue2[A, B, R]{
		logger:     logging.Child(logger, "services."+methodName),
		methodName: methodName,
		services:   services,
	}
}

// OneByOne tries providers in registration order until one succeeds.
func (q *Queue2[A, B, R]) OneByOne(ctx context.Context, a A, b B) (R, error) {
	return oneByOne(q.logger, q.services, func(s *Service2[A, B, R]) (R, error) {
		return s.service(ctx, a, b)
	})
}

// All calls every provider in parallel and returns one result per provider,
// in registration order.
func (q *Queue2[A, B, R]) All(ctx context.Context, a A, b B) ([]*NamedResult[R], error) {
	return all(ctx, q.logger, q.services, func(ctx context.Context, s *Service2[A, B, R]) (R, error) {
		return s.service(ctx, a, b)
	})
}

// GetNames returns the method name and provider names for diagnostics.
func (q *Queue2[A, B, R]) GetNames() (methodName string, serviceNames []string) {
	return q.methodName, names(q.services)
}

type namedService interface {
	Name() string
}

func names[S namedService](services []S) []string {
	out := make([]string, len(services))
	for i, s := range services {
		out[i] = s.Name()
	}
	return out
}

func callGuarded[S namedService, R any](s S, call func(S) (R, error)) (result *NamedResult[R]) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			result = NewNamedError[R](s.Name(), fmt.Errorf("service %s panicked: %w\n%s", s.Name(), err, debug.Stack()))
		}
	}()

	value, err := call(s)
	if err != nil {
		return NewNamedError[R](s.Name(), err)
	}
	if is.Nil(value) {
		return NewNamedError[R](s.Name(), ErrEmptyResult)
	}
	return NewNamedResult(s.Name(), value)
}

func oneByOne[S namedService, R any](logger *slog.Logger, services []S, call func(S) (R, error)) (R, error) {
	if len(services) == 0 {
		return to.ZeroValue[R](), ErrNoServicesRegistered
	}

	var joined error
	for _, s := range services {
		result := callGuarded(s, call)
		if result.IsError() {
			logger.Warn("error when calling service",
				slog.String("service.name", result.Name()),
				logging.Error(result.Err()),
			)
			joined = errors.Join(joined, fmt.Errorf("error from service %s: %w", result.Name(), result.Err()))
			continue
		}
		return result.Value(), nil
	}

	return to.ZeroValue[R](), fmt.Errorf("all services failed: %w", joined)
}

func all[S namedService, R any](ctx context.Context, logger *slog.Logger, services []S, call func(context.Context, S) (R, error)) ([]*NamedResult[R], error) {
	if len(services) == 0 {
		return nil, ErrNoServicesRegistered
	}

	results := make([]*NamedResult[R], len(services))

	var wg sync.WaitGroup
	for i, s := range services {
		wg.Add(1)
		go func(i int, s S) {
			defer wg.Done()
			results[i] = callGuarded(s, func(s S) (R, error) {
				return call(ctx, s)
			})
		}(i, s)
	}
	wg.Wait()

	for _, result := range results {
		if result.IsError() {
			logger.Warn("error when calling service",
				slog.String("service.name", result.Name()),
				logging.Error(result.Err()),
			)
		}
	}

	return results, nil
}
