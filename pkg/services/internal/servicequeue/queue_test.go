package servicequeue

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
)

func succeeding(name, value string) *Service[*string] {
	return NewService(name, func(_ context.Context) (*string, error) {
		return &value, nil
	})
}

func failing(name string) *Service[*string] {
	return NewService(name, func(_ context.Context) (*string, error) {
		return nil, fmt.Errorf("%s is down", name)
	})
}

func returningNil(name string) *Service[*string] {
	return NewService(name, func(_ context.Context) (*string, error) {
		return nil, nil
	})
}

func panicking(name string) *Service[*string] {
	return NewService(name, func(_ context.Context) (*string, error) {
		panic("boom")
	})
}

func TestOneByOneReturnsFirstSuccess(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod",
		succeeding("first", "from-first"),
		succeeding("second", "from-second"),
	)

	value, err := queue.OneByOne(context.Background())

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "from-first", *value)
}

func TestOneByOneFallsBackOnError(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod",
		failing("first"),
		succeeding("second", "from-second"),
	)

	value, err := queue.OneByOne(context.Background())

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "from-second", *value)
}

func TestOneByOneTreatsNilResultAsFailure(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod",
		returningNil("first"),
		succeeding("second", "from-second"),
	)

	value, err := queue.OneByOne(context.Background())

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "from-second", *value)
}

func TestOneByOneRecoversFromPanic(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod",
		panicking("first"),
		succeeding("second", "from-second"),
	)

	value, err := queue.OneByOne(context.Background())

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "from-second", *value)
}

func TestOneByOneJoinsAllErrors(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod",
		failing("first"),
		failing("second"),
	)

	value, err := queue.OneByOne(context.Background())

	require.Error(t, err)
	assert.Nil(t, value)
	assert.ErrorContains(t, err, "first is down")
	assert.ErrorContains(t, err, "second is down")
}

func TestOneByOneWithoutServices(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue[*string](logger, "testMethod")

	_, err := queue.OneByOne(context.Background())

	require.ErrorIs(t, err, ErrNoServicesRegistered)
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod",
		succeeding("first", "a"),
		failing("second"),
		succeeding("third", "c"),
	)

	results, err := queue.All(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "first", results[0].Name())
	require.False(t, results[0].IsError())
	assert.Equal(t, "a", *results[0].Value())

	assert.Equal(t, "second", results[1].Name())
	require.True(t, results[1].IsError())
	assert.ErrorContains(t, results[1].Err(), "second is down")

	assert.Equal(t, "third", results[2].Name())
	require.False(t, results[2].IsError())
	assert.Equal(t, "c", *results[2].Value())
}

func TestAllMarksEmptyResults(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "testMethod", returningNil("first"))

	results, err := queue.All(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].IsError())
	assert.ErrorIs(t, results[0].Err(), ErrEmptyResult)
}

func TestAllWithoutServices(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue[*string](logger, "testMethod")

	_, err := queue.All(context.Background())

	require.ErrorIs(t, err, ErrNoServicesRegistered)
}

func TestQueue1PassesArgument(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue1(logger, "testMethod",
		NewService1("echo", func(_ context.Context, a string) (*string, error) {
			value := "echo:" + a
			return &value, nil
		}),
	)

	value, err := queue.OneByOne(context.Background(), "hello")

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "echo:hello", *value)
}

func TestQueue2PassesArguments(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue2(logger, "testMethod",
		NewService2("concat", func(_ context.Context, a string, b uint32) (*string, error) {
			value := fmt.Sprintf("%s:%d", a, b)
			return &value, nil
		}),
	)

	value, err := queue.OneByOne(context.Background(), "height", 42)

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "height:42", *value)
}

func TestGetNames(t *testing.T) {
	logger := logging.New().Nop().Logger()
	queue := NewQueue(logger, "getRawTx",
		succeeding("first", "a"),
		succeeding("second", "b"),
	)

	method, services := queue.GetNames()

	assert.Equal(t, "getRawTx", method)
	assert.Equal(t, []string{"first", "second"}, services)
}
