package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
)

// newTracer logs every RPC call with its method name, and with full
// parameters and results when the logger emits debug records.
func newTracer(logger *slog.Logger) jsonrpc.Tracer {
	debug := logging.IsDebug(logger)

	return func(method string, params []reflect.Value, results []reflect.Value, err error) {
		ctx := callContext(params)

		attrs := []slog.Attr{slog.String("method", method)}
		if debug {
			// params[0] is the method receiver.
			for i, param := range params[1:] {
				attrs = append(attrs, slog.String(fmt.Sprintf("param_%d", i), loggable(param)))
			}
			for i, result := range results {
				attrs = append(attrs, slog.String(fmt.Sprintf("result_%d", i), loggable(result)))
			}
		}

		level := slog.LevelInfo
		if callErr := resultError(results, err); callErr != nil {
			level = slog.LevelError
			attrs = append(attrs, logging.Error(callErr))
		}

		logger.LogAttrs(ctx, level, "RPC call", attrs...)
	}
}

func resultError(results []reflect.Value, err error) error {
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	if callErr, ok := results[len(results)-1].Interface().(error); ok {
		return callErr
	}
	return nil
}

// callContext extracts the context argument when the method has one; the
// receiver occupies params[0].
func callContext(params []reflect.Value) context.Context {
	if len(params) < 2 {
		return context.Background()
	}
	ctx, ok := params[1].Interface().(context.Context)
	if !ok {
		return context.Background()
	}
	return ctx
}

func loggable(v reflect.Value) string {
	if !v.IsValid() {
		return "<invalid>"
	}
	value := v.Interface()
	if err, ok := value.(error); ok {
		return fmt.Sprintf("<error: %v>", err)
	}
	if _, ok := value.(context.Context); ok {
		return "<context>"
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("<unmarshalable: %v>", err)
	}
	return string(encoded)
}
