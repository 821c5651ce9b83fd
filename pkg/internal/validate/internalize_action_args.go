package validate

import (
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// InternalizeActionArgs checks an internalizeAction request.
func InternalizeActionArgs(args *wdk.InternalizeActionArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}

	if len(args.Tx) == 0 {
		return werr.InvalidParameter("tx", "a non-empty AtomicBEEF")
	}

	if len(args.Outputs) == 0 {
		return werr.InvalidParameter("outputs", "non-empty")
	}

	if err := args.Description.Validate(); err != nil {
		return fmt.Errorf("description must be %w", err)
	}

	for i, label := range args.Labels {
		if err := label.Validate(); err != nil {
			return fmt.Errorf("label at %d must be %w", i, err)
		}
	}

	seen := make(map[uint32]struct{}, len(args.Outputs))
	for i, output := range args.Outputs {
		if output == nil {
			return werr.InvalidParameter(fmt.Sprintf("outputs[%d]", i), "not nil")
		}
		if _, ok := seen[output.OutputIndex]; ok {
			return werr.InvalidParameterf("outputs", "free of duplicate outputIndex, got %d twice", output.OutputIndex)
		}
		seen[output.OutputIndex] = struct{}{}

		if err := output.Validate(); err != nil {
			return fmt.Errorf("invalid output at %d: %w", i, err)
		}
	}

	return nil
}
