package validate

import (
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Pagination bounds shared by all list operations.
const (
	MaxPaginationLimit  = 10000
	MaxPaginationOffset = 1_000_000
	MinPaginationLimit  = 1
)

func paginationArgs(limit, offset primitives.PositiveInteger) error {
	if limit < MinPaginationLimit {
		return werr.InvalidParameter("limit", "greater than 0")
	}
	if limit > MaxPaginationLimit {
		return werr.InvalidParameterf("limit", "at most %d", MaxPaginationLimit)
	}
	if offset > MaxPaginationOffset {
		return werr.InvalidParameterf("offset", "at most %d", MaxPaginationOffset)
	}
	return nil
}

// ListOutputsArgs checks a listOutputs query.
func ListOutputsArgs(args *wdk.ListOutputsArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}

	if args.Basket != "" {
		if err := args.Basket.Validate(); err != nil {
			return fmt.Errorf("basket must be %w", err)
		}
	}

	if args.TagQueryMode != nil {
		if *args.TagQueryMode != wdk.QueryModeAny && *args.TagQueryMode != wdk.QueryModeAll {
			return werr.InvalidParameterf("tagQueryMode", "one of %q, %q", wdk.QueryModeAny, wdk.QueryModeAll)
		}
	}

	for i, tag := range args.Tags {
		if err := tag.Validate(); err != nil {
			return fmt.Errorf("tag at %d must be %w", i, err)
		}
	}

	limit := args.Limit
	if limit == 0 {
		limit = wdk.DefaultListLimit
	}
	if err := paginationArgs(limit, args.Offset); err != nil {
		return err
	}

	for _, txid := range args.KnownTxids {
		if err := primitives.TXIDHexString(txid).Validate(); err != nil {
			return fmt.Errorf("knownTxid is invalid: %w", err)
		}
	}

	return nil
}

// ListActionsArgs checks a listActions query.
func ListActionsArgs(args *wdk.ListActionsArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}

	for i, label := range args.Labels {
		if err := label.Validate(); err != nil {
			return fmt.Errorf("label at %d must be %w", i, err)
		}
	}

	if args.LabelQueryMode != nil {
		if *args.LabelQueryMode != wdk.QueryModeAny && *args.LabelQueryMode != wdk.QueryModeAll {
			return werr.InvalidParameterf("labelQueryMode", "one of %q, %q", wdk.QueryModeAny, wdk.QueryModeAll)
		}
	}

	limit := args.Limit
	if limit == 0 {
		limit = wdk.DefaultListLimit
	}
	return paginationArgs(limit, args.Offset)
}

// ListCertificatesArgs checks a listCertificates query.
func ListCertificatesArgs(args *wdk.ListCertificatesArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}

	for i, certifier := range args.Certifiers {
		if err := certifier.Validate(); err != nil {
			return fmt.Errorf("certifier at %d must be %w", i, err)
		}
	}

	for i, typ := range args.Types {
		if err := typ.Validate(); err != nil {
			return fmt.Errorf("type at %d must be %w", i, err)
		}
	}

	limit := args.Limit
	if limit == 0 {
		limit = wdk.DefaultListLimit
	}
	return paginationArgs(limit, args.Offset)
}
