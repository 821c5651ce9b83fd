package validate

import (
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// ProcessActionArgs checks a processAction request for internal consistency.
func ProcessActionArgs(args *wdk.ProcessActionArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}

	if args.IsNewTx {
		if args.Reference == nil || *args.Reference == "" {
			return werr.InvalidParameter("reference", "set when isNewTx")
		}
		if args.TxID == nil {
			return werr.InvalidParameter("txid", "set when isNewTx")
		}
		if err := args.TxID.Validate(); err != nil {
			return fmt.Errorf("txid must be %w", err)
		}
		if len(args.RawTx) == 0 {
			return werr.InvalidParameter("rawTx", "set when isNewTx")
		}
	} else {
		if args.Reference != nil || args.TxID != nil || len(args.RawTx) > 0 {
			return werr.InvalidParameter("args", "free of reference, txid and rawTx when isNewTx is false")
		}
	}

	if args.IsSendWith != (len(args.SendWith) > 0) {
		return werr.InvalidParameter("isSendWith", "consistent with sendWith")
	}

	if !args.IsNewTx && !args.IsSendWith {
		return werr.InvalidParameter("args", "a new transaction, a sendWith batch, or both")
	}

	if args.IsNoSend && args.IsDelayed {
		return werr.InvalidParameter("isNoSend", "mutually exclusive with isDelayed")
	}

	for i, txid := range args.SendWith {
		if err := txid.Validate(); err != nil {
			return fmt.Errorf("sendWith txid at %d must be %w", i, err)
		}
	}

	return nil
}

// AbortActionArgs checks an abortAction request.
func AbortActionArgs(args *wdk.AbortActionArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}
	if args.Reference == "" {
		return werr.InvalidParameter("reference", "non-empty")
	}
	if err := args.Reference.Validate(); err != nil {
		return fmt.Errorf("reference must be %w", err)
	}
	return nil
}

// RelinquishOutputArgs checks a relinquishOutput request.
func RelinquishOutputArgs(args *wdk.RelinquishOutputArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}
	if args.Basket == "" {
		return werr.InvalidParameter("basket", "non-empty")
	}
	if err := args.Output.Validate(); err != nil {
		return fmt.Errorf("output must be %w", err)
	}
	return nil
}

// RelinquishCertificateArgs checks a relinquishCertificate request.
func RelinquishCertificateArgs(args *wdk.RelinquishCertificateArgs) error {
	if args == nil {
		return werr.InvalidParameter("args", "not nil")
	}
	if err := args.Type.Validate(); err != nil {
		return fmt.Errorf("type must be %w", err)
	}
	if err := args.SerialNumber.Validate(); err != nil {
		return fmt.Errorf("serialNumber must be %w", err)
	}
	if err := args.Certifier.Validate(); err != nil {
		return fmt.Errorf("certifier must be %w", err)
	}
	return nil
}

// Originator checks the caller-supplied originator domain string.
func Originator(originator string) error {
	if len(originator) > wdk.MaxOriginatorLength {
		return werr.InvalidParameterf("originator", "at most %d bytes", wdk.MaxOriginatorLength)
	}
	return nil
}
