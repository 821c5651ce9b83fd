// Package permissions gates the wallet surface per originator. Four token
// categories guard protocol usage (DPACP), basket access (DBAP), certificate
// access (DCAP) and spending (DSAP); grants are cached per originator and
// resource until they expire. The admin originator bypasses every check.
package permissions

import (
	"fmt"
	"time"
)

// Category identifies one of the four permission token kinds.
type Category string

// Permission categories.
const (
	CategoryProtocol    Category = "DPACP"
	CategoryBasket      Category = "DBAP"
	CategoryCertificate Category = "DCAP"
	CategorySpending    Category = "DSAP"
)

// Grant lifetimes.
const (
	// DefaultGrantExpiry is how long protocol, basket and certificate
	// grants live.
	DefaultGrantExpiry = 365 * 24 * time.Hour

	// DefaultSpendingExpiry is how long a spending authorization lives.
	DefaultSpendingExpiry = 30 * 24 * time.Hour
)

// Token is one cached permission grant.
type Token struct {
	Category   Category
	Originator string
	Resource   string
	ExpiresAt  time.Time

	// AuthorizedAmount is the satoshi budget of a spending token; spent
	// tracking decrements AmountLeft.
	AuthorizedAmount int64
	AmountLeft       int64
}

// Expired reports whether the grant has lapsed.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Request is a pending permission request awaiting grant or denial.
type Request struct {
	ID         uint64
	Category   Category
	Originator string
	Resource   string

	// Satoshis is the amount a spending request asks to authorize.
	Satoshis int64

	// Reference, when set, is a created action that must be aborted if the
	// request is denied.
	Reference string

	result chan bool
}

// RequestCallback is notified of new permission requests for a category,
// typically to surface a consent prompt. The callback must eventually lead
// to GrantPermission or DenyPermission with the request id.
type RequestCallback func(request Request)

// cacheKey indexes tokens by originator and resource.
func cacheKey(originator, resource string) string {
	return fmt.Sprintf("%s|%s", originator, resource)
}
