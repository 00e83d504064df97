// Package reward holds the append-only loyalty point ledger. A user's balance
// is always the sum over their entries; it is never stored as a separate
// mutable counter, so concurrent awards cannot drift.
package reward

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// EntryType enumerates the reasons points can be earned or spent.
type EntryType string

const (
	// EarnedPurchase is awarded when an order reaches its delivered state.
	EarnedPurchase EntryType = "EARNED_PURCHASE"
	// EarnedReview is awarded for a published product review.
	EarnedReview EntryType = "EARNED_REVIEW"
	// Redeemed records points spent by the user; the amount is negative.
	Redeemed EntryType = "REDEEMED"
	// Adjustment records a manual administrative correction.
	Adjustment EntryType = "ADJUSTMENT"
)

// Entry is one immutable row in the point ledger. Points is signed.
type Entry struct {
	ID        string
	UserID    string
	Points    int64
	Type      EntryType
	OrderID   string
	CreatedAt time.Time
}

// Repository provides append and balance operations over the ledger.
type Repository interface {
	// Append writes one ledger entry within tx. Entries are never updated
	// or deleted afterwards.
	Append(ctx context.Context, tx pgx.Tx, e Entry) error

	// Balance returns the sum of a user's entries.
	Balance(ctx context.Context, userID string) (int64, error)

	// ExistsForOrder reports whether an entry of the given type already
	// references orderID. Used to keep point awards idempotent per order.
	ExistsForOrder(ctx context.Context, tx pgx.Tx, orderID string, typ EntryType) (bool, error)
}
