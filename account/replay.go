package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// ReplayResult is the derived state of an account/currency at the end
// of a reconciliation month.
type ReplayResult struct {
	// Expected is the balance obtained by replaying history from the
	// opening balance through the end of the month.
	Expected types.Money
	// OpeningAmount and OpeningDate echo the anchor the replay started
	// from. OpeningDate is zero when no opening balance is recorded.
	OpeningAmount types.Money
	OpeningDate   time.Time
}

// Replayer derives the expected balance of an account/currency as of
// the end of a month. Implementations typically replay movements from
// an external ledger; the engine treats the result as authoritative.
type Replayer interface {
	Replay(ctx context.Context, accountID id.AccountID, currency string, year int, month time.Month) (ReplayResult, error)
}

// LedgerReader is the slice of the store the bundled replayer needs.
type LedgerReader interface {
	GetOpeningBalance(ctx context.Context, accountID id.AccountID, currency string) (*OpeningBalance, error)
	ListAccountAdjustments(ctx context.Context, accountID id.AccountID, opts AdjustmentListOpts) ([]*Adjustment, error)
}

// ErrNoOpeningBalance is returned by LedgerReader implementations when
// no opening balance exists for the account/currency.
var ErrNoOpeningBalance = errors.New("account: no opening balance")

// StoreReplayer derives expected balances from the engine's own store:
// opening balance plus every stored adjustment effective on or before
// the end of the month. Deployments whose cash movements live in an
// external ledger supply their own Replayer instead.
type StoreReplayer struct {
	reader LedgerReader
}

// NewStoreReplayer builds a replayer over the given store slice.
func NewStoreReplayer(reader LedgerReader) *StoreReplayer {
	return &StoreReplayer{reader: reader}
}

// Replay implements Replayer.
func (r *StoreReplayer) Replay(ctx context.Context, accountID id.AccountID, currency string, year int, month time.Month) (ReplayResult, error) {
	end := EndOfMonth(year, month)

	var res ReplayResult
	res.Expected = types.Zero(currency)
	res.OpeningAmount = types.Zero(currency)

	ob, err := r.reader.GetOpeningBalance(ctx, accountID, currency)
	switch {
	case err == nil:
		res.OpeningAmount = ob.Amount
		res.OpeningDate = ob.EffectiveDate
		res.Expected = ob.Amount
	case errors.Is(err, ErrNoOpeningBalance):
		// Replay from zero.
	default:
		return ReplayResult{}, fmt.Errorf("account: load opening balance: %w", err)
	}

	adjs, err := r.reader.ListAccountAdjustments(ctx, accountID, AdjustmentListOpts{
		Currency: currency,
		Until:    end,
	})
	if err != nil {
		return ReplayResult{}, fmt.Errorf("account: list adjustments: %w", err)
	}
	for _, adj := range adjs {
		// Adjustments predating the opening anchor are already folded
		// into the opening amount.
		if !res.OpeningDate.IsZero() && adj.EffectiveDate.Before(res.OpeningDate) {
			continue
		}
		res.Expected = res.Expected.Add(adj.Amount)
	}
	return res, nil
}
