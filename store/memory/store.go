// Package memory provides an in-memory Store, used in tests and for
// single-process embedding without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plan"
)

type Store struct {
	mu sync.RWMutex

	// Billing config storage, keyed by agency
	configs map[string]*plan.Config

	// Discount/tax adjustment storage
	adjustments map[string]*adjust.Adjustment

	// Charge storage
	charges map[string]*charge.Charge

	// Account storage
	accounts        map[string]*account.Account
	openingBalances map[string]*account.OpeningBalance // account:currency
	acctAdjustments map[string]*account.Adjustment
	audits          map[string]*account.Audit

	// Period lock storage, keyed by agency/year/month
	locks map[string]*periodlock.Lock
}

func New() *Store {
	return &Store{
		configs:         make(map[string]*plan.Config),
		adjustments:     make(map[string]*adjust.Adjustment),
		charges:         make(map[string]*charge.Charge),
		accounts:        make(map[string]*account.Account),
		openingBalances: make(map[string]*account.OpeningBalance),
		acctAdjustments: make(map[string]*account.Adjustment),
		audits:          make(map[string]*account.Audit),
		locks:           make(map[string]*periodlock.Lock),
	}
}

func obKey(accountID id.AccountID, currency string) string {
	return accountID.String() + ":" + currency
}

func lockKey(agencyID string, year int, month time.Month) string {
	return fmt.Sprintf("%s/%04d-%02d", agencyID, year, int(month))
}

// Billing config Store implementation

func (s *Store) UpsertBillingConfig(_ context.Context, cfg *plan.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[cfg.AgencyID] = cfg
	return nil
}

func (s *Store) GetBillingConfig(_ context.Context, agencyID string) (*plan.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.configs[agencyID]; ok {
		return cfg, nil
	}
	return nil, tally.ErrConfigNotFound
}

func (s *Store) ListBillingConfigs(_ context.Context) ([]*plan.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*plan.Config, 0, len(s.configs))
	for _, cfg := range s.configs {
		result = append(result, cfg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AgencyID < result[j].AgencyID
	})
	return result, nil
}

// Adjustment Store implementation

func (s *Store) CreateAdjustment(_ context.Context, a *adjust.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.adjustments[a.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	s.adjustments[a.ID.String()] = a
	return nil
}

func (s *Store) GetAdjustment(_ context.Context, adjID id.AdjustmentID) (*adjust.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.adjustments[adjID.String()]; ok {
		return a, nil
	}
	return nil, tally.ErrAdjustmentNotFound
}

func (s *Store) UpdateAdjustment(_ context.Context, a *adjust.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.adjustments[a.ID.String()]; !exists {
		return tally.ErrAdjustmentNotFound
	}
	s.adjustments[a.ID.String()] = a
	return nil
}

func (s *Store) ListAdjustments(_ context.Context, agencyID string, opts adjust.ListOpts) ([]*adjust.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*adjust.Adjustment, 0)
	for _, a := range s.adjustments {
		if a.AgencyID != agencyID {
			continue
		}
		if opts.Kind != "" && a.Kind != opts.Kind {
			continue
		}
		if opts.ActiveOnly && !a.Active {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

// Charge Store implementation

func (s *Store) CreateCharge(_ context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.charges[c.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	s.charges[c.ID.String()] = c
	return nil
}

func (s *Store) GetCharge(_ context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.charges[chargeID.String()]; ok {
		return c, nil
	}
	return nil, tally.ErrChargeNotFound
}

func (s *Store) UpdateCharge(_ context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.charges[c.ID.String()]; !exists {
		return tally.ErrChargeNotFound
	}
	s.charges[c.ID.String()] = c
	return nil
}

func (s *Store) DeleteCharge(_ context.Context, chargeID id.ChargeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.charges[chargeID.String()]; !exists {
		return tally.ErrChargeNotFound
	}
	delete(s.charges, chargeID.String())
	return nil
}

func (s *Store) ListCharges(_ context.Context, opts charge.ListOpts) ([]*charge.Charge, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*charge.Charge, 0)
	for _, c := range s.charges {
		if opts.AgencyID != "" && c.AgencyID != opts.AgencyID {
			continue
		}
		if opts.Kind != "" && c.Kind != opts.Kind {
			continue
		}
		if opts.Status != "" && c.Status != opts.Status {
			continue
		}
		if !opts.InRange(c) {
			continue
		}
		matched = append(matched, c)
	}
	// IDs are K-sortable, so descending ID order is creation order,
	// newest first.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID.String() > matched[j].ID.String()
	})

	if opts.Cursor != "" {
		for i, c := range matched {
			if c.ID.String() < opts.Cursor {
				matched = matched[i:]
				break
			}
			if i == len(matched)-1 {
				matched = nil
			}
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	next := ""
	if len(matched) > limit {
		matched = matched[:limit]
		if len(matched) > 0 {
			next = matched[len(matched)-1].ID.String()
		}
	}
	return matched, next, nil
}

// Account Store implementation

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	s.accounts[a.ID.String()] = a
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		return a, nil
	}
	return nil, tally.ErrAccountNotFound
}

func (s *Store) UpdateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; !exists {
		return tally.ErrAccountNotFound
	}
	s.accounts[a.ID.String()] = a
	return nil
}

func (s *Store) ListAccounts(_ context.Context, agencyID string) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Account, 0)
	for _, a := range s.accounts {
		if a.AgencyID == agencyID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) UpsertOpeningBalance(_ context.Context, ob *account.OpeningBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openingBalances[obKey(ob.AccountID, ob.Amount.Currency)] = ob
	return nil
}

func (s *Store) GetOpeningBalance(_ context.Context, accountID id.AccountID, currency string) (*account.OpeningBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ob, ok := s.openingBalances[obKey(accountID, currency)]; ok {
		return ob, nil
	}
	return nil, account.ErrNoOpeningBalance
}

func (s *Store) CreateAccountAdjustment(_ context.Context, adj *account.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.acctAdjustments[adj.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	s.acctAdjustments[adj.ID.String()] = adj
	return nil
}

func (s *Store) ListAccountAdjustments(_ context.Context, accountID id.AccountID, opts account.AdjustmentListOpts) ([]*account.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Adjustment, 0)
	for _, adj := range s.acctAdjustments {
		if adj.AccountID != accountID {
			continue
		}
		if opts.Currency != "" && adj.Amount.Currency != opts.Currency {
			continue
		}
		if opts.Source != "" && adj.Source != opts.Source {
			continue
		}
		if !opts.Until.IsZero() && adj.EffectiveDate.After(opts.Until) {
			continue
		}
		result = append(result, adj)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EffectiveDate.Before(result[j].EffectiveDate)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) GetAudit(_ context.Context, auditID id.AccountAuditID) (*account.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.audits[auditID.String()]; ok {
		return a, nil
	}
	return nil, tally.ErrAuditNotFound
}

func (s *Store) ListAudits(_ context.Context, accountID id.AccountID, opts account.AuditListOpts) ([]*account.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Audit, 0)
	for _, a := range s.audits {
		if a.AccountID != accountID {
			continue
		}
		if opts.Currency != "" && a.Currency != opts.Currency {
			continue
		}
		if opts.Year != 0 && a.Year != opts.Year {
			continue
		}
		if opts.Month != 0 && a.Month != opts.Month {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() > result[j].ID.String()
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

// SubmitReconciliation writes the audit and the optional adjustment
// under one mutex hold, mirroring the transactional drivers.
func (s *Store) SubmitReconciliation(_ context.Context, audit *account.Audit, adj *account.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.audits[audit.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	if adj != nil {
		if _, exists := s.acctAdjustments[adj.ID.String()]; exists {
			return tally.ErrAlreadyExists
		}
		s.acctAdjustments[adj.ID.String()] = adj
	}
	s.audits[audit.ID.String()] = audit
	return nil
}

// Period lock Store implementation

func (s *Store) CreatePeriodLock(_ context.Context, l *periodlock.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lockKey(l.AgencyID, l.Year, l.Month)
	if _, exists := s.locks[key]; exists {
		return tally.ErrAlreadyLocked
	}
	s.locks[key] = l
	return nil
}

func (s *Store) GetPeriodLock(_ context.Context, agencyID string, year int, month time.Month) (*periodlock.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.locks[lockKey(agencyID, year, month)]; ok {
		return l, nil
	}
	return nil, tally.ErrLockNotFound
}

func (s *Store) DeletePeriodLock(_ context.Context, agencyID string, year int, month time.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lockKey(agencyID, year, month)
	if _, exists := s.locks[key]; !exists {
		return tally.ErrLockNotFound
	}
	delete(s.locks, key)
	return nil
}

func (s *Store) ListPeriodLocks(_ context.Context, agencyID string, opts periodlock.ListOpts) ([]*periodlock.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*periodlock.Lock, 0)
	for _, l := range s.locks {
		if l.AgencyID != agencyID {
			continue
		}
		if opts.Year != 0 && l.Year != opts.Year {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
