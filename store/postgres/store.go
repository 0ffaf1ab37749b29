package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plan"
	tallystore "github.com/xraph/tally/store"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tally/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Billing config Store ====================

func (s *Store) UpsertBillingConfig(ctx context.Context, cfg *plan.Config) error {
	m := toConfigModel(cfg)
	_, err := s.pg.NewInsert(m).
		OnConflict("(agency_id) DO UPDATE SET tier = EXCLUDED.tier, billed_users = EXCLUDED.billed_users, soft_user_limit = EXCLUDED.soft_user_limit, currency = EXCLUDED.currency, plan_starts_at = EXCLUDED.plan_starts_at, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetBillingConfig(ctx context.Context, agencyID string) (*plan.Config, error) {
	m := new(configModel)
	err := s.pg.NewSelect(m).
		Where("agency_id = $1", agencyID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrConfigNotFound
		}
		return nil, err
	}
	return fromConfigModel(m)
}

func (s *Store) ListBillingConfigs(ctx context.Context) ([]*plan.Config, error) {
	var models []configModel
	if err := s.pg.NewSelect(&models).OrderExpr("agency_id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	result := make([]*plan.Config, len(models))
	for i := range models {
		cfg, err := fromConfigModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = cfg
	}
	return result, nil
}

// ==================== Adjustment Store ====================

func (s *Store) CreateAdjustment(ctx context.Context, a *adjust.Adjustment) error {
	m := toAdjustmentModel(a)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetAdjustment(ctx context.Context, adjID id.AdjustmentID) (*adjust.Adjustment, error) {
	m := new(adjustmentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", adjID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrAdjustmentNotFound
		}
		return nil, err
	}
	return fromAdjustmentModel(m)
}

func (s *Store) UpdateAdjustment(ctx context.Context, a *adjust.Adjustment) error {
	m := toAdjustmentModel(a)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrAdjustmentNotFound
	}
	return nil
}

func (s *Store) ListAdjustments(ctx context.Context, agencyID string, opts adjust.ListOpts) ([]*adjust.Adjustment, error) {
	var models []adjustmentModel
	q := s.pg.NewSelect(&models).Where("agency_id = $1", agencyID)

	argIdx := 1
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.ActiveOnly {
		q = q.Where("active = TRUE")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*adjust.Adjustment, len(models))
	for i := range models {
		a, err := fromAdjustmentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Charge Store ====================

func (s *Store) CreateCharge(ctx context.Context, c *charge.Charge) error {
	m := toChargeModel(c)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	m := new(chargeModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", chargeID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrChargeNotFound
		}
		return nil, err
	}
	return fromChargeModel(m)
}

func (s *Store) UpdateCharge(ctx context.Context, c *charge.Charge) error {
	m := toChargeModel(c)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrChargeNotFound
	}
	return nil
}

func (s *Store) DeleteCharge(ctx context.Context, chargeID id.ChargeID) error {
	res, err := s.pg.NewDelete((*chargeModel)(nil)).
		Where("id = $1", chargeID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrChargeNotFound
	}
	return nil
}

func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, string, error) {
	var models []chargeModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	where := func(cond string, arg any) {
		argIdx++
		q = q.Where(fmt.Sprintf(cond, argIdx), arg)
	}
	if opts.AgencyID != "" {
		where("agency_id = $%d", opts.AgencyID)
	}
	if opts.Kind != "" {
		where("kind = $%d", string(opts.Kind))
	}
	if opts.Status != "" {
		where("status = $%d", string(opts.Status))
	}
	// The period-intersection filter keys off the effective date:
	// period_start for recurring charges, created_at otherwise.
	if !opts.Start.IsZero() {
		where("COALESCE(period_start, created_at) >= $%d", opts.Start)
	}
	if !opts.End.IsZero() {
		where("COALESCE(period_start, created_at) < $%d", opts.End)
	}
	if opts.Cursor != "" {
		where("id < $%d", opts.Cursor)
	}

	limit := opts.Limit
	if limit > 0 {
		// One extra row to detect whether another page exists.
		q = q.Limit(limit + 1)
	}
	// IDs are K-sortable; descending ID order is newest-first.
	q = q.OrderExpr("id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, "", err
	}

	next := ""
	if limit > 0 && len(models) > limit {
		models = models[:limit]
		next = models[len(models)-1].ID
	}

	result := make([]*charge.Charge, len(models))
	for i := range models {
		c, err := fromChargeModel(&models[i])
		if err != nil {
			return nil, "", err
		}
		result[i] = c
	}
	return result, next, nil
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrAccountNotFound
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, agencyID string) ([]*account.Account, error) {
	var models []accountModel
	err := s.pg.NewSelect(&models).
		Where("agency_id = $1", agencyID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) UpsertOpeningBalance(ctx context.Context, ob *account.OpeningBalance) error {
	m := toOpeningBalanceModel(ob)
	_, err := s.pg.NewInsert(m).
		OnConflict("(account_id, currency) DO UPDATE SET amount = EXCLUDED.amount, effective_date = EXCLUDED.effective_date, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetOpeningBalance(ctx context.Context, accountID id.AccountID, currency string) (*account.OpeningBalance, error) {
	m := new(openingBalanceModel)
	err := s.pg.NewSelect(m).
		Where("account_id = $1", accountID.String()).
		Where("currency = $2", currency).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, account.ErrNoOpeningBalance
		}
		return nil, err
	}
	return fromOpeningBalanceModel(m)
}

func (s *Store) CreateAccountAdjustment(ctx context.Context, adj *account.Adjustment) error {
	m := toAcctAdjustmentModel(adj)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListAccountAdjustments(ctx context.Context, accountID id.AccountID, opts account.AdjustmentListOpts) ([]*account.Adjustment, error) {
	var models []acctAdjustmentModel
	q := s.pg.NewSelect(&models).Where("account_id = $1", accountID.String())

	argIdx := 1
	if opts.Currency != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("currency = $%d", argIdx), opts.Currency)
	}
	if opts.Source != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("source = $%d", argIdx), string(opts.Source))
	}
	if !opts.Until.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("effective_date <= $%d", argIdx), opts.Until)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("effective_date ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Adjustment, len(models))
	for i := range models {
		a, err := fromAcctAdjustmentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) GetAudit(ctx context.Context, auditID id.AccountAuditID) (*account.Audit, error) {
	m := new(auditModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", auditID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrAuditNotFound
		}
		return nil, err
	}
	return fromAuditModel(m)
}

func (s *Store) ListAudits(ctx context.Context, accountID id.AccountID, opts account.AuditListOpts) ([]*account.Audit, error) {
	var models []auditModel
	q := s.pg.NewSelect(&models).Where("account_id = $1", accountID.String())

	argIdx := 1
	if opts.Currency != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("currency = $%d", argIdx), opts.Currency)
	}
	if opts.Year != 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("year = $%d", argIdx), opts.Year)
	}
	if opts.Month != 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("month = $%d", argIdx), int(opts.Month))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Audit, len(models))
	for i := range models {
		a, err := fromAuditModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// SubmitReconciliation inserts the audit and the optional adjustment in
// one transaction. The rows carry their mutual references already, so
// no post-insert update is needed.
func (s *Store) SubmitReconciliation(ctx context.Context, audit *account.Audit, adj *account.Adjustment) error {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.NewInsert(toAuditModel(audit)).Exec(ctx); err != nil {
		return err
	}
	if adj != nil {
		if _, err := tx.NewInsert(toAcctAdjustmentModel(adj)).Exec(ctx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Period lock Store ====================

func (s *Store) CreatePeriodLock(ctx context.Context, l *periodlock.Lock) error {
	m := toLockModel(l)
	res, err := s.pg.NewInsert(m).
		OnConflict("(agency_id, year, month) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrAlreadyLocked
	}
	return nil
}

func (s *Store) GetPeriodLock(ctx context.Context, agencyID string, year int, month time.Month) (*periodlock.Lock, error) {
	m := new(lockModel)
	err := s.pg.NewSelect(m).
		Where("agency_id = $1", agencyID).
		Where("year = $2", year).
		Where("month = $3", int(month)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrLockNotFound
		}
		return nil, err
	}
	return fromLockModel(m)
}

func (s *Store) DeletePeriodLock(ctx context.Context, agencyID string, year int, month time.Month) error {
	res, err := s.pg.NewDelete((*lockModel)(nil)).
		Where("agency_id = $1", agencyID).
		Where("year = $2", year).
		Where("month = $3", int(month)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrLockNotFound
	}
	return nil
}

func (s *Store) ListPeriodLocks(ctx context.Context, agencyID string, opts periodlock.ListOpts) ([]*periodlock.Lock, error) {
	var models []lockModel
	q := s.pg.NewSelect(&models).Where("agency_id = $1", agencyID)

	if opts.Year != 0 {
		q = q.Where("year = $2", opts.Year)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("year ASC, month ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*periodlock.Lock, len(models))
	for i := range models {
		l, err := fromLockModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
