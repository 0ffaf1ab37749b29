package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plan"
	tallystore "github.com/xraph/tally/store"
)

// Collection name constants.
const (
	colConfigs         = "tally_billing_configs"
	colAdjustments     = "tally_adjustments"
	colCharges         = "tally_charges"
	colAccounts        = "tally_accounts"
	colOpeningBalances = "tally_opening_balances"
	colAudits          = "tally_account_audits"
	colAcctAdjustments = "tally_account_adjustments"
	colPeriodLocks     = "tally_period_locks"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// SubmitReconciliation uses a multi-document transaction, which requires
// a replica set or sharded deployment.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tally collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"agency_id": m.AgencyID}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"agency_id":       m.AgencyID,
				"tier":            m.Tier,
				"billed_users":    m.BilledUsers,
				"soft_user_limit": m.SoftUserLimit,
				"currency":        m.Currency,
				"plan_starts_at":  m.PlanStartsAt,
				"notes":           m.Notes,
				"updated_at":      m.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"_id":        m.ID,
				"created_at": m.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: upsert billing config: %w", err)
	}
	return nil
}

func (s *Store) GetBillingConfig(ctx context.Context, agencyID string) (*plan.Config, error) {
	var m configModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"agency_id": agencyID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrConfigNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get billing config: %w", err)
	}
	return fromConfigModel(&m)
}

func (s *Store) ListBillingConfigs(ctx context.Context) ([]*plan.Config, error) {
	var models []configModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "agency_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: list billing configs: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create adjustment: %w", err)
	}
	return nil
}

func (s *Store) GetAdjustment(ctx context.Context, adjID id.AdjustmentID) (*adjust.Adjustment, error) {
	var m adjustmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": adjID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrAdjustmentNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get adjustment: %w", err)
	}
	return fromAdjustmentModel(&m)
}

func (s *Store) UpdateAdjustment(ctx context.Context, a *adjust.Adjustment) error {
	m := toAdjustmentModel(a)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update adjustment: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrAdjustmentNotFound
	}
	return nil
}

func (s *Store) ListAdjustments(ctx context.Context, agencyID string, opts adjust.ListOpts) ([]*adjust.Adjustment, error) {
	var models []adjustmentModel

	filter := bson.M{"agency_id": agencyID}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.ActiveOnly {
		filter["active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list adjustments: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create charge: %w", err)
	}
	return nil
}

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	var m chargeModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": chargeID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrChargeNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get charge: %w", err)
	}
	return fromChargeModel(&m)
}

func (s *Store) UpdateCharge(ctx context.Context, c *charge.Charge) error {
	m := toChargeModel(c)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update charge: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrChargeNotFound
	}
	return nil
}

func (s *Store) DeleteCharge(ctx context.Context, chargeID id.ChargeID) error {
	res, err := s.mdb.NewDelete((*chargeModel)(nil)).
		Filter(bson.M{"_id": chargeID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: delete charge: %w", err)
	}
	if res.DeletedCount() == 0 {
		return tally.ErrChargeNotFound
	}
	return nil
}

func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, string, error) {
	var models []chargeModel

	filter := bson.M{}
	if opts.AgencyID != "" {
		filter["agency_id"] = opts.AgencyID
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	// effective_date is denormalized at write time, so the range filter
	// stays a plain index-friendly comparison.
	effective := bson.M{}
	if !opts.Start.IsZero() {
		effective["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		effective["$lt"] = opts.End
	}
	if len(effective) > 0 {
		filter["effective_date"] = effective
	}
	if opts.Cursor != "" {
		filter["_id"] = bson.M{"$lt": opts.Cursor}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: -1}})

	limit := opts.Limit
	if limit > 0 {
		// One extra row to detect whether another page exists.
		q = q.Limit(int64(limit + 1))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, "", fmt.Errorf("tally/mongo: list charges: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrAccountNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update account: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrAccountNotFound
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, agencyID string) ([]*account.Account, error) {
	var models []accountModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"agency_id": agencyID}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: list accounts: %w", err)
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
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"account_id": m.AccountID, "currency": m.Currency}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"agency_id":      m.AgencyID,
				"account_id":     m.AccountID,
				"currency":       m.Currency,
				"amount":         m.Amount,
				"effective_date": m.EffectiveDate,
				"note":           m.Note,
				"updated_at":     m.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"_id":        m.ID,
				"created_at": m.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: upsert opening balance: %w", err)
	}
	return nil
}

func (s *Store) GetOpeningBalance(ctx context.Context, accountID id.AccountID, currency string) (*account.OpeningBalance, error) {
	var m openingBalanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"account_id": accountID.String(), "currency": currency}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, account.ErrNoOpeningBalance
		}
		return nil, fmt.Errorf("tally/mongo: get opening balance: %w", err)
	}
	return fromOpeningBalanceModel(&m)
}

func (s *Store) CreateAccountAdjustment(ctx context.Context, adj *account.Adjustment) error {
	m := toAcctAdjustmentModel(adj)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: create account adjustment: %w", err)
	}
	return nil
}

func (s *Store) ListAccountAdjustments(ctx context.Context, accountID id.AccountID, opts account.AdjustmentListOpts) ([]*account.Adjustment, error) {
	var models []acctAdjustmentModel

	filter := bson.M{"account_id": accountID.String()}
	if opts.Currency != "" {
		filter["currency"] = opts.Currency
	}
	if opts.Source != "" {
		filter["source"] = string(opts.Source)
	}
	if !opts.Until.IsZero() {
		filter["effective_date"] = bson.M{"$lte": opts.Until}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "effective_date", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list account adjustments: %w", err)
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
	var m auditModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": auditID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrAuditNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get audit: %w", err)
	}
	return fromAuditModel(&m)
}

func (s *Store) ListAudits(ctx context.Context, accountID id.AccountID, opts account.AuditListOpts) ([]*account.Audit, error) {
	var models []auditModel

	filter := bson.M{"account_id": accountID.String()}
	if opts.Currency != "" {
		filter["currency"] = opts.Currency
	}
	if opts.Year != 0 {
		filter["year"] = opts.Year
	}
	if opts.Month != 0 {
		filter["month"] = int(opts.Month)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list audits: %w", err)
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
// one multi-document transaction. The rows carry their mutual
// references already, so no post-insert update is needed.
func (s *Store) SubmitReconciliation(ctx context.Context, audit *account.Audit, adj *account.Adjustment) error {
	client := s.mdb.Collection(colAudits).Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("tally/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		if _, err := s.mdb.Collection(colAudits).InsertOne(ctx, toAuditModel(audit)); err != nil {
			return nil, err
		}
		if adj != nil {
			if _, err := s.mdb.Collection(colAcctAdjustments).InsertOne(ctx, toAcctAdjustmentModel(adj)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("tally/mongo: submit reconciliation: %w", err)
	}
	return nil
}

// ==================== Period lock Store ====================

func (s *Store) CreatePeriodLock(ctx context.Context, l *periodlock.Lock) error {
	m := toLockModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		// The unique (agency_id, year, month) index rejects double locks.
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrAlreadyLocked
		}
		return fmt.Errorf("tally/mongo: create period lock: %w", err)
	}
	return nil
}

func (s *Store) GetPeriodLock(ctx context.Context, agencyID string, year int, month time.Month) (*periodlock.Lock, error) {
	var m lockModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"agency_id": agencyID, "year": year, "month": int(month)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrLockNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get period lock: %w", err)
	}
	return fromLockModel(&m)
}

func (s *Store) DeletePeriodLock(ctx context.Context, agencyID string, year int, month time.Month) error {
	res, err := s.mdb.NewDelete((*lockModel)(nil)).
		Filter(bson.M{"agency_id": agencyID, "year": year, "month": int(month)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: delete period lock: %w", err)
	}
	if res.DeletedCount() == 0 {
		return tally.ErrLockNotFound
	}
	return nil
}

func (s *Store) ListPeriodLocks(ctx context.Context, agencyID string, opts periodlock.ListOpts) ([]*periodlock.Lock, error) {
	var models []lockModel

	filter := bson.M{"agency_id": agencyID}
	if opts.Year != 0 {
		filter["year"] = opts.Year
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "year", Value: 1}, {Key: "month", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list period locks: %w", err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colConfigs: {
			{
				Keys:    bson.D{{Key: "agency_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAdjustments: {
			{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "active", Value: 1}}},
		},
		colCharges: {
			{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "effective_date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "effective_date", Value: -1}}},
		},
		colAccounts: {
			{Keys: bson.D{{Key: "agency_id", Value: 1}}},
		},
		colOpeningBalances: {
			{
				Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "currency", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAudits: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}}},
		},
		colAcctAdjustments: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "currency", Value: 1}, {Key: "effective_date", Value: 1}}},
		},
		colPeriodLocks: {
			{
				Keys:    bson.D{{Key: "agency_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
