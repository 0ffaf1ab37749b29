package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

// ==================== Billing config models ====================

type configModel struct {
	grove.BaseModel `grove:"table:tally_billing_configs"`

	ID            string    `grove:"id,pk"`
	AgencyID      string    `grove:"agency_id"`
	Tier          string    `grove:"tier"`
	BilledUsers   int       `grove:"billed_users"`
	SoftUserLimit *int      `grove:"soft_user_limit"`
	Currency      string    `grove:"currency"`
	PlanStartsAt  time.Time `grove:"plan_starts_at"`
	Notes         string    `grove:"notes"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toConfigModel(c *plan.Config) *configModel {
	return &configModel{
		ID:            c.ID.String(),
		AgencyID:      c.AgencyID,
		Tier:          string(c.Tier),
		BilledUsers:   c.BilledUsers,
		SoftUserLimit: c.SoftUserLimit,
		Currency:      c.Currency,
		PlanStartsAt:  c.PlanStartsAt,
		Notes:         c.Notes,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromConfigModel(m *configModel) (*plan.Config, error) {
	cfgID, err := id.ParseBillingConfigID(m.ID)
	if err != nil {
		return nil, err
	}
	return &plan.Config{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            cfgID,
		AgencyID:      m.AgencyID,
		Tier:          plan.Tier(m.Tier),
		BilledUsers:   m.BilledUsers,
		SoftUserLimit: m.SoftUserLimit,
		Currency:      m.Currency,
		PlanStartsAt:  m.PlanStartsAt,
		Notes:         m.Notes,
	}, nil
}

// ==================== Adjustment models ====================

type adjustmentModel struct {
	grove.BaseModel `grove:"table:tally_adjustments"`

	ID        string     `grove:"id,pk"`
	AgencyID  string     `grove:"agency_id"`
	Kind      string     `grove:"kind"`
	Mode      string     `grove:"mode"`
	Value     int64      `grove:"value"`
	Currency  string     `grove:"currency"`
	Label     string     `grove:"label"`
	StartsAt  *time.Time `grove:"starts_at"`
	EndsAt    *time.Time `grove:"ends_at"`
	Active    bool       `grove:"active"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toAdjustmentModel(a *adjust.Adjustment) *adjustmentModel {
	mode, value, currency := adjust.ModeColumns(a.Mode)
	return &adjustmentModel{
		ID:        a.ID.String(),
		AgencyID:  a.AgencyID,
		Kind:      string(a.Kind),
		Mode:      mode,
		Value:     value,
		Currency:  currency,
		Label:     a.Label,
		StartsAt:  a.StartsAt,
		EndsAt:    a.EndsAt,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAdjustmentModel(m *adjustmentModel) (*adjust.Adjustment, error) {
	adjID, err := id.ParseAdjustmentID(m.ID)
	if err != nil {
		return nil, err
	}
	mode, err := adjust.ModeFromColumns(m.Mode, m.Value, m.Currency)
	if err != nil {
		return nil, err
	}
	return &adjust.Adjustment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       adjID,
		AgencyID: m.AgencyID,
		Kind:     adjust.Kind(m.Kind),
		Mode:     mode,
		Label:    m.Label,
		StartsAt: m.StartsAt,
		EndsAt:   m.EndsAt,
		Active:   m.Active,
	}, nil
}

// ==================== Charge models ====================

type chargeModel struct {
	grove.BaseModel `grove:"table:tally_charges"`

	ID          string     `grove:"id,pk"`
	AgencyID    string     `grove:"agency_id"`
	Kind        string     `grove:"kind"`
	PeriodStart *time.Time `grove:"period_start"`
	PeriodEnd   *time.Time `grove:"period_end"`
	Label       string     `grove:"label"`
	Status      string     `grove:"status"`

	BaseAmountUSD       int64 `grove:"base_amount_usd"`
	AdjustmentsTotalUSD int64 `grove:"adjustments_total_usd"`
	TotalUSD            int64 `grove:"total_usd"`

	PaidAmount    *int64     `grove:"paid_amount"`
	PaidCurrency  string     `grove:"paid_currency"`
	FXRate        int64      `grove:"fx_rate"`
	PaidAt        *time.Time `grove:"paid_at"`
	PaidAccountID string     `grove:"paid_account_id"`
	PaidMethod    string     `grove:"paid_method"`
	PaidNotes     string     `grove:"paid_notes"`

	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toChargeModel(c *charge.Charge) *chargeModel {
	m := &chargeModel{
		ID:                  c.ID.String(),
		AgencyID:            c.AgencyID,
		Kind:                string(c.Kind),
		Label:               c.Label,
		Status:              string(c.Status),
		BaseAmountUSD:       c.BaseAmount.Amount,
		AdjustmentsTotalUSD: c.AdjustmentsTotal.Amount,
		TotalUSD:            c.Total.Amount,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if c.Period != nil {
		start, end := c.Period.Start, c.Period.End
		m.PeriodStart, m.PeriodEnd = &start, &end
	}
	if c.Payment != nil {
		amount := c.Payment.Amount.Amount
		paidAt := c.Payment.PaidAt
		m.PaidAmount = &amount
		m.PaidCurrency = c.Payment.Amount.Currency
		m.FXRate = int64(c.Payment.FXRate)
		m.PaidAt = &paidAt
		if !c.Payment.AccountID.IsNil() {
			m.PaidAccountID = c.Payment.AccountID.String()
		}
		m.PaidMethod = c.Payment.Method
		m.PaidNotes = c.Payment.Notes
	}
	return m
}

func fromChargeModel(m *chargeModel) (*charge.Charge, error) {
	chargeID, err := id.ParseChargeID(m.ID)
	if err != nil {
		return nil, err
	}
	c := &charge.Charge{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               chargeID,
		AgencyID:         m.AgencyID,
		Kind:             charge.Kind(m.Kind),
		Label:            m.Label,
		Status:           charge.Status(m.Status),
		BaseAmount:       types.USD(m.BaseAmountUSD),
		AdjustmentsTotal: types.USD(m.AdjustmentsTotalUSD),
		Total:            types.USD(m.TotalUSD),
	}
	if m.PeriodStart != nil && m.PeriodEnd != nil {
		c.Period = &charge.Period{Start: *m.PeriodStart, End: *m.PeriodEnd}
	}
	if m.PaidAmount != nil {
		p := &charge.Payment{
			Amount: types.New(*m.PaidAmount, m.PaidCurrency),
			FXRate: types.Rate(m.FXRate),
			Method: m.PaidMethod,
			Notes:  m.PaidNotes,
		}
		if m.PaidAt != nil {
			p.PaidAt = *m.PaidAt
		}
		if m.PaidAccountID != "" {
			acctID, err := id.ParseAccountID(m.PaidAccountID)
			if err != nil {
				return nil, err
			}
			p.AccountID = acctID
		}
		c.Payment = p
	}
	return c, nil
}

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:tally_accounts"`

	ID        string    `grove:"id,pk"`
	AgencyID  string    `grove:"agency_id"`
	Name      string    `grove:"name"`
	Currency  string    `grove:"currency"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:        a.ID.String(),
		AgencyID:  a.AgencyID,
		Name:      a.Name,
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	acctID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       acctID,
		AgencyID: m.AgencyID,
		Name:     m.Name,
		Currency: m.Currency,
	}, nil
}

// ==================== Opening balance models ====================

type openingBalanceModel struct {
	grove.BaseModel `grove:"table:tally_opening_balances"`

	ID            string    `grove:"id,pk"`
	AgencyID      string    `grove:"agency_id"`
	AccountID     string    `grove:"account_id"`
	Currency      string    `grove:"currency"`
	Amount        int64     `grove:"amount"`
	EffectiveDate time.Time `grove:"effective_date"`
	Note          string    `grove:"note"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toOpeningBalanceModel(ob *account.OpeningBalance) *openingBalanceModel {
	return &openingBalanceModel{
		ID:            ob.ID.String(),
		AgencyID:      ob.AgencyID,
		AccountID:     ob.AccountID.String(),
		Currency:      ob.Amount.Currency,
		Amount:        ob.Amount.Amount,
		EffectiveDate: ob.EffectiveDate,
		Note:          ob.Note,
		CreatedAt:     ob.CreatedAt,
		UpdatedAt:     ob.UpdatedAt,
	}
}

func fromOpeningBalanceModel(m *openingBalanceModel) (*account.OpeningBalance, error) {
	obID, err := id.ParseOpeningBalanceID(m.ID)
	if err != nil {
		return nil, err
	}
	acctID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &account.OpeningBalance{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            obID,
		AgencyID:      m.AgencyID,
		AccountID:     acctID,
		Amount:        types.New(m.Amount, m.Currency),
		EffectiveDate: m.EffectiveDate,
		Note:          m.Note,
	}, nil
}

// ==================== Audit models ====================

type auditModel struct {
	grove.BaseModel `grove:"table:tally_account_audits"`

	ID               string    `grove:"id,pk"`
	AgencyID         string    `grove:"agency_id"`
	AccountID        string    `grove:"account_id"`
	Currency         string    `grove:"currency"`
	Year             int       `grove:"year"`
	Month            int       `grove:"month"`
	Expected         int64     `grove:"expected"`
	Actual           int64     `grove:"actual"`
	Difference       int64     `grove:"difference"`
	CreateAdjustment bool      `grove:"create_adjustment"`
	AdjustmentID     string    `grove:"adjustment_id"`
	Note             string    `grove:"note"`
	CreatedBy        string    `grove:"created_by"`
	CreatedAt        time.Time `grove:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"`
}

func toAuditModel(a *account.Audit) *auditModel {
	m := &auditModel{
		ID:               a.ID.String(),
		AgencyID:         a.AgencyID,
		AccountID:        a.AccountID.String(),
		Currency:         a.Currency,
		Year:             a.Year,
		Month:            int(a.Month),
		Expected:         a.Expected.Amount,
		Actual:           a.Actual.Amount,
		Difference:       a.Difference.Amount,
		CreateAdjustment: a.CreateAdjustment,
		Note:             a.Note,
		CreatedBy:        a.CreatedBy,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if !a.AdjustmentID.IsNil() {
		m.AdjustmentID = a.AdjustmentID.String()
	}
	return m
}

func fromAuditModel(m *auditModel) (*account.Audit, error) {
	auditID, err := id.ParseAccountAuditID(m.ID)
	if err != nil {
		return nil, err
	}
	acctID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	a := &account.Audit{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               auditID,
		AgencyID:         m.AgencyID,
		AccountID:        acctID,
		Currency:         m.Currency,
		Year:             m.Year,
		Month:            time.Month(m.Month),
		Expected:         types.New(m.Expected, m.Currency),
		Actual:           types.New(m.Actual, m.Currency),
		Difference:       types.New(m.Difference, m.Currency),
		CreateAdjustment: m.CreateAdjustment,
		Note:             m.Note,
		CreatedBy:        m.CreatedBy,
	}
	if m.AdjustmentID != "" {
		adjID, err := id.ParseAccountAdjustmentID(m.AdjustmentID)
		if err != nil {
			return nil, err
		}
		a.AdjustmentID = adjID
	}
	return a, nil
}

// ==================== Account adjustment models ====================

type acctAdjustmentModel struct {
	grove.BaseModel `grove:"table:tally_account_adjustments"`

	ID            string    `grove:"id,pk"`
	AgencyID      string    `grove:"agency_id"`
	AccountID     string    `grove:"account_id"`
	Currency      string    `grove:"currency"`
	Amount        int64     `grove:"amount"`
	EffectiveDate time.Time `grove:"effective_date"`
	Reason        string    `grove:"reason"`
	Note          string    `grove:"note"`
	Source        string    `grove:"source"`
	AuditID       string    `grove:"audit_id"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toAcctAdjustmentModel(a *account.Adjustment) *acctAdjustmentModel {
	m := &acctAdjustmentModel{
		ID:            a.ID.String(),
		AgencyID:      a.AgencyID,
		AccountID:     a.AccountID.String(),
		Currency:      a.Amount.Currency,
		Amount:        a.Amount.Amount,
		EffectiveDate: a.EffectiveDate,
		Reason:        a.Reason,
		Note:          a.Note,
		Source:        string(a.Source),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if !a.AuditID.IsNil() {
		m.AuditID = a.AuditID.String()
	}
	return m
}

func fromAcctAdjustmentModel(m *acctAdjustmentModel) (*account.Adjustment, error) {
	adjID, err := id.ParseAccountAdjustmentID(m.ID)
	if err != nil {
		return nil, err
	}
	acctID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	a := &account.Adjustment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            adjID,
		AgencyID:      m.AgencyID,
		AccountID:     acctID,
		Amount:        types.New(m.Amount, m.Currency),
		EffectiveDate: m.EffectiveDate,
		Reason:        m.Reason,
		Note:          m.Note,
		Source:        account.Source(m.Source),
	}
	if m.AuditID != "" {
		auditID, err := id.ParseAccountAuditID(m.AuditID)
		if err != nil {
			return nil, err
		}
		a.AuditID = auditID
	}
	return a, nil
}

// ==================== Period lock models ====================

type lockModel struct {
	grove.BaseModel `grove:"table:tally_period_locks"`

	ID        string    `grove:"id,pk"`
	AgencyID  string    `grove:"agency_id"`
	Year      int       `grove:"year"`
	Month     int       `grove:"month"`
	LockedBy  string    `grove:"locked_by"`
	Note      string    `grove:"note"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toLockModel(l *periodlock.Lock) *lockModel {
	return &lockModel{
		ID:        l.ID.String(),
		AgencyID:  l.AgencyID,
		Year:      l.Year,
		Month:     int(l.Month),
		LockedBy:  l.LockedBy,
		Note:      l.Note,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func fromLockModel(m *lockModel) (*periodlock.Lock, error) {
	lockID, err := id.ParsePeriodLockID(m.ID)
	if err != nil {
		return nil, err
	}
	return &periodlock.Lock{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       lockID,
		AgencyID: m.AgencyID,
		Year:     m.Year,
		Month:    time.Month(m.Month),
		LockedBy: m.LockedBy,
		Note:     m.Note,
	}, nil
}
