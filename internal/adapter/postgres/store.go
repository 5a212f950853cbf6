package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

// Store implements port.Store using pgxpool for PostgreSQL. Transitions
// commit in a serializable transaction with the campaign row locked, so
// status, artifacts and history land together or not at all.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a new store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const campaignColumns = `id, name, platform, objective, product_name, audience,
	budget_daily, budget_total, status, meta_campaign_id, google_campaign_id,
	regen_attempts, version, last_optimized_at, halted_at, halted_from,
	archived, created_at, updated_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c           domain.Campaign
		audienceRaw []byte
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Platform, &c.Objective, &c.ProductName, &audienceRaw,
		&c.BudgetDaily, &c.BudgetTotal, &c.Status, &c.MetaCampaignID, &c.GoogleCampaignID,
		&c.RegenAttempts, &c.Version, &c.LastOptimizedAt, &c.HaltedAt, &c.HaltedFrom,
		&c.Archived, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(audienceRaw) > 0 {
		if err := json.Unmarshal(audienceRaw, &c.Audience); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// CreateCampaign inserts a campaign, assigning an id when none is set.
func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Version == 0 {
		c.Version = 1
	}
	audienceRaw, err := json.Marshal(c.Audience)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO campaigns
		(id, name, platform, objective, product_name, audience, budget_daily, budget_total,
		 status, meta_campaign_id, google_campaign_id, regen_attempts, version,
		 last_optimized_at, halted_at, halted_from, archived, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		c.ID, c.Name, c.Platform, c.Objective, c.ProductName, audienceRaw,
		c.BudgetDaily, c.BudgetTotal, c.Status, c.MetaCampaignID, c.GoogleCampaignID,
		c.RegenAttempts, c.Version, c.LastOptimizedAt, c.HaltedAt, c.HaltedFrom,
		c.Archived, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCampaign returns a campaign by id, or domain.ErrCampaignNotFound.
func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(s.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	return c, err
}

// ListCampaigns returns all campaigns, newest first.
func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.listCampaigns(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
}

// ListRunning returns non-archived campaigns in active or optimizing state.
func (s *Store) ListRunning(ctx context.Context) ([]domain.Campaign, error) {
	return s.listCampaigns(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status IN ($1, $2) AND NOT archived ORDER BY created_at`,
		domain.StatusActive, domain.StatusOptimizing)
}

func (s *Store) listCampaigns(ctx context.Context, query string, args ...any) ([]domain.Campaign, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

// CommitTransition persists the campaign state change together with its
// produced artifacts and history record. The campaign row is locked and
// its version checked; a mismatch aborts the transaction with
// domain.ErrConcurrentModification.
func (s *Store) CommitTransition(ctx context.Context, c *domain.Campaign, effect port.TransitionEffect) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var current int
	err = tx.QueryRow(ctx,
		`SELECT version FROM campaigns WHERE id = $1 FOR UPDATE`, c.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrCampaignNotFound
		return err
	}
	if err != nil {
		return err
	}
	if current != c.Version {
		err = domain.ErrConcurrentModification
		return err
	}

	c.Version++
	c.UpdatedAt = time.Now().UTC()
	audienceRaw, merr := json.Marshal(c.Audience)
	if merr != nil {
		err = merr
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE campaigns SET
		name = $2, platform = $3, objective = $4, product_name = $5, audience = $6,
		budget_daily = $7, budget_total = $8, status = $9, meta_campaign_id = $10,
		google_campaign_id = $11, regen_attempts = $12, version = $13,
		last_optimized_at = $14, halted_at = $15, halted_from = $16, archived = $17,
		updated_at = $18
		WHERE id = $1`,
		c.ID, c.Name, c.Platform, c.Objective, c.ProductName, audienceRaw,
		c.BudgetDaily, c.BudgetTotal, c.Status, c.MetaCampaignID, c.GoogleCampaignID,
		c.RegenAttempts, c.Version, c.LastOptimizedAt, c.HaltedAt, c.HaltedFrom,
		c.Archived, c.UpdatedAt)
	if err != nil {
		return err
	}

	if cr := effect.NewCreative; cr != nil {
		err = insertCreative(ctx, tx, cr)
		if err != nil {
			return err
		}
	}
	if cr := effect.UpdateCreative; cr != nil {
		cr.UpdatedAt = time.Now().UTC()
		_, err = tx.Exec(ctx, `UPDATE creatives SET headline = $2, description = $3,
			call_to_action = $4, image_url = $5, image_prompt = $6, state = $7, updated_at = $8
			WHERE id = $1`,
			cr.ID, cr.Headline, cr.Description, cr.CallToAction,
			cr.ImageURL, cr.ImagePrompt, cr.State, cr.UpdatedAt)
		if err != nil {
			return err
		}
	}
	if rec := effect.Record; rec != nil {
		err = insertTransition(ctx, tx, rec)
	}
	return err
}

// ArchiveCampaign marks a terminal campaign archived. Campaigns are never
// deleted while active.
func (s *Store) ArchiveCampaign(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET archived = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertCreative(ctx context.Context, q execer, cr *domain.Creative) error {
	if cr.ID == "" {
		cr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cr.CreatedAt = now
	cr.UpdatedAt = now
	_, err := q.Exec(ctx, `INSERT INTO creatives
		(id, campaign_id, headline, description, call_to_action, image_url, image_prompt, state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		cr.ID, cr.CampaignID, cr.Headline, cr.Description, cr.CallToAction,
		cr.ImageURL, cr.ImagePrompt, cr.State, cr.CreatedAt, cr.UpdatedAt)
	return err
}

func insertTransition(ctx context.Context, q execer, rec *domain.TransitionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	_, err := q.Exec(ctx, `INSERT INTO transitions
		(id, campaign_id, from_status, to_status, attempt, executor, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.CampaignID, rec.From, rec.To, rec.Attempt, rec.Executor, rec.Error, rec.CreatedAt)
	return err
}

// AppendAttempt records a failed attempt outside any transition commit.
func (s *Store) AppendAttempt(ctx context.Context, rec *domain.TransitionRecord) error {
	return insertTransition(ctx, s.pool, rec)
}

// ListTransitions returns the full history for a campaign, oldest first.
func (s *Store) ListTransitions(ctx context.Context, campaignID string) ([]domain.TransitionRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, campaign_id, from_status, to_status, attempt, executor, error, created_at
		FROM transitions WHERE campaign_id = $1 ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TransitionRecord, error) {
		var r domain.TransitionRecord
		err := row.Scan(&r.ID, &r.CampaignID, &r.From, &r.To, &r.Attempt, &r.Executor, &r.Error, &r.CreatedAt)
		return r, err
	})
}

const creativeColumns = `id, campaign_id, headline, description, call_to_action,
	image_url, image_prompt, state, created_at, updated_at`

func scanCreative(row pgx.Row) (*domain.Creative, error) {
	var cr domain.Creative
	err := row.Scan(&cr.ID, &cr.CampaignID, &cr.Headline, &cr.Description,
		&cr.CallToAction, &cr.ImageURL, &cr.ImagePrompt, &cr.State, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// GetCreative returns a creative by id, nil when missing.
func (s *Store) GetCreative(ctx context.Context, id string) (*domain.Creative, error) {
	cr, err := scanCreative(s.pool.QueryRow(ctx,
		`SELECT `+creativeColumns+` FROM creatives WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cr, err
}

// LatestCreative returns the newest creative for a campaign, nil when
// none exists.
func (s *Store) LatestCreative(ctx context.Context, campaignID string) (*domain.Creative, error) {
	cr, err := scanCreative(s.pool.QueryRow(ctx,
		`SELECT `+creativeColumns+` FROM creatives WHERE campaign_id = $1
		 ORDER BY created_at DESC LIMIT 1`, campaignID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cr, err
}

// AppendSample stores one performance observation.
func (s *Store) AppendSample(ctx context.Context, sample *domain.PerformanceSample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO performance_samples
		(id, campaign_id, platform, impressions, clicks, spend, conversions, revenue, ctr, cpc, roas, health, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		sample.ID, sample.CampaignID, sample.Platform, sample.Impressions, sample.Clicks,
		sample.Spend, sample.Conversions, sample.Revenue, sample.CTR, sample.CPC,
		sample.ROAS, sample.Health, sample.Timestamp)
	return err
}

// RecentSamples returns up to limit samples no older than since, newest
// first.
func (s *Store) RecentSamples(ctx context.Context, campaignID string, limit int, since time.Time) ([]domain.PerformanceSample, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, campaign_id, platform, impressions, clicks,
		spend, conversions, revenue, ctr, cpc, roas, health, ts
		FROM performance_samples
		WHERE campaign_id = $1 AND ts >= $2
		ORDER BY ts DESC LIMIT $3`, campaignID, since, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PerformanceSample, error) {
		var p domain.PerformanceSample
		err := row.Scan(&p.ID, &p.CampaignID, &p.Platform, &p.Impressions, &p.Clicks,
			&p.Spend, &p.Conversions, &p.Revenue, &p.CTR, &p.CPC, &p.ROAS, &p.Health, &p.Timestamp)
		return p, err
	})
}

// SpendSince sums recorded spend for the campaign from since onward.
func (s *Store) SpendSince(ctx context.Context, campaignID string, since time.Time) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(sum(spend), 0) FROM performance_samples
		WHERE campaign_id = $1 AND ts >= $2`, campaignID, since).Scan(&total)
	return total, err
}

// CreateApproval inserts an approval request. The partial unique index on
// pending rows backs the at-most-one-pending invariant.
func (s *Store) CreateApproval(ctx context.Context, a *domain.Approval) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RequestedAt.IsZero() {
		a.RequestedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = domain.ApprovalPending
	}
	details := a.Details
	if details == nil {
		details = json.RawMessage(`{}`)
	}
	var creativeID *string
	if a.CreativeID != "" {
		creativeID = &a.CreativeID
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO approvals
		(id, campaign_id, creative_id, subject, status, details, requested_at, decided_at, decided_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.CampaignID, creativeID, a.Subject, a.Status, details,
		a.RequestedAt, a.DecidedAt, a.DecidedBy, a.Notes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "approvals_pending_uniq" {
		return domain.ErrApprovalPending
	}
	return err
}

const approvalColumns = `id, campaign_id, COALESCE(creative_id, ''), subject, status,
	details, requested_at, decided_at, decided_by, notes`

func scanApproval(row pgx.Row) (*domain.Approval, error) {
	var a domain.Approval
	err := row.Scan(&a.ID, &a.CampaignID, &a.CreativeID, &a.Subject, &a.Status,
		&a.Details, &a.RequestedAt, &a.DecidedAt, &a.DecidedBy, &a.Notes)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetApproval returns an approval by id, nil when missing.
func (s *Store) GetApproval(ctx context.Context, id string) (*domain.Approval, error) {
	a, err := scanApproval(s.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// PendingApproval returns the pending request for (campaign, subject),
// nil when there is none.
func (s *Store) PendingApproval(ctx context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error) {
	a, err := scanApproval(s.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approvals
		 WHERE campaign_id = $1 AND subject = $2 AND status = $3`,
		campaignID, subject, domain.ApprovalPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// LatestApproval returns the most recently requested approval for
// (campaign, subject), nil when none exists.
func (s *Store) LatestApproval(ctx context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error) {
	a, err := scanApproval(s.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approvals
		 WHERE campaign_id = $1 AND subject = $2
		 ORDER BY requested_at DESC LIMIT 1`, campaignID, subject))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ResolveApproval marks a pending request decided. The row is locked so
// concurrent decisions cannot both win; the loser gets
// domain.ErrAlreadyDecided.
func (s *Store) ResolveApproval(ctx context.Context, id string, status domain.ApprovalStatus, actor, notes string) (*domain.Approval, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var current domain.ApprovalStatus
	err = tx.QueryRow(ctx, `SELECT status FROM approvals WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNoPendingApproval
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if current != domain.ApprovalPending {
		err = domain.ErrAlreadyDecided
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `UPDATE approvals SET status = $2, decided_at = $3, decided_by = $4, notes = $5
		WHERE id = $1`, id, status, now, actor, notes)
	if err != nil {
		return nil, err
	}

	a, err := scanApproval(tx.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE id = $1`, id))
	return a, err
}

// AppendOptimization stores one optimizer evaluation record.
func (s *Store) AppendOptimization(ctx context.Context, o *domain.Optimization) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	before, err := json.Marshal(o.Before)
	if err != nil {
		return err
	}
	after, err := json.Marshal(o.After)
	if err != nil {
		return err
	}
	changes, err := json.Marshal(o.Changes)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO optimizations
		(id, campaign_id, trigger_reason, before_metrics, after_metrics, changes, applied, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.CampaignID, o.TriggerReason, before, after, changes, o.Applied, o.Error, o.CreatedAt)
	return err
}

// ListOptimizations returns the audit trail for a campaign, newest first.
func (s *Store) ListOptimizations(ctx context.Context, campaignID string) ([]domain.Optimization, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, campaign_id, trigger_reason, before_metrics,
		after_metrics, changes, applied, error, created_at
		FROM optimizations WHERE campaign_id = $1 ORDER BY created_at DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Optimization, error) {
		var (
			o                     domain.Optimization
			before, after, change []byte
		)
		err := row.Scan(&o.ID, &o.CampaignID, &o.TriggerReason, &before, &after, &change,
			&o.Applied, &o.Error, &o.CreatedAt)
		if err != nil {
			return o, err
		}
		if err = json.Unmarshal(before, &o.Before); err != nil {
			return o, err
		}
		if err = json.Unmarshal(after, &o.After); err != nil {
			return o, err
		}
		err = json.Unmarshal(change, &o.Changes)
		return o, err
	})
}
