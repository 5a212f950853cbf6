package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"adpilot/internal/config/configs"
	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

var (
	// ErrAwaitingApproval is returned by Advance when the campaign is
	// blocked on a pending human decision.
	ErrAwaitingApproval = errors.New("awaiting approval decision")
	// ErrInvalidState is returned when the requested operation does not
	// apply to the campaign's current status.
	ErrInvalidState = errors.New("operation not valid in current state")
)

// commitRetries bounds transparent reruns of an advance that lost the
// optimistic version race.
const commitRetries = 3

// Orchestrator drives campaigns through the lifecycle state machine. One
// Advance call performs the work owed in the current state through the
// bound executor, then commits the resulting transition atomically.
type Orchestrator struct {
	store     port.Store
	executors map[domain.ExecutorKind]port.Executor
	platforms map[domain.Platform]port.AdPlatform
	notifier  port.Notifier
	cfg       configs.Workflow
	locks     *CampaignLocks
	back      backoff
	log       *slog.Logger
}

// NewOrchestrator wires the state machine with its executors and the
// platform clients used for pause and resume delivery calls.
func NewOrchestrator(store port.Store, executors []port.Executor, platforms []port.AdPlatform,
	notifier port.Notifier, cfg configs.Workflow, locks *CampaignLocks, log *slog.Logger,
) *Orchestrator {
	byKind := make(map[domain.ExecutorKind]port.Executor, len(executors))
	for _, ex := range executors {
		byKind[ex.Kind()] = ex
	}
	byPlatform := make(map[domain.Platform]port.AdPlatform, len(platforms))
	for _, p := range platforms {
		byPlatform[p.Platform()] = p
	}
	return &Orchestrator{
		store:     store,
		executors: byKind,
		platforms: byPlatform,
		notifier:  notifier,
		cfg:       cfg,
		locks:     locks,
		back:      backoff{base: cfg.RetryBackoffBase},
		log:       log,
	}
}

// Create validates and persists a new campaign in the created state.
func (o *Orchestrator) Create(ctx context.Context, c *domain.Campaign) error {
	if c.Name == "" || c.ProductName == "" {
		return fmt.Errorf("%w: name and product_name are required", ErrInvalidState)
	}
	if !c.Platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidState, c.Platform)
	}
	if c.BudgetDaily <= 0 || c.BudgetTotal <= 0 {
		return fmt.Errorf("%w: budgets must be positive", ErrInvalidState)
	}
	c.Status = domain.StatusCreated
	if err := o.store.CreateCampaign(ctx, c); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	o.log.Info("campaign created", "campaign_id", c.ID, "platform", c.Platform)
	return nil
}

// Get returns a campaign by id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return o.store.GetCampaign(ctx, id)
}

// List returns all campaigns.
func (o *Orchestrator) List(ctx context.Context) ([]domain.Campaign, error) {
	return o.store.ListCampaigns(ctx)
}

// Advance moves the campaign one step forward. Advances that lose the
// optimistic version race are rerun transparently.
func (o *Orchestrator) Advance(ctx context.Context, id string) (*domain.Campaign, error) {
	var (
		c   *domain.Campaign
		err error
	)
	for try := 0; try < commitRetries; try++ {
		c, err = o.advance(ctx, id)
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return c, err
		}
		o.log.Debug("advance lost version race, retrying", "campaign_id", id)
	}
	return c, err
}

func (o *Orchestrator) advance(ctx context.Context, id string) (*domain.Campaign, error) {
	unlock := o.locks.Lock(id)
	c, err := o.store.GetCampaign(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}

	switch c.Status {
	case domain.StatusCreated:
		return o.generateContent(ctx, c, unlock)
	case domain.StatusContentGenerating:
		return o.generateVisual(ctx, c, unlock)
	case domain.StatusVisualGenerating:
		return o.enterGates(ctx, c, unlock)
	case domain.StatusPendingCreativeApproval:
		return o.creativeGate(ctx, c, unlock)
	case domain.StatusPendingBudgetApproval:
		return o.budgetGate(ctx, c, unlock)
	case domain.StatusLaunching:
		return o.launch(ctx, c, unlock)
	case domain.StatusActive:
		return o.complete(ctx, c, unlock)
	case domain.StatusHalted:
		unlock()
		return c, domain.ErrHalted
	default:
		unlock()
		return c, fmt.Errorf("%w: cannot advance from %s", ErrInvalidState, c.Status)
	}
}

// generateContent runs the content executor and commits the fresh draft
// creative. A creative left by an interrupted prior attempt short-circuits
// straight to the transition.
func (o *Orchestrator) generateContent(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	existing, err := o.store.LatestCreative(ctx, c.ID)
	if err != nil {
		unlock()
		return nil, err
	}
	if existing != nil && existing.State == domain.CreativeDraft && existing.Headline != "" {
		defer unlock()
		return o.commit(ctx, c, domain.StatusContentGenerating, port.TransitionEffect{}, domain.ExecutorContent)
	}

	in := port.ExecutionInput{Campaign: c, Creative: existing}
	unlock()
	art, err := o.execute(ctx, domain.ExecutorContent, in)

	unlock = o.locks.Lock(c.ID)
	defer unlock()
	if c, err = o.reload(ctx, c, err); err != nil {
		return c, err
	}
	creative := &domain.Creative{
		CampaignID:   c.ID,
		Headline:     art.Content.Headline,
		Description:  art.Content.Description,
		CallToAction: art.Content.CallToAction,
		State:        domain.CreativeDraft,
	}
	return o.commit(ctx, c, domain.StatusContentGenerating,
		port.TransitionEffect{NewCreative: creative}, domain.ExecutorContent)
}

// generateVisual attaches an image to the draft creative. Visual failure
// does not fail the campaign: ad delivery works without an image, so
// after retries are spent the campaign proceeds and the miss is logged.
func (o *Orchestrator) generateVisual(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	creative, err := o.store.LatestCreative(ctx, c.ID)
	if err != nil {
		unlock()
		return nil, err
	}
	if creative == nil {
		unlock()
		return nil, fmt.Errorf("%w: no creative to illustrate", ErrInvalidState)
	}
	if creative.ImageURL != "" {
		defer unlock()
		return o.commit(ctx, c, domain.StatusVisualGenerating, port.TransitionEffect{}, domain.ExecutorVisual)
	}

	in := port.ExecutionInput{Campaign: c, Creative: creative}
	unlock()
	art, err := o.execute(ctx, domain.ExecutorVisual, in)

	unlock = o.locks.Lock(c.ID)
	defer unlock()
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		fresh, gerr := o.store.GetCampaign(ctx, c.ID)
		if gerr != nil {
			return nil, gerr
		}
		if fresh.Status != c.Status {
			return fresh, domain.ErrConcurrentModification
		}
		o.log.Warn("visual generation failed, proceeding without image",
			"campaign_id", c.ID, "error", err)
		return o.commit(ctx, fresh, domain.StatusVisualGenerating, port.TransitionEffect{}, domain.ExecutorVisual)
	}
	if c, err = o.reload(ctx, c, nil); err != nil {
		return c, err
	}
	creative.ImageURL = art.Image.URL
	creative.ImagePrompt = art.Image.Prompt
	return o.commit(ctx, c, domain.StatusVisualGenerating,
		port.TransitionEffect{UpdateCreative: creative}, domain.ExecutorVisual)
}

// enterGates routes the campaign into the human approval gates, or
// straight to launching when gates are disabled.
func (o *Orchestrator) enterGates(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	defer unlock()
	if !o.cfg.HumanApprovalRequired {
		return o.commit(ctx, c, domain.StatusLaunching, port.TransitionEffect{}, "")
	}
	creative, err := o.store.LatestCreative(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	approval, err := o.requestApproval(ctx, c, domain.SubjectCreative, creative)
	if err != nil {
		return nil, err
	}
	var effect port.TransitionEffect
	if creative != nil && creative.State == domain.CreativeDraft {
		creative.State = domain.CreativePending
		effect.UpdateCreative = creative
	}
	c, err = o.commit(ctx, c, domain.StatusPendingCreativeApproval, effect, "")
	if err == nil {
		o.notifier.ApprovalRequested(ctx, approval)
	}
	return c, err
}

// creativeGate reads the creative approval decision. Pending blocks,
// approval moves on to the budget gate, rejection routes back through
// content generation a bounded number of times.
func (o *Orchestrator) creativeGate(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	decision, err := o.gateDecision(ctx, c, domain.SubjectCreative)
	if err != nil {
		unlock()
		return c, err
	}
	creative, err := o.store.LatestCreative(ctx, c.ID)
	if err != nil {
		unlock()
		return nil, err
	}

	if decision.Status == domain.ApprovalApproved {
		defer unlock()
		var effect port.TransitionEffect
		if creative != nil {
			creative.State = domain.CreativeApproved
			effect.UpdateCreative = creative
		}
		next := domain.StatusLaunching
		if o.cfg.HumanApprovalRequired {
			next = domain.StatusPendingBudgetApproval
		}
		c, err = o.commit(ctx, c, next, effect, "")
		if err == nil && next == domain.StatusPendingBudgetApproval {
			approval, aerr := o.requestApproval(ctx, c, domain.SubjectBudget, nil)
			if aerr != nil {
				return c, aerr
			}
			o.notifier.ApprovalRequested(ctx, approval)
		}
		return c, err
	}

	// Rejected: regenerate, unless the bound is spent.
	if c.RegenAttempts >= o.cfg.MaxRegenAttempts {
		defer unlock()
		return o.fail(ctx, c, domain.ExecutorContent,
			fmt.Errorf("creative rejected %d times", c.RegenAttempts+1))
	}
	in := port.ExecutionInput{Campaign: c, Creative: creative}
	unlock()
	art, err := o.execute(ctx, domain.ExecutorContent, in)

	unlock = o.locks.Lock(c.ID)
	defer unlock()
	if c, err = o.reload(ctx, c, err); err != nil {
		return c, err
	}
	c.RegenAttempts++
	replacement := &domain.Creative{
		CampaignID:   c.ID,
		Headline:     art.Content.Headline,
		Description:  art.Content.Description,
		CallToAction: art.Content.CallToAction,
		State:        domain.CreativeDraft,
	}
	o.log.Info("creative rejected, regenerated",
		"campaign_id", c.ID, "attempt", c.RegenAttempts)
	return o.commit(ctx, c, domain.StatusContentGenerating,
		port.TransitionEffect{NewCreative: replacement}, domain.ExecutorContent)
}

// budgetGate reads the budget approval decision. Rejection pauses the
// campaign rather than failing it; the budget can be renegotiated and
// the campaign resumed.
func (o *Orchestrator) budgetGate(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	defer unlock()
	decision, err := o.gateDecision(ctx, c, domain.SubjectBudget)
	if err != nil {
		return c, err
	}
	if decision.Status == domain.ApprovalApproved {
		return o.commit(ctx, c, domain.StatusLaunching, port.TransitionEffect{}, "")
	}
	// A rejection decided before the campaign's last write has already
	// paused it once; re-entering the gate after a resume means the
	// budget was renegotiated, so ask again.
	if decision.DecidedAt != nil && decision.DecidedAt.Before(c.UpdatedAt) {
		approval, aerr := o.requestApproval(ctx, c, domain.SubjectBudget, nil)
		if aerr != nil {
			return c, aerr
		}
		o.notifier.ApprovalRequested(ctx, approval)
		return c, ErrAwaitingApproval
	}
	c.HaltedFrom = domain.StatusPendingBudgetApproval
	return o.commit(ctx, c, domain.StatusPaused, port.TransitionEffect{}, "")
}

// gateDecision returns the decided approval for the subject. A pending
// request maps to ErrAwaitingApproval; a missing one is recreated so a
// lost request cannot wedge the campaign.
func (o *Orchestrator) gateDecision(ctx context.Context, c *domain.Campaign, subject domain.ApprovalSubject) (*domain.Approval, error) {
	latest, err := o.store.LatestApproval(ctx, c.ID, subject)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		approval, err := o.requestApproval(ctx, c, subject, nil)
		if err != nil {
			return nil, err
		}
		o.notifier.ApprovalRequested(ctx, approval)
		return nil, ErrAwaitingApproval
	}
	if !latest.Decided() {
		return nil, ErrAwaitingApproval
	}
	return latest, nil
}

// launch creates the campaign on each target platform and records the
// returned external ids. Platforms already carrying an id are skipped, so
// a retried launch never duplicates a remote campaign.
func (o *Orchestrator) launch(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	if allLaunched(c) {
		defer unlock()
		return o.commit(ctx, c, domain.StatusActive, port.TransitionEffect{}, domain.ExecutorLaunch)
	}
	creative, err := o.store.LatestCreative(ctx, c.ID)
	if err != nil {
		unlock()
		return nil, err
	}

	in := port.ExecutionInput{Campaign: c, Creative: creative}
	unlock()
	art, err := o.execute(ctx, domain.ExecutorLaunch, in)

	unlock = o.locks.Lock(c.ID)
	defer unlock()
	if c, err = o.reload(ctx, c, err); err != nil {
		return c, err
	}
	for p, id := range art.Launch.ExternalIDs {
		c.SetExternalID(p, id)
	}
	o.log.Info("campaign launched", "campaign_id", c.ID, "platforms", len(art.Launch.ExternalIDs))
	return o.commit(ctx, c, domain.StatusActive, port.TransitionEffect{}, domain.ExecutorLaunch)
}

// complete closes out an active campaign. The control loops own the
// active ⇄ optimizing cycle; an explicit advance on an active campaign is
// the operator finishing it.
func (o *Orchestrator) complete(ctx context.Context, c *domain.Campaign, unlock func()) (*domain.Campaign, error) {
	defer unlock()
	o.pausePlatforms(ctx, c)
	return o.commit(ctx, c, domain.StatusCompleted, port.TransitionEffect{}, "")
}

// Pause suspends a campaign manually. Platform delivery is paused too.
func (o *Orchestrator) Pause(ctx context.Context, id string) (*domain.Campaign, error) {
	unlock := o.locks.Lock(id)
	defer unlock()
	c, err := o.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.StatusHalted {
		return c, domain.ErrHalted
	}
	if !domain.CanTransition(c.Status, domain.StatusPaused) {
		return c, fmt.Errorf("%w: cannot pause from %s", ErrInvalidState, c.Status)
	}
	o.pausePlatforms(ctx, c)
	c.HaltedFrom = resumableFrom(c.Status)
	return o.commit(ctx, c, domain.StatusPaused, port.TransitionEffect{}, "")
}

// Halt stops a campaign for budget protection. Halting is monotonic: an
// already-halted campaign is left untouched, and nothing but an explicit
// Resume ever brings it back.
func (o *Orchestrator) Halt(ctx context.Context, id, reason string) (*domain.Campaign, error) {
	unlock := o.locks.Lock(id)
	defer unlock()
	c, err := o.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.StatusHalted {
		return c, nil
	}
	if !domain.CanTransition(c.Status, domain.StatusHalted) {
		return c, fmt.Errorf("%w: cannot halt from %s", ErrInvalidState, c.Status)
	}
	o.pausePlatforms(ctx, c)
	now := time.Now().UTC()
	c.HaltedFrom = resumableFrom(c.Status)
	c.HaltedAt = &now
	o.log.Warn("campaign halted", "campaign_id", c.ID, "reason", reason)
	return o.commit(ctx, c, domain.StatusHalted, port.TransitionEffect{
		Record: &domain.TransitionRecord{CampaignID: c.ID, From: c.Status, To: domain.StatusHalted, Error: reason},
	}, "")
}

// Resume restores a paused or halted campaign to its recorded prior
// state. This is the only path out of a budget halt.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*domain.Campaign, error) {
	unlock := o.locks.Lock(id)
	defer unlock()
	c, err := o.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusPaused && c.Status != domain.StatusHalted {
		return c, fmt.Errorf("%w: cannot resume from %s", ErrInvalidState, c.Status)
	}
	restored := resumableFrom(c.HaltedFrom)
	if restored == "" {
		restored = domain.StatusActive
	}
	if restored.Running() {
		o.resumePlatforms(ctx, c)
	}
	c.HaltedFrom = ""
	c.HaltedAt = nil
	return o.commit(ctx, c, restored, port.TransitionEffect{}, "")
}

// Archive marks a terminal campaign archived. History is retained.
func (o *Orchestrator) Archive(ctx context.Context, id string) error {
	c, err := o.store.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !c.Status.Terminal() {
		return fmt.Errorf("%w: only completed or failed campaigns can be archived", ErrInvalidState)
	}
	return o.store.ArchiveCampaign(ctx, id)
}

// execute runs the executor with timeout and classified-error retry.
// Every failed attempt lands in the transition log; terminal errors and
// exhausted retries bubble up for the caller to fail the campaign.
func (o *Orchestrator) execute(ctx context.Context, kind domain.ExecutorKind, in port.ExecutionInput) (*port.Artifact, error) {
	ex, ok := o.executors[kind]
	if !ok {
		return nil, domain.Terminal(string(kind), errors.New("no executor bound"))
	}
	status := in.Campaign.Status
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetryAttempts; attempt++ {
		execCtx, cancel := context.WithTimeout(ctx, o.cfg.ExecutorTimeout)
		art, err := ex.Execute(execCtx, in)
		cancel()
		if err == nil {
			if verr := art.Validate(); verr != nil {
				return nil, domain.Terminal(string(kind), verr)
			}
			return art, nil
		}

		lastErr = err
		o.log.Warn("executor attempt failed",
			"campaign_id", in.Campaign.ID, "executor", kind, "attempt", attempt, "error", err)
		if rerr := o.store.AppendAttempt(ctx, &domain.TransitionRecord{
			CampaignID: in.Campaign.ID,
			From:       status,
			To:         status,
			Attempt:    attempt,
			Executor:   kind,
			Error:      err.Error(),
		}); rerr != nil {
			o.log.Error("record attempt", "campaign_id", in.Campaign.ID, "error", rerr)
		}

		if domain.IsTerminal(err) || attempt == o.cfg.MaxRetryAttempts {
			break
		}
		if werr := o.back.wait(ctx, attempt); werr != nil {
			return nil, werr
		}
		// The campaign may have been paused or halted while we slept.
		fresh, gerr := o.store.GetCampaign(ctx, in.Campaign.ID)
		if gerr != nil {
			return nil, gerr
		}
		if fresh.Status != status {
			return nil, domain.ErrConcurrentModification
		}
		in.Campaign = fresh
	}
	if domain.IsTerminal(lastErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%s: retries exhausted: %w", kind, lastErr)
}

// reload refreshes the campaign after the lock was dropped for an
// executor call. An executor error fails the campaign here, under lock.
func (o *Orchestrator) reload(ctx context.Context, c *domain.Campaign, execErr error) (*domain.Campaign, error) {
	fresh, err := o.store.GetCampaign(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if fresh.Status != c.Status {
		return fresh, domain.ErrConcurrentModification
	}
	if execErr != nil {
		if errors.Is(execErr, domain.ErrConcurrentModification) || errors.Is(execErr, context.Canceled) {
			return fresh, execErr
		}
		return o.fail(ctx, fresh, "", execErr)
	}
	return fresh, nil
}

// commit validates the transition and persists it with a history record.
func (o *Orchestrator) commit(ctx context.Context, c *domain.Campaign, to domain.Status,
	effect port.TransitionEffect, kind domain.ExecutorKind,
) (*domain.Campaign, error) {
	from := c.Status
	if !domain.CanTransition(from, to) {
		return c, fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
	if effect.Record == nil {
		effect.Record = &domain.TransitionRecord{CampaignID: c.ID, From: from, To: to, Executor: kind}
	}
	c.Status = to
	if err := o.store.CommitTransition(ctx, c, effect); err != nil {
		c.Status = from
		return c, err
	}
	o.log.Info("campaign transitioned", "campaign_id", c.ID, "from", from, "to", to)
	return c, nil
}

// fail moves the campaign to the terminal failed state, keeping the
// error on the final history record.
func (o *Orchestrator) fail(ctx context.Context, c *domain.Campaign, kind domain.ExecutorKind, cause error) (*domain.Campaign, error) {
	o.log.Error("campaign failed", "campaign_id", c.ID, "from", c.Status, "error", cause)
	c, err := o.commit(ctx, c, domain.StatusFailed, port.TransitionEffect{
		Record: &domain.TransitionRecord{
			CampaignID: c.ID, From: c.Status, To: domain.StatusFailed,
			Executor: kind, Error: cause.Error(),
		},
	}, kind)
	if err != nil {
		return c, err
	}
	return c, cause
}

func (o *Orchestrator) pausePlatforms(ctx context.Context, c *domain.Campaign) {
	o.eachPlatform(ctx, c, "pause", func(p port.AdPlatform, id string) error {
		return p.Pause(ctx, id)
	})
}

func (o *Orchestrator) resumePlatforms(ctx context.Context, c *domain.Campaign) {
	o.eachPlatform(ctx, c, "resume", func(p port.AdPlatform, id string) error {
		return p.Resume(ctx, id)
	})
}

// eachPlatform applies op to every platform the campaign is live on.
// Failures are logged, not fatal: local state is authoritative and the
// next control tick reconciles delivery.
func (o *Orchestrator) eachPlatform(ctx context.Context, c *domain.Campaign, op string,
	fn func(p port.AdPlatform, externalID string) error,
) {
	for _, target := range c.Platform.Each() {
		externalID := c.ExternalID(target)
		if externalID == "" {
			continue
		}
		client, ok := o.platforms[target]
		if !ok {
			continue
		}
		if err := fn(client, externalID); err != nil {
			o.log.Error("platform call failed",
				"campaign_id", c.ID, "platform", target, "op", op, "error", err)
		}
	}
}

// resumableFrom records where a suspended campaign should come back. A
// campaign interrupted mid-optimization resumes as active: the
// evaluation it was in is abandoned, and the next tick reruns it.
func resumableFrom(s domain.Status) domain.Status {
	if s == domain.StatusOptimizing {
		return domain.StatusActive
	}
	return s
}

func allLaunched(c *domain.Campaign) bool {
	for _, p := range c.Platform.Each() {
		if c.ExternalID(p) == "" {
			return false
		}
	}
	return true
}
