// Package scheduler runs the polling orchestrator: every interval it groups
// active monitors by wallet, polls each group's transaction service with
// bounded concurrency, analyzes what it finds, and fans alerts out to the
// monitors' channels exactly once per (transaction, monitor) pair.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"safe-monitor/internal/analysis"
	"safe-monitor/internal/health"
	"safe-monitor/internal/interfaces"
	"safe-monitor/internal/models"
	"safe-monitor/internal/networks"
	"safe-monitor/internal/txservice"
	"safe-monitor/internal/validation"
)

// DefaultMaxConcurrentGroups bounds how many wallet groups are polled at once.
const DefaultMaxConcurrentGroups = 20

// Scheduler is the polling orchestrator.
type Scheduler struct {
	Store               interfaces.Store
	Source              interfaces.TransactionSource
	Dispatcher          interfaces.AlertDispatcher
	Emitter             interfaces.AlertEmitter
	Analyzer            *analysis.Analyzer
	PollInterval        time.Duration
	MaxConcurrentGroups int
	Logger              *zerolog.Logger

	running atomic.Bool
}

// group is one (wallet, network) pair and every monitor subscribed to it. The
// service is polled once per group no matter how many monitors watch it.
type group struct {
	safeAddress string
	network     string
	monitors    []models.Monitor
}

func New(store interfaces.Store, source interfaces.TransactionSource, dispatcher interfaces.AlertDispatcher, analyzer *analysis.Analyzer, pollInterval time.Duration, maxConcurrent int, logger *zerolog.Logger) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentGroups
	}
	return &Scheduler{
		Store:               store,
		Source:              source,
		Dispatcher:          dispatcher,
		Analyzer:            analyzer,
		PollInterval:        pollInterval,
		MaxConcurrentGroups: maxConcurrent,
		Logger:              logger,
	}
}

// Run polls until the context is cancelled. The first cycle starts
// immediately; if a cycle overruns the interval the next tick is skipped
// rather than stacking cycles.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	s.runCycleGuarded(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycleGuarded(ctx)
		}
	}
}

func (s *Scheduler) runCycleGuarded(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Warn().Msg("Previous polling cycle still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	if err := s.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.Error().Err(err).Msg("Polling cycle failed")
	}
}

// RunCycle executes one full polling pass over all active monitors.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	started := time.Now()

	monitors, err := s.Store.ActiveMonitors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active monitors: %w", err)
	}

	groups := groupMonitors(monitors, s.Logger)
	if len(groups) == 0 {
		s.Logger.Debug().Msg("No active monitors to poll")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.MaxConcurrentGroups)
	for _, grp := range groups {
		grp := grp
		g.Go(func() error {
			// One failing group never aborts the others.
			s.processGroup(gctx, grp)
			return nil
		})
	}
	_ = g.Wait()

	perNetwork := make(map[string]int)
	for _, grp := range groups {
		perNetwork[grp.network]++
	}
	finished := time.Now()
	for network, count := range perNetwork {
		health.RecordNetwork(network, count, finished)
	}
	health.RecordCycle(finished)

	s.Logger.Info().
		Int("monitors", len(monitors)).
		Int("groups", len(groups)).
		Dur("elapsed", finished.Sub(started)).
		Msg("Polling cycle complete")
	return nil
}

// groupMonitors buckets monitors by (lowercased wallet, network), dropping
// rows that fail validation.
func groupMonitors(monitors []models.Monitor, logger *zerolog.Logger) []group {
	byKey := make(map[string]*group)
	var order []string
	for _, m := range monitors {
		if err := validation.ValidateMonitor(&m); err != nil {
			logger.Warn().Err(err).Str("monitorID", m.ID).Msg("Skipping invalid monitor")
			continue
		}
		key := strings.ToLower(m.SafeAddress) + "|" + strings.ToLower(m.Network)
		grp, ok := byKey[key]
		if !ok {
			grp = &group{safeAddress: m.SafeAddress, network: strings.ToLower(m.Network)}
			byKey[key] = grp
			order = append(order, key)
		}
		grp.monitors = append(grp.monitors, m)
	}

	groups := make([]group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

// processGroup polls one wallet: probe, incremental fetch, then per-transaction
// analysis and notification. Errors are logged, never propagated; the wallet
// is retried on the next cycle from its durable checkpoint.
func (s *Scheduler) processGroup(ctx context.Context, grp group) {
	log := s.Logger.With().
		Str("safe", grp.safeAddress).
		Str("network", grp.network).
		Logger()

	net, err := networks.Get(grp.network)
	if err != nil {
		log.Error().Err(err).Msg("Unknown network in monitor group")
		return
	}

	// Existence/version probe. Distinguishes a wallet the service does not
	// know from the service itself being down.
	info, err := s.Source.GetSafeInfo(ctx, grp.network, grp.safeAddress)
	if err != nil {
		if errors.Is(err, txservice.ErrNotFound) {
			log.Warn().Msg("Safe not found on transaction service")
			if err := s.Store.TouchLastPolled(ctx, grp.safeAddress, grp.network, time.Now()); err != nil {
				log.Error().Err(err).Msg("Failed to touch checkpoint")
			}
			return
		}
		log.Warn().Err(err).Msg("Transaction service unavailable, will retry next cycle")
		return
	}

	cp, err := s.Store.GetCheckpoint(ctx, grp.safeAddress, grp.network)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load checkpoint")
		return
	}
	var modifiedSince *time.Time
	if cp != nil {
		modifiedSince = cp.LastTxFoundAt
	}

	if err := s.Store.TouchLastPolled(ctx, grp.safeAddress, grp.network, time.Now()); err != nil {
		log.Error().Err(err).Msg("Failed to touch checkpoint")
	}

	txs, err := s.Source.GetTransactions(ctx, grp.network, grp.safeAddress, modifiedSince)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch transactions, will retry next cycle")
		return
	}
	if len(txs) == 0 {
		return
	}
	log.Debug().Int("count", len(txs)).Msg("Processing fetched transactions")

	for i := range txs {
		tx := &txs[i]
		if err := s.processTransaction(ctx, grp, net, info.Version, tx, &log); err != nil {
			log.Error().Err(err).Str("safeTxHash", tx.SafeTxHash).Msg("Failed to process transaction")
			// Stop here so the checkpoint is not advanced past it.
			return
		}
		if t := nextCursor(tx); t != nil {
			if err := s.Store.AdvanceLastTxFound(ctx, grp.safeAddress, grp.network, *t); err != nil {
				log.Error().Err(err).Msg("Failed to advance checkpoint")
				return
			}
		}
	}
}

// nextCursor picks the fetch cursor after a transaction was processed. The
// modified__gte filter is inclusive, so the cursor moves one second past the
// transaction's modified timestamp; otherwise the newest transaction would be
// re-fetched on every cycle forever.
func nextCursor(tx *models.SafeTransaction) *time.Time {
	t := tx.Modified
	if t == nil {
		t = tx.EventTime()
	}
	if t == nil {
		return nil
	}
	next := t.Add(time.Second)
	return &next
}

// processTransaction analyzes one transaction, persists it when new or
// changed, and notifies every subscribed monitor that wants it.
func (s *Scheduler) processTransaction(ctx context.Context, grp group, net networks.Network, version string, tx *models.SafeTransaction, log *zerolog.Logger) error {
	if tx.SafeTxHash == "" {
		log.Warn().Msg("Transaction without safeTxHash, skipping")
		return nil
	}

	stored, err := s.Store.GetTransaction(ctx, tx.SafeTxHash, grp.safeAddress, grp.network)
	if err != nil {
		return err
	}
	changed := stored == nil || stored.ChangedBy(tx)

	opts := analysis.Options{ChainID: net.ChainID, Version: version}
	highest, ok, err := s.Store.HighestNonce(ctx, grp.safeAddress, grp.network, tx.SafeTxHash)
	if err != nil {
		return err
	}
	if ok {
		opts.PrevNonce = &highest
	}

	res := s.Analyzer.Analyze(tx, grp.safeAddress, opts)

	if changed {
		if err := s.Store.UpsertTransaction(ctx, tx, grp.safeAddress, grp.network); err != nil {
			return err
		}
		if err := s.Store.SaveAnalysis(ctx, tx.SafeTxHash, grp.safeAddress, grp.network, res); err != nil {
			return err
		}
		if res.IsSuspicious {
			log.Warn().
				Str("safeTxHash", tx.SafeTxHash).
				Str("riskLevel", string(res.RiskLevel)).
				Strs("warnings", res.Warnings).
				Msg("Suspicious transaction detected")
		}
	}

	for _, m := range grp.monitors {
		s.notifyMonitor(ctx, &m, net, tx, res, log)
	}
	return nil
}

// notifyMonitor applies the monitor's filter and the dedup record, then
// dispatches. Dispatch failures are terminal for the attempt; channels own
// their own error handling and there is no per-channel redelivery.
func (s *Scheduler) notifyMonitor(ctx context.Context, m *models.Monitor, net networks.Network, tx *models.SafeTransaction, res *analysis.Result, log *zerolog.Logger) {
	// Backfill suppression: a transaction submitted before the monitor
	// existed is history, not news, even when it executes later. The floor is
	// the submission date; execution date only stands in when the service
	// omitted it.
	floor := tx.SubmissionDate
	if floor == nil {
		floor = tx.ExecutionDate
	}
	if floor == nil || !floor.After(m.CreatedAt) {
		return
	}

	if !shouldNotify(m, res) {
		return
	}

	notified, err := s.Store.WasNotified(ctx, tx.SafeTxHash, m.ID)
	if err != nil {
		log.Error().Err(err).Str("monitorID", m.ID).Msg("Failed to check notification record")
		return
	}
	if notified {
		return
	}

	alert := buildAlert(m, net, tx, res)
	s.Dispatcher.Dispatch(ctx, m.Settings.Channels, alert)

	if _, err := s.Store.MarkNotified(ctx, tx.SafeTxHash, m.ID); err != nil {
		log.Error().Err(err).Str("monitorID", m.ID).Msg("Failed to record notification")
		return
	}

	if s.Emitter != nil {
		if err := s.Emitter.EmitAlert(alert); err != nil {
			log.Error().Err(err).Str("monitorID", m.ID).Msg("Failed to mirror alert")
		}
	}

	log.Info().
		Str("monitorID", m.ID).
		Str("safeTxHash", tx.SafeTxHash).
		Str("riskLevel", string(res.RiskLevel)).
		Msg("Alert dispatched")
}

// shouldNotify resolves the monitor's alert-type filter against the analysis.
// P0 findings override every filter.
func shouldNotify(m *models.Monitor, res *analysis.Result) bool {
	if res.HasP0() {
		return true
	}
	switch m.EffectiveAlertType() {
	case models.AlertAll:
		return true
	case models.AlertManagement:
		return res.IsManagement
	default:
		if res.TrackOnly() {
			return false
		}
		return res.IsSuspicious || res.IsManagement
	}
}

func buildAlert(m *models.Monitor, net networks.Network, tx *models.SafeTransaction, res *analysis.Result) models.AlertEvent {
	alert := models.AlertEvent{
		MonitorID:   m.ID,
		SafeAddress: m.SafeAddress,
		Network:     net.Name,
		SafeTxHash:  tx.SafeTxHash,
		Description: res.Summary,
		Nonce:       tx.NonceInt64(),
		Status:      tx.Status(),
		Suspicious:  res.IsSuspicious,
		RiskLevel:   string(res.RiskLevel),
		Warnings:    res.Warnings,
		Links: models.AlertLinks{
			SafeApp:     net.SafeAppURL(m.SafeAddress),
			SafeMonitor: fmt.Sprintf("https://monitor.safe-monitor.local/safe/%s/%s", net.Name, m.SafeAddress),
			Explorer:    net.ExplorerAddressURL(m.SafeAddress),
		},
		Timestamp: time.Now().UTC(),
	}
	if tx.TransactionHash != nil {
		alert.ExecutionHash = *tx.TransactionHash
		alert.Links.Explorer = net.ExplorerTxURL(*tx.TransactionHash)
	}
	if et := tx.EventTime(); et != nil {
		alert.Timestamp = et.UTC()
	}
	return alert
}
