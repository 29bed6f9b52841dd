package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"safe-monitor/internal/analysis"
	"safe-monitor/internal/models"
)

// ActiveMonitors returns every monitor whose settings mark it active.
// Monitors are written by the configuration API; the core only reads them.
func (s *Store) ActiveMonitors(ctx context.Context) ([]models.Monitor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, safe_address, network, settings, created_at
		FROM monitors
		WHERE settings->>'active' = 'true'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitors: %w", err)
	}
	defer rows.Close()

	var monitors []models.Monitor
	for rows.Next() {
		var m models.Monitor
		var settings []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.SafeAddress, &m.Network, &settings, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(settings, &m.Settings); err != nil {
			return nil, fmt.Errorf("monitor %s has malformed settings: %w", m.ID, err)
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// CreateMonitor inserts a monitor row. Used by the seed command; the
// configuration API owns this table in production.
func (s *Store) CreateMonitor(ctx context.Context, m *models.Monitor) error {
	settings, err := json.Marshal(m.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO monitors (user_id, safe_address, network, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.UserID, m.SafeAddress, m.Network, settings).Scan(&m.ID, &m.CreatedAt)
}

// GetTransaction looks up a stored transaction; nil when unseen.
func (s *Store) GetTransaction(ctx context.Context, safeTxHash, safeAddress, network string) (*models.StoredTransaction, error) {
	var t models.StoredTransaction
	var isSuccessful sql.NullBool
	var executionDate sql.NullTime
	var executionHash sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, safe_tx_hash, safe_address, network, nonce,
		       is_executed, is_successful, execution_date, execution_hash, confirmation_count
		FROM safe_transactions
		WHERE safe_tx_hash = $1 AND safe_address = $2 AND network = $3
	`, safeTxHash, safeAddress, network).Scan(
		&t.ID, &t.SafeTxHash, &t.SafeAddress, &t.Network, &t.Nonce,
		&t.IsExecuted, &isSuccessful, &executionDate, &executionHash, &t.ConfirmationCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if isSuccessful.Valid {
		t.IsSuccessful = &isSuccessful.Bool
	}
	if executionDate.Valid {
		d := executionDate.Time
		t.ExecutionDate = &d
	}
	if executionHash.Valid {
		h := executionHash.String
		t.ExecutionHash = &h
	}
	return &t, nil
}

// UpsertTransaction stores a transaction, updating the mutable execution
// fields in place when the row already exists. Never duplicates a
// (safe_tx_hash, safe_address, network) key.
func (s *Store) UpsertTransaction(ctx context.Context, tx *models.SafeTransaction, safeAddress, network string) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO safe_transactions (
			safe_tx_hash, safe_address, network, to_address, value, operation, nonce,
			method, submission_date, execution_date, is_executed, is_successful,
			execution_hash, confirmation_count, raw
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (safe_tx_hash, safe_address, network) DO UPDATE SET
			execution_date     = EXCLUDED.execution_date,
			is_executed        = EXCLUDED.is_executed,
			is_successful      = EXCLUDED.is_successful,
			execution_hash     = EXCLUDED.execution_hash,
			confirmation_count = EXCLUDED.confirmation_count,
			raw                = EXCLUDED.raw,
			updated_at         = now()
	`, tx.SafeTxHash, safeAddress, network, tx.To, tx.Value, int(tx.Operation), tx.NonceInt64(),
		nullString(tx.Method()), nullTime(tx.SubmissionDate), nullTime(tx.ExecutionDate),
		tx.IsExecuted, nullBool(tx.IsSuccessful), nullStringPtr(tx.TransactionHash),
		len(tx.Confirmations), raw)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

// HighestNonce returns the highest nonce among stored transactions for the
// wallet, excluding the given hash so re-analysis of a known transaction does
// not compare it against itself.
func (s *Store) HighestNonce(ctx context.Context, safeAddress, network, excludeTxHash string) (int64, bool, error) {
	var nonce sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(nonce)
		FROM safe_transactions
		WHERE safe_address = $1 AND network = $2 AND safe_tx_hash <> $3
	`, safeAddress, network, excludeTxHash).Scan(&nonce)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query highest nonce: %w", err)
	}
	if !nonce.Valid {
		return 0, false, nil
	}
	return nonce.Int64, true, nil
}

// SaveAnalysis upserts the analysis result for a transaction.
func (s *Store) SaveAnalysis(ctx context.Context, safeTxHash, safeAddress, network string, res *analysis.Result) error {
	warnings, err := json.Marshal(res.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	details, err := json.Marshal(res.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	var hashVerified sql.NullBool
	var computedHash sql.NullString
	if res.HashCheck != nil {
		hashVerified = sql.NullBool{Bool: res.HashCheck.Verified, Valid: true}
		computedHash = sql.NullString{String: res.HashCheck.ComputedHash, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO security_analyses (
			safe_tx_hash, safe_address, network, is_suspicious, risk_level,
			warnings, details, hash_verified, computed_hash, call_type, summary
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (safe_tx_hash, safe_address) DO UPDATE SET
			is_suspicious = EXCLUDED.is_suspicious,
			risk_level    = EXCLUDED.risk_level,
			warnings      = EXCLUDED.warnings,
			details       = EXCLUDED.details,
			hash_verified = EXCLUDED.hash_verified,
			computed_hash = EXCLUDED.computed_hash,
			call_type     = EXCLUDED.call_type,
			summary       = EXCLUDED.summary,
			updated_at    = now()
	`, safeTxHash, safeAddress, network, res.IsSuspicious, string(res.RiskLevel),
		warnings, details, hashVerified, computedHash, res.CallType, res.Summary)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetCheckpoint loads the poll cursor for a wallet; nil when none exists yet.
func (s *Store) GetCheckpoint(ctx context.Context, safeAddress, network string) (*models.Checkpoint, error) {
	cp := models.Checkpoint{SafeAddress: safeAddress, Network: network}
	var lastPolled, lastFound sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT last_polled_at, last_tx_found_at
		FROM checkpoints
		WHERE safe_address = $1 AND network = $2
	`, safeAddress, network).Scan(&lastPolled, &lastFound)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	if lastPolled.Valid {
		t := lastPolled.Time
		cp.LastPolledAt = &t
	}
	if lastFound.Valid {
		t := lastFound.Time
		cp.LastTxFoundAt = &t
	}
	return &cp, nil
}

// TouchLastPolled records that the wallet was polled at t.
func (s *Store) TouchLastPolled(ctx context.Context, safeAddress, network string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (safe_address, network, last_polled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (safe_address, network) DO UPDATE SET last_polled_at = EXCLUDED.last_polled_at
	`, safeAddress, network, t)
	if err != nil {
		return fmt.Errorf("failed to touch checkpoint: %w", err)
	}
	return nil
}

// AdvanceLastTxFound moves the incremental-fetch cursor forward. It is only
// called after a transaction's processing completed, so a crash mid-cycle
// re-fetches from the last safely advanced point.
func (s *Store) AdvanceLastTxFound(ctx context.Context, safeAddress, network string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (safe_address, network, last_tx_found_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (safe_address, network) DO UPDATE SET last_tx_found_at = EXCLUDED.last_tx_found_at
	`, safeAddress, network, t)
	if err != nil {
		return fmt.Errorf("failed to advance checkpoint: %w", err)
	}
	return nil
}

// WasNotified reports whether a notification record exists for the
// (transaction, monitor) pair.
func (s *Store) WasNotified(ctx context.Context, safeTxHash, monitorID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_records
			WHERE safe_tx_hash = $1 AND monitor_id = $2
		)
	`, safeTxHash, monitorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification record: %w", err)
	}
	return exists, nil
}

// MarkNotified writes the dedup record, insert-if-absent. Returns false when
// the record already existed, which keeps notification at-most-once per
// (transaction, monitor) even under concurrent dispatch attempts.
func (s *Store) MarkNotified(ctx context.Context, safeTxHash, monitorID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_records (safe_tx_hash, monitor_id)
		VALUES ($1, $2)
		ON CONFLICT (safe_tx_hash, monitor_id) DO NOTHING
	`, safeTxHash, monitorID)
	if err != nil {
		return false, fmt.Errorf("failed to record notification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
