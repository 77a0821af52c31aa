package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// rowPayload is the JSON shape written to the audit log for every upsert.
type rowPayload struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	Amount       float64  `json:"amount"`
	Phone        *string  `json:"phone"`
	Message      *string  `json:"message"`
	Status       string   `json:"status"`
	Type         string   `json:"type"`
	Category     string   `json:"category"`
	Sender       *string  `json:"sender"`
	Recipient    *string  `json:"recipient"`
	Fee          *float64 `json:"fee"`
	Balance      *float64 `json:"balance"`
	AmountRange  string   `json:"amount_range"`
	TimeCategory string   `json:"time_category"`
	RiskLevel    string   `json:"risk_level"`
	Region       string   `json:"geographic_region"`
}

// UpsertTransactions writes the batch in a single transaction, replacing
// rows that share an id. Each write appends one audit event, INSERT for
// new rows and UPDATE for replacements. Per-record failures are collected
// and skipped; only transaction-level errors abort the batch.
func (s *Store) UpsertTransactions(ctx context.Context, recs []domain.ClassifiedRecord) (inserted, updated int, failures []domain.RecordError, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i, rec := range recs {
		id := rec.ID
		if id == "" {
			id = strings.ReplaceAll(uuid.New().String(), "-", "")
		}

		exists, err := rowExists(ctx, tx, id)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("checking transaction %s: %w", id, err)
		}

		if err := upsertRow(ctx, tx, id, rec); err != nil {
			s.log.Warn().Str("id", id).Err(err).Msg("transaction write failed")
			failures = append(failures, domain.RecordError{Index: i, ID: id, Err: err.Error(), Raw: rec.RawData})
			continue
		}

		action := "INSERT"
		if exists {
			action = "UPDATE"
			updated++
		} else {
			inserted++
		}
		if err := appendAudit(ctx, tx, action, id, rec); err != nil {
			return 0, 0, nil, fmt.Errorf("writing audit event for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, nil, fmt.Errorf("committing batch: %w", err)
	}
	return inserted, updated, failures, nil
}

func rowExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM transactions WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func upsertRow(ctx context.Context, tx *sql.Tx, id string, rec domain.ClassifiedRecord) error {
	if rec.Amount == nil {
		return fmt.Errorf("record %s has no amount", id)
	}
	if rec.Date == nil {
		return fmt.Errorf("record %s has no date", id)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO transactions (
			id, date, amount, phone, message, status, type, category,
			sender, recipient, fee, balance,
			amount_range, time_category, risk_level, geographic_region,
			raw_data, normalized_at, normalize_version,
			classified_at, classify_version, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rec.Date.Format(timeLayout), *rec.Amount, rec.Phone, rec.Message, rec.Status, rec.Type,
		string(rec.Category), rec.Sender, rec.Recipient, rec.Fee, rec.Balance,
		string(rec.AmountRange), string(rec.TimeCategory), string(rec.RiskLevel), rec.Region,
		rec.RawData, rec.NormalizedAt.Format(timeLayout), rec.NormalizeVersion,
		rec.ClassifiedAt.Format(timeLayout), rec.ClassifyVersion,
		time.Now().UTC().Format(timeLayout))
	return err
}

func appendAudit(ctx context.Context, tx *sql.Tx, action, id string, rec domain.ClassifiedRecord) error {
	payload := rowPayload{
		ID:           id,
		Phone:        rec.Phone,
		Message:      rec.Message,
		Status:       rec.Status,
		Type:         rec.Type,
		Category:     string(rec.Category),
		Sender:       rec.Sender,
		Recipient:    rec.Recipient,
		Fee:          rec.Fee,
		Balance:      rec.Balance,
		AmountRange:  string(rec.AmountRange),
		TimeCategory: string(rec.TimeCategory),
		RiskLevel:    string(rec.RiskLevel),
		Region:       rec.Region,
	}
	if rec.Amount != nil {
		payload.Amount = *rec.Amount
	}
	if rec.Date != nil {
		payload.Date = rec.Date.Format(timeLayout)
	}

	details, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling audit payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (action, table_name, record_id, details)
		VALUES (?, 'transactions', ?, ?)
	`, action, id, string(details))
	return err
}

// AuditEvents returns the audit trail for one record, oldest first.
func (s *Store) AuditEvents(ctx context.Context, recordID string) ([]domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, table_name, record_id, details, timestamp
		FROM audit_log WHERE record_id = ? ORDER BY id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		var ts string
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.TableName, &ev.RecordID, &ev.Details, &ts); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if t, err := time.Parse(timeLayout, ts); err == nil {
			ev.Timestamp = t
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}
	return events, nil
}

// CountTransactions returns the number of stored transactions.
func (s *Store) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}
