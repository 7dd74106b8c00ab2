package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"scoreflow/internal/failure"
	"scoreflow/internal/metadata"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
)

const sessionColumns = "id, file_name, storage_key, workflow_status, ocr_status, second_pass_status, commit_status, extracted_json, segmentation_confidence, text_coverage, page_count, duplicate_detected, metadata_conflicts_json, parts_json, requires_human_review, review_reasons_json, temp_keys_json, last_failure_code, last_failure_stage, last_failure_message, last_failure_retriable, last_failure_at, approved_by, approved_at, created_at, updated_at, last_heartbeat"

type rowScanner interface{ Scan(dest ...any) error }

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanSession(scanner rowScanner) (*session.Session, error) {
	var (
		s                                              session.Session
		workflow, ocr, secondPass, commitStatus        string
		extractedRaw, conflictsRaw, partsRaw           sql.NullString
		reasonsRaw, tempKeysRaw                        sql.NullString
		segConfidence                                  sql.NullFloat64
		duplicate, review                              int
		failCode, failStage, failMessage, failAt       sql.NullString
		failRetriable                                  sql.NullInt64
		approvedBy, approvedAt, createdRaw, updatedRaw sql.NullString
		heartbeatRaw                                   sql.NullString
	)
	if err := scanner.Scan(
		&s.ID, &s.FileName, &s.StorageKey,
		&workflow, &ocr, &secondPass, &commitStatus,
		&extractedRaw, &segConfidence, &s.TextCoverage, &s.PageCount, &duplicate,
		&conflictsRaw, &partsRaw, &review, &reasonsRaw, &tempKeysRaw,
		&failCode, &failStage, &failMessage, &failRetriable, &failAt,
		&approvedBy, &approvedAt, &createdRaw, &updatedRaw, &heartbeatRaw,
	); err != nil {
		return nil, err
	}

	if extractedRaw.Valid {
		s.Extracted = &metadata.Extracted{}
		if err := decodeJSON(extractedRaw, s.Extracted, "extracted_json"); err != nil {
			return nil, err
		}
	}
	if segConfidence.Valid {
		value := segConfidence.Float64
		s.SegmentationConfidence = &value
	}
	s.DuplicateDetected = duplicate != 0
	s.RequiresHumanReview = review != 0
	for _, field := range []struct {
		raw    sql.NullString
		target any
		column string
	}{
		{conflictsRaw, &s.MetadataConflicts, "metadata_conflicts_json"},
		{partsRaw, &s.Parts, "parts_json"},
		{reasonsRaw, &s.ReviewReasons, "review_reasons_json"},
		{tempKeysRaw, &s.TempKeys, "temp_keys_json"},
	} {
		if err := decodeJSON(field.raw, field.target, field.column); err != nil {
			return nil, err
		}
	}

	if failCode.Valid {
		var at time.Time
		if parsed := parseNullTime(failAt); parsed != nil {
			at = *parsed
		}
		f := failure.Restore(failure.Code(failCode.String), failure.Stage(failStage.String),
			failMessage.String, failRetriable.Int64 != 0, at)
		s.LastFailure = &f
	}

	s.ApprovedBy = approvedBy.String
	s.ApprovedAt = parseNullTime(approvedAt)
	if created := parseNullTime(createdRaw); created != nil {
		s.CreatedAt = *created
	}
	if updated := parseNullTime(updatedRaw); updated != nil {
		s.UpdatedAt = *updated
	}
	s.LastHeartbeat = parseNullTime(heartbeatRaw)

	return session.Restore(&s, status.Workflow(workflow), status.SubStatus(ocr),
		status.SubStatus(secondPass), status.SubStatus(commitStatus)), nil
}

func sessionArgs(s *session.Session) ([]any, error) {
	extracted, err := encodeJSON(s.Extracted, s.Extracted == nil)
	if err != nil {
		return nil, fmt.Errorf("encode extracted metadata: %w", err)
	}
	conflicts, err := encodeJSON(s.MetadataConflicts, len(s.MetadataConflicts) == 0)
	if err != nil {
		return nil, fmt.Errorf("encode metadata conflicts: %w", err)
	}
	parts, err := encodeJSON(s.Parts, len(s.Parts) == 0)
	if err != nil {
		return nil, fmt.Errorf("encode parts: %w", err)
	}
	reasons, err := encodeJSON(s.ReviewReasons, len(s.ReviewReasons) == 0)
	if err != nil {
		return nil, fmt.Errorf("encode review reasons: %w", err)
	}
	tempKeys, err := encodeJSON(s.TempKeys, len(s.TempKeys) == 0)
	if err != nil {
		return nil, fmt.Errorf("encode temp keys: %w", err)
	}

	var failCode, failStage, failMessage, failRetriable, failAt any
	if f := s.LastFailure; f != nil {
		failCode = string(f.Code())
		failStage = string(f.Stage())
		failMessage = f.Message()
		failRetriable = boolToInt(f.Retriable())
		failAt = formatTime(f.Timestamp())
	}

	return []any{
		s.FileName, s.StorageKey,
		string(s.Workflow()), string(s.OCR()), string(s.SecondPass()), string(s.CommitStatus()),
		extracted, nullableFloat(s.SegmentationConfidence), s.TextCoverage, s.PageCount,
		boolToInt(s.DuplicateDetected), conflicts, parts, boolToInt(s.RequiresHumanReview),
		reasons, tempKeys,
		failCode, failStage, failMessage, failRetriable, failAt,
		nullableString(s.ApprovedBy), nullableTime(s.ApprovedAt),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt), nullableTime(s.LastHeartbeat),
		s.ID,
	}, nil
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}
	ctx = ensureContext(ctx)
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	args, err := sessionArgs(sess)
	if err != nil {
		return err
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO sessions (
            file_name, storage_key, workflow_status, ocr_status, second_pass_status, commit_status,
            extracted_json, segmentation_confidence, text_coverage, page_count, duplicate_detected,
            metadata_conflicts_json, parts_json, requires_human_review, review_reasons_json, temp_keys_json,
            last_failure_code, last_failure_stage, last_failure_message, last_failure_retriable, last_failure_at,
            approved_by, approved_at, created_at, updated_at, last_heartbeat, id
        ) VALUES (`+makePlaceholders(len(args))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return s.recordFailure(ctx, s.db, sess)
}

// GetSession loads a session by id. Unknown ids return an error matching
// session.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return getSession(ensureContext(ctx), s.db, id)
}

func getSession(ctx context.Context, q execer, id string) (*session.Session, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// SaveSession persists every mutable field of sess and appends its latest
// failure to the history when it is new.
func (s *Store) SaveSession(ctx context.Context, sess *session.Session) error {
	ctx = ensureContext(ctx)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.saveSession(ctx, tx, sess)
	})
}

func (s *Store) saveSession(ctx context.Context, q execer, sess *session.Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	sess.UpdatedAt = s.now()
	args, err := sessionArgs(sess)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		`UPDATE sessions SET
            file_name = ?, storage_key = ?, workflow_status = ?, ocr_status = ?, second_pass_status = ?, commit_status = ?,
            extracted_json = ?, segmentation_confidence = ?, text_coverage = ?, page_count = ?, duplicate_detected = ?,
            metadata_conflicts_json = ?, parts_json = ?, requires_human_review = ?, review_reasons_json = ?, temp_keys_json = ?,
            last_failure_code = ?, last_failure_stage = ?, last_failure_message = ?, last_failure_retriable = ?, last_failure_at = ?,
            approved_by = ?, approved_at = ?, created_at = ?, updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, sess.ID)
	}
	return s.recordFailure(ctx, q, sess)
}

func (s *Store) recordFailure(ctx context.Context, q execer, sess *session.Session) error {
	f := sess.LastFailure
	if f == nil {
		return nil
	}
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO session_failures (session_id, code, stage, message, retriable, occurred_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, string(f.Code()), string(f.Stage()), f.Message(), boolToInt(f.Retriable()), formatTime(f.Timestamp()),
	); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// ListFilter narrows ListSessions. Zero values mean no restriction.
type ListFilter struct {
	Workflows    []status.Workflow
	NeedsReview  bool
	Limit        int
	UpdatedAfter time.Time
	OldestFirst  bool
}

// ListSessions returns sessions newest first unless filter.OldestFirst is set.
func (s *Store) ListSessions(ctx context.Context, filter ListFilter) ([]*session.Session, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if len(filter.Workflows) > 0 {
		clauses = append(clauses, "workflow_status IN ("+makePlaceholders(len(filter.Workflows))+")")
		for _, wf := range filter.Workflows {
			args = append(args, string(wf))
		}
	}
	if filter.NeedsReview {
		clauses = append(clauses, "requires_human_review = 1")
	}
	if !filter.UpdatedAfter.IsZero() {
		clauses = append(clauses, "updated_at > ?")
		args = append(args, formatTime(filter.UpdatedAfter))
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.OldestFirst {
		query += " ORDER BY created_at, id"
	} else {
		query += " ORDER BY created_at DESC, id"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Stats counts sessions per workflow status.
func (s *Store) Stats(ctx context.Context) (map[status.Workflow]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT workflow_status, COUNT(1) FROM sessions GROUP BY workflow_status`)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[status.Workflow]int)
	for rows.Next() {
		var (
			wf    string
			count int
		)
		if err := rows.Scan(&wf, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status.Workflow(wf)] = count
	}
	return stats, rows.Err()
}

// FailureHistory returns every recorded failure for a session, oldest first.
func (s *Store) FailureHistory(ctx context.Context, sessionID string) ([]failure.SessionFailure, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT code, stage, message, retriable, occurred_at FROM session_failures
         WHERE session_id = ? ORDER BY occurred_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failure history: %w", err)
	}
	defer rows.Close()

	var out []failure.SessionFailure
	for rows.Next() {
		var (
			code, stage, message, occurred string
			retriable                      int
		)
		if err := rows.Scan(&code, &stage, &message, &retriable, &occurred); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		at, _ := parseTimeString(occurred)
		out = append(out, failure.Restore(failure.Code(code), failure.Stage(stage), message, retriable != 0, at))
	}
	return out, rows.Err()
}

// UpdateHeartbeat stamps the last heartbeat of an in-flight session.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE sessions SET last_heartbeat = ?, updated_at = ? WHERE id = ?`, now, now, id)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return nil
}

// StaleProcessing lists PROCESSING sessions whose heartbeat is older than
// cutoff or missing.
func (s *Store) StaleProcessing(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id FROM sessions
         WHERE workflow_status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)
         ORDER BY id`,
		string(status.WorkflowProcessing), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("stale sessions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteSession removes a session and its failure history. Catalogue records
// that reference it are kept.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return nil
}
