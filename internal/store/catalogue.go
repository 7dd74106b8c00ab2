package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scoreflow/internal/commit"
	"scoreflow/internal/instruments"
	"scoreflow/internal/session"
)

var _ commit.Repository = (*Store)(nil)

// FindCommitBySession returns the catalogue record published from sessionID,
// or nil when none exists.
func (s *Store) FindCommitBySession(ctx context.Context, sessionID string) (*commit.Existing, error) {
	return findCommitBySession(ensureContext(ctx), s.db, sessionID)
}

func findCommitBySession(ctx context.Context, q execer, sessionID string) (*commit.Existing, error) {
	var (
		existing commit.Existing
		fileID   sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT r.id, r.title,
                (SELECT f.id FROM catalogue_files f WHERE f.catalogue_record_id = r.id AND f.kind = ? ORDER BY f.rowid LIMIT 1),
                (SELECT COUNT(1) FROM catalogue_parts p WHERE p.catalogue_record_id = r.id)
         FROM catalogue_records r WHERE r.origin_session_id = ?`,
		commit.FileKindOriginal, sessionID,
	).Scan(&existing.CatalogueRecordID, &existing.Title, &fileID, &existing.PartsCommitted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find commit by session: %w", err)
	}
	existing.FileID = fileID.String
	return &existing, nil
}

// WithTx runs fn inside one SQLite transaction. Any error from fn rolls back
// every write it made.
func (s *Store) WithTx(ctx context.Context, fn func(commit.Tx) error) error {
	ctx = ensureContext(ctx)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&catalogueTx{store: s, tx: tx})
	})
}

type catalogueTx struct {
	store *Store
	tx    *sql.Tx
}

func (t *catalogueTx) FindOrCreatePerson(ctx context.Context, name string) (string, error) {
	return t.findOrCreateNamed(ctx, "people", name)
}

func (t *catalogueTx) FindOrCreatePublisher(ctx context.Context, name string) (string, error) {
	return t.findOrCreateNamed(ctx, "publishers", name)
}

// findOrCreateNamed matches case-insensitively on name. table is one of the
// fixed identifiers above, never caller input.
func (t *catalogueTx) findOrCreateNamed(ctx context.Context, table, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s: name is required", table)
	}
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find %s: %w", table, err)
	}
	id = uuid.NewString()
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO `+table+` (id, name) VALUES (?, ?)`, id, name); err != nil {
		return "", fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

func (t *catalogueTx) FindOrCreateInstrument(ctx context.Context, inst instruments.Instrument) (string, error) {
	name := strings.TrimSpace(inst.Name)
	if name == "" {
		return "", errors.New("instrument name is required")
	}
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM instruments WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find instrument: %w", err)
	}
	section, transposition := inst.Section, inst.Transposition
	if section == "" {
		section = instruments.SectionOther
	}
	if transposition == "" {
		transposition = instruments.TranspositionC
	}
	id = uuid.NewString()
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO instruments (id, name, section, transposition) VALUES (?, ?, ?, ?)`,
		id, name, string(section), string(transposition),
	); err != nil {
		return "", fmt.Errorf("insert instrument: %w", err)
	}
	return id, nil
}

func (t *catalogueTx) CreateCatalogueRecord(ctx context.Context, rec commit.CatalogueRecord) (string, error) {
	id := uuid.NewString()
	approvedAt := rec.ApprovedAt
	if approvedAt.IsZero() {
		approvedAt = t.store.now()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO catalogue_records (
            id, origin_session_id, title, subtitle, composer_id, arranger_id, publisher_id,
            ensemble_type, file_type, confidence, approved_by, approved_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.OriginSessionID, rec.Title, nullableString(rec.Subtitle),
		nullableString(rec.ComposerID), nullableString(rec.ArrangerID), nullableString(rec.PublisherID),
		nullableString(rec.EnsembleType), nullableString(rec.FileType), rec.Confidence,
		rec.ApprovedBy, formatTime(approvedAt), formatTime(t.store.now()),
	)
	if isUniqueViolation(err, "catalogue_records.origin_session_id") {
		return "", fmt.Errorf("%w: %s", commit.ErrDuplicateCommit, rec.OriginSessionID)
	}
	if err != nil {
		return "", fmt.Errorf("insert catalogue record: %w", err)
	}
	return id, nil
}

func (t *catalogueTx) CreateFile(ctx context.Context, f commit.File) (string, error) {
	id := uuid.NewString()
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO catalogue_files (id, catalogue_record_id, kind, storage_key, file_name, page_count)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, f.CatalogueRecordID, f.Kind, f.StorageKey, f.FileName, f.PageCount,
	); err != nil {
		return "", fmt.Errorf("insert catalogue file: %w", err)
	}
	return id, nil
}

// CreatePart inserts a part. A part whose fingerprint already exists is not
// duplicated; the existing part's id is returned instead.
func (t *catalogueTx) CreatePart(ctx context.Context, p commit.PartRecord) (string, error) {
	id := uuid.NewString()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO catalogue_parts (
            id, catalogue_record_id, file_id, instrument_id, part_name, instrument, section,
            transposition, chair, page_start, page_end, fingerprint
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(fingerprint) DO NOTHING`,
		id, p.CatalogueRecordID, p.FileID, p.InstrumentID, p.PartName, p.Instrument,
		string(p.Section), string(p.Transposition), nullableString(p.Chair),
		p.PageStart, p.PageEnd, p.Fingerprint,
	)
	if err != nil {
		return "", fmt.Errorf("insert catalogue part: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 1 {
		return id, nil
	}
	if err := t.tx.QueryRowContext(ctx, `SELECT id FROM catalogue_parts WHERE fingerprint = ?`, p.Fingerprint).Scan(&id); err != nil {
		return "", fmt.Errorf("find catalogue part: %w", err)
	}
	return id, nil
}

func (t *catalogueTx) SaveSession(ctx context.Context, sess *session.Session) error {
	return t.store.saveSession(ctx, t.tx, sess)
}

// CatalogueEntry summarizes one published record.
type CatalogueEntry struct {
	ID              string    `json:"id"`
	OriginSessionID string    `json:"originSessionId"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle,omitempty"`
	Composer        string    `json:"composer,omitempty"`
	Arranger        string    `json:"arranger,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	Parts           int       `json:"parts"`
	ApprovedBy      string    `json:"approvedBy"`
	ApprovedAt      time.Time `json:"approvedAt"`
}

// ListCatalogue returns published records, newest first. A limit of zero
// returns everything.
func (s *Store) ListCatalogue(ctx context.Context, limit int) ([]CatalogueEntry, error) {
	query := `SELECT r.id, r.origin_session_id, r.title, r.subtitle, c.name, a.name, pub.name,
                (SELECT COUNT(1) FROM catalogue_parts p WHERE p.catalogue_record_id = r.id),
                r.approved_by, r.approved_at
         FROM catalogue_records r
         LEFT JOIN people c ON c.id = r.composer_id
         LEFT JOIN people a ON a.id = r.arranger_id
         LEFT JOIN publishers pub ON pub.id = r.publisher_id
         ORDER BY r.approved_at DESC, r.id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list catalogue: %w", err)
	}
	defer rows.Close()

	var out []CatalogueEntry
	for rows.Next() {
		var (
			entry                                   CatalogueEntry
			subtitle, composer, arranger, publisher sql.NullString
			approvedAt                              string
		)
		if err := rows.Scan(&entry.ID, &entry.OriginSessionID, &entry.Title, &subtitle,
			&composer, &arranger, &publisher, &entry.Parts, &entry.ApprovedBy, &approvedAt); err != nil {
			return nil, fmt.Errorf("scan catalogue entry: %w", err)
		}
		entry.Subtitle = subtitle.String
		entry.Composer = composer.String
		entry.Arranger = arranger.String
		entry.Publisher = publisher.String
		entry.ApprovedAt, _ = parseTimeString(approvedAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// CatalogueParts lists the parts of one record in page order.
func (s *Store) CatalogueParts(ctx context.Context, recordID string) ([]commit.PartRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT catalogue_record_id, file_id, instrument_id, part_name, instrument, section,
                transposition, chair, page_start, page_end, fingerprint
         FROM catalogue_parts WHERE catalogue_record_id = ?
         ORDER BY page_start, part_name`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list catalogue parts: %w", err)
	}
	defer rows.Close()

	var out []commit.PartRecord
	for rows.Next() {
		var (
			p                      commit.PartRecord
			section, transposition string
			chair                  sql.NullString
		)
		if err := rows.Scan(&p.CatalogueRecordID, &p.FileID, &p.InstrumentID, &p.PartName, &p.Instrument,
			&section, &transposition, &chair, &p.PageStart, &p.PageEnd, &p.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan catalogue part: %w", err)
		}
		p.Section = instruments.Section(section)
		p.Transposition = instruments.Transposition(transposition)
		p.Chair = chair.String
		out = append(out, p)
	}
	return out, rows.Err()
}
