package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"scoreflow/internal/failure"
	"scoreflow/internal/instruments"
	"scoreflow/internal/logging"
	"scoreflow/internal/metadata"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/storage"
)

// DefaultAutoApproverPrefix marks approvals made by the pipeline itself.
const DefaultAutoApproverPrefix = "system:"

// Result reports the outcome of a commit.
type Result struct {
	CatalogueRecordID string `json:"catalogueRecordId"`
	Title             string `json:"title"`
	FileID            string `json:"fileId"`
	SessionID         string `json:"sessionId"`
	PartsCommitted    int    `json:"partsCommitted"`
	WasIdempotent     bool   `json:"wasIdempotent"`
}

// Option configures a Service.
type Option func(*Service)

// WithAutoApproverPrefix overrides the prefix that identifies autonomous
// callers.
func WithAutoApproverPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			s.autoPrefix = prefix
		}
	}
}

// WithClock overrides the approval timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service publishes sessions into the catalogue.
type Service struct {
	repo       Repository
	blobs      storage.Deleter
	normalizer *metadata.Normalizer
	logger     *slog.Logger
	autoPrefix string
	now        func() time.Time
}

// NewService wires a commit service. blobs may be nil when there is nothing
// to clean up.
func NewService(repo Repository, blobs storage.Deleter, normalizer *metadata.Normalizer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		blobs:      blobs,
		normalizer: normalizer,
		logger:     logging.NewComponentLogger(logger, "commit"),
		autoPrefix: DefaultAutoApproverPrefix,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAutonomous reports whether approvedBy identifies the pipeline itself.
func (s *Service) IsAutonomous(approvedBy string) bool {
	return strings.HasPrefix(strings.TrimSpace(approvedBy), s.autoPrefix)
}

// AutoApprover builds an approvedBy value for autonomous commits.
func (s *Service) AutoApprover(actor string) string {
	return s.autoPrefix + firstNonBlank(actor, "pipeline")
}

// Commit publishes sessionID. Calling it again after success returns the
// original identifiers with WasIdempotent set and writes nothing.
func (s *Service) Commit(ctx context.Context, sessionID string, overrides Overrides, approvedBy string) (Result, error) {
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldSessionID, sessionID))

	if existing, err := s.repo.FindCommitBySession(ctx, sessionID); err != nil {
		return Result{}, failure.Wrap(failure.CodeCommitTxFailed, failure.StageCommit, "look up existing commit", err)
	} else if existing != nil {
		logger.Info("commit already published",
			logging.String(logging.FieldEventType, "commit_idempotent"),
			logging.String("catalogue_record_id", existing.CatalogueRecordID),
		)
		return idempotentResult(sessionID, existing), nil
	}

	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	autonomous := s.IsAutonomous(approvedBy)
	if err := checkEligibility(sess, autonomous); err != nil {
		logger.Info("commit rejected",
			logging.Args(logging.DecisionAttrs("commit_eligibility", "rejected", err.Error())...)...,
		)
		return Result{}, err
	}

	normalized := s.normalizer.NormalizeExtracted(sess.ID, sess.Extracted, overrides.Parts)
	fields := resolveFields(overrides, normalized, sess.FileName)
	approvedAt := s.now()

	var result Result
	txErr := s.repo.WithTx(ctx, func(tx Tx) error {
		var txErr error
		result, txErr = s.publish(ctx, tx, sess, overrides, normalized, fields, strings.TrimSpace(approvedBy), approvedAt)
		return txErr
	})
	if txErr != nil {
		if errors.Is(txErr, ErrDuplicateCommit) {
			existing, err := s.repo.FindCommitBySession(ctx, sessionID)
			if err == nil && existing != nil {
				logger.Info("concurrent commit won the race",
					logging.String(logging.FieldEventType, "commit_idempotent"),
					logging.String("catalogue_record_id", existing.CatalogueRecordID),
				)
				return idempotentResult(sessionID, existing), nil
			}
			return Result{}, failure.Wrap(failure.CodeCommitDuplicate, failure.StageCommit, "duplicate commit for session "+sessionID, txErr)
		}
		var te *status.TransitionError
		if errors.As(txErr, &te) {
			return Result{}, txErr
		}
		return Result{}, failure.Wrap(failure.CodeCommitTxFailed, failure.StageCommit, "commit transaction", txErr)
	}

	logger.Info("session committed",
		logging.String(logging.FieldEventType, "commit_complete"),
		logging.String("catalogue_record_id", result.CatalogueRecordID),
		logging.Int("parts_committed", result.PartsCommitted),
		logging.Bool("autonomous", autonomous),
	)

	s.cleanupTempKeys(ctx, logger, sess)
	return result, nil
}

func idempotentResult(sessionID string, existing *Existing) Result {
	return Result{
		CatalogueRecordID: existing.CatalogueRecordID,
		Title:             existing.Title,
		FileID:            existing.FileID,
		SessionID:         sessionID,
		PartsCommitted:    existing.PartsCommitted,
		WasIdempotent:     true,
	}
}

func (s *Service) publish(
	ctx context.Context,
	tx Tx,
	sess *session.Session,
	overrides Overrides,
	normalized metadata.Normalized,
	fields resolvedFields,
	approvedBy string,
	approvedAt time.Time,
) (Result, error) {
	composerID, err := s.findPerson(ctx, tx, fields.Composer)
	if err != nil {
		return Result{}, fmt.Errorf("composer: %w", err)
	}
	arrangerID, err := s.findPerson(ctx, tx, fields.Arranger)
	if err != nil {
		return Result{}, fmt.Errorf("arranger: %w", err)
	}
	var publisherID string
	if fields.Publisher != "" {
		if publisherID, err = tx.FindOrCreatePublisher(ctx, metadata.NormalizePublisher(fields.Publisher)); err != nil {
			return Result{}, fmt.Errorf("publisher: %w", err)
		}
	}

	rec := CatalogueRecord{
		OriginSessionID: sess.ID,
		Title:           fields.Title,
		Subtitle:        fields.Subtitle,
		ComposerID:      composerID,
		ArrangerID:      arrangerID,
		PublisherID:     publisherID,
		EnsembleType:    fields.EnsembleType,
		Confidence:      sess.MetadataConfidence(),
		ApprovedBy:      approvedBy,
		ApprovedAt:      approvedAt,
	}
	if sess.Extracted != nil {
		rec.FileType = sess.Extracted.FileType
	}
	recordID, err := tx.CreateCatalogueRecord(ctx, rec)
	if err != nil {
		return Result{}, err
	}

	fileID, err := tx.CreateFile(ctx, File{
		CatalogueRecordID: recordID,
		Kind:              FileKindOriginal,
		StorageKey:        sess.StorageKey,
		FileName:          sess.FileName,
		PageCount:         sess.PageCount,
	})
	if err != nil {
		return Result{}, fmt.Errorf("original file: %w", err)
	}

	parts, dropped := uniqueParts(s.resolveParts(sess, overrides, normalized))
	if dropped > 0 {
		logging.WithContext(ctx, s.logger).Warn("duplicate parts collapsed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Int("dropped", dropped),
		)
	}
	for idx, part := range parts {
		partFileID := fileID
		if part.storageKey != "" {
			partFileID, err = tx.CreateFile(ctx, File{
				CatalogueRecordID: recordID,
				Kind:              FileKindPart,
				StorageKey:        part.storageKey,
				FileName:          part.Part.RawPartName,
				PageCount:         part.PageEnd - part.PageStart + 1,
			})
			if err != nil {
				return Result{}, fmt.Errorf("part %d file: %w", idx+1, err)
			}
		}
		instrumentID, err := tx.FindOrCreateInstrument(ctx, instruments.Instrument{
			Name:          part.Instrument,
			Section:       part.Section,
			Transposition: part.Transposition,
		})
		if err != nil {
			return Result{}, fmt.Errorf("part %d instrument: %w", idx+1, err)
		}
		if _, err := tx.CreatePart(ctx, PartRecord{
			CatalogueRecordID: recordID,
			FileID:            partFileID,
			InstrumentID:      instrumentID,
			PartName:          firstNonBlank(part.RawPartName, part.Instrument),
			Instrument:        part.Instrument,
			Section:           part.Section,
			Transposition:     part.Transposition,
			Chair:             part.Chair,
			PageStart:         part.PageStart,
			PageEnd:           part.PageEnd,
			Fingerprint:       part.Fingerprint,
		}); err != nil {
			return Result{}, fmt.Errorf("part %d: %w", idx+1, err)
		}
	}

	if err := sess.AdvanceWorkflow(status.WorkflowApproved); err != nil {
		return Result{}, err
	}
	if err := sess.AdvanceCommit(status.SubComplete); err != nil {
		return Result{}, err
	}
	sess.ApprovedBy = approvedBy
	sess.ApprovedAt = &approvedAt
	sess.UpdatedAt = approvedAt
	if err := tx.SaveSession(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("mark session approved: %w", err)
	}

	return Result{
		CatalogueRecordID: recordID,
		Title:             fields.Title,
		FileID:            fileID,
		SessionID:         sess.ID,
		PartsCommitted:    len(parts),
	}, nil
}

func (s *Service) findPerson(ctx context.Context, tx Tx, name string) (string, error) {
	name = metadata.NormalizePersonName(name)
	if name == "" {
		return "", nil
	}
	return tx.FindOrCreatePerson(ctx, name)
}

// uniqueParts keeps the first part for each fingerprint. The catalogue keys
// parts by fingerprint, so the count reported for a commit has to match what
// a later idempotent lookup will find.
func uniqueParts(parts []resolvedPart) ([]resolvedPart, int) {
	seen := make(map[string]struct{}, len(parts))
	out := parts[:0:0]
	for _, part := range parts {
		if _, dup := seen[part.Fingerprint]; dup {
			continue
		}
		seen[part.Fingerprint] = struct{}{}
		out = append(out, part)
	}
	return out, len(parts) - len(out)
}

type resolvedPart struct {
	metadata.Part
	storageKey string
}

// resolveParts prefers pre-split parts, then multi-part metadata, then a
// single part inferred from overrides or metadata.
func (s *Service) resolveParts(sess *session.Session, overrides Overrides, normalized metadata.Normalized) []resolvedPart {
	if len(sess.Parts) > 0 {
		out := make([]resolvedPart, 0, len(sess.Parts))
		for _, sp := range sess.Parts {
			part := s.normalizer.NormalizePart(sess.ID, metadata.CuttingInstruction{
				PartName:   sp.PartName,
				Instrument: sp.Instrument,
				Chair:      metadata.FlexString(sp.Chair),
				PageStart:  sp.PageStart,
				PageEnd:    sp.PageEnd,
			})
			out = append(out, resolvedPart{Part: part, storageKey: sp.StorageKey})
		}
		return out
	}
	if len(normalized.Parts) > 0 {
		out := make([]resolvedPart, 0, len(normalized.Parts))
		for _, part := range normalized.Parts {
			out = append(out, resolvedPart{Part: part})
		}
		return out
	}
	pageEnd := max(sess.PageCount, 1)
	label := inferredInstrumentLabel(overrides, sess.Extracted)
	part := s.normalizer.NormalizePart(sess.ID, metadata.CuttingInstruction{
		PartName:   label,
		Instrument: label,
		PageStart:  1,
		PageEnd:    pageEnd,
	})
	return []resolvedPart{{Part: part}}
}

func (s *Service) cleanupTempKeys(ctx context.Context, logger *slog.Logger, sess *session.Session) {
	if s.blobs == nil || len(sess.TempKeys) == 0 {
		return
	}
	keep := []string{sess.StorageKey}
	for _, p := range sess.Parts {
		keep = append(keep, p.StorageKey)
	}
	for _, key := range sess.TempKeys {
		if slices.Contains(keep, key) {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			logging.WarnWithContext(logger, "temporary object cleanup failed", "commit_cleanup_failed",
				logging.String("storage_key", key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the object manually"),
				logging.String(logging.FieldImpact, "orphaned temporary file remains in storage"),
			)
		}
	}
}
