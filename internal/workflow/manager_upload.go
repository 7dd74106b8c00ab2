package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/pdfprobe"
	"scoreflow/internal/session"
	"scoreflow/internal/textutil"
)

// Upload validates the PDF at src, copies it into blob storage, and creates
// an UPLOADED session. Files the probe rejects never become sessions.
func (m *Manager) Upload(ctx context.Context, src string) (*session.Session, error) {
	if m.blobs == nil {
		return nil, errors.New("upload requires a blob store")
	}
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, failure.Wrap(failure.CodeUploadInvalidFile, failure.StageUpload, "no file given", nil)
	}

	probe, err := pdfprobe.Probe(src, pdfprobe.DefaultMaxBytes)
	if err != nil {
		m.logger.Warn("upload rejected",
			logging.String(logging.FieldEventType, "upload_rejected"),
			logging.String("file", filepath.Base(src)),
			logging.String(logging.FieldErrorCode, string(failure.Classify(err, failure.StageUpload))),
			logging.Error(err),
		)
		return nil, err
	}

	id := uuid.NewString()
	fileName := filepath.Base(src)
	key := fmt.Sprintf("uploads/%s/%s", id, textutil.SanitizeFileName(fileName))
	ctx, logger := m.sessionLogger(ctx, id)

	if _, err := m.blobs.PutFile(ctx, key, src); err != nil {
		return nil, err
	}

	sess := session.New(id, fileName, key, m.now())
	sess.TextCoverage = probe.TextCoverage
	sess.PageCount = probe.PageCount
	if err := m.store.CreateSession(ctx, sess); err != nil {
		if delErr := m.blobs.Delete(ctx, key); delErr != nil {
			logger.Warn("orphaned upload left in storage",
				logging.String("storage_key", key),
				logging.Error(delErr),
			)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	logger.Info("session uploaded",
		logging.String(logging.FieldEventType, "session_uploaded"),
		logging.String("file", fileName),
		logging.Int("page_count", probe.PageCount),
		logging.Float64("text_coverage", probe.TextCoverage),
	)
	m.setLastSession(id)
	return sess, nil
}

// detectDuplicate flags sess when its title and composer closely match a
// record already in the catalogue.
func (m *Manager) detectDuplicate(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Extracted == nil {
		return "", nil
	}
	candidate := textutil.NewFingerprint(sess.Extracted.Title, sess.Extracted.Composer)
	if candidate.TokenCount() == 0 {
		return "", nil
	}
	entries, err := m.store.ListCatalogue(ctx, 0)
	if err != nil {
		return "", err
	}
	threshold := m.cfg.Workflow.DuplicateThreshold
	for _, entry := range entries {
		if entry.OriginSessionID == sess.ID {
			continue
		}
		existing := textutil.NewFingerprint(entry.Title, entry.Composer)
		if textutil.CosineSimilarity(candidate, existing) >= threshold {
			sess.DuplicateDetected = true
			return entry.ID, nil
		}
	}
	sess.DuplicateDetected = false
	return "", nil
}
