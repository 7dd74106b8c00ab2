package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
)

// Extractor produces a recognition document for the PDF at pdfPath.
type Extractor func(ctx context.Context, pdfPath string) ([]byte, error)

// CommandExtractor runs an external recognizer as name args... pdfPath and
// reads the JSON document from its stdout.
func CommandExtractor(name string, args ...string) Extractor {
	return func(ctx context.Context, pdfPath string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, name, append(append([]string(nil), args...), pdfPath)...) //nolint:gosec
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return out, nil
	}
}

// Process runs extract for one pass inside this process while keeping the
// session's heartbeat fresh, then records the result. The initial pass
// claims the session first; OCR and second passes move their sub-status to
// IN_PROGRESS.
func (m *Manager) Process(ctx context.Context, id string, pass Pass, extract Extractor) (Extraction, error) {
	if extract == nil {
		return Extraction{}, errors.New("no extractor configured")
	}
	if m.blobs == nil {
		return Extraction{}, errors.New("processing requires a blob store")
	}
	ctx, logger := m.sessionLogger(ctx, id)

	sess, err := m.beginPass(ctx, id, pass)
	if err != nil {
		return Extraction{}, err
	}
	path, err := m.blobs.Path(sess.StorageKey)
	if err != nil {
		return Extraction{}, err
	}

	beatCtx, stopBeats := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.heartbeat.RunLoop(beatCtx, id)
	}()
	data, extractErr := extract(ctx, path)
	stopBeats()
	<-done

	if extractErr != nil {
		if errors.Is(extractErr, context.Canceled) {
			return Extraction{}, extractErr
		}
		if _, err := m.Fail(ctx, id, stageForPass(pass), extractErr); err != nil {
			logger.Warn("could not record extraction failure", logging.Error(err))
		}
		return Extraction{}, extractErr
	}
	return m.RecordExtraction(ctx, id, pass, data)
}

func (m *Manager) beginPass(ctx context.Context, id string, pass Pass) (*session.Session, error) {
	if pass == PassInitial {
		return m.start(ctx, id)
	}

	unlock := m.lockSession(id)
	defer unlock()
	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch pass {
	case PassOCR:
		err = sess.AdvanceOCR(status.SubInProgress)
	case PassSecond:
		err = sess.AdvanceSecondPass(status.SubInProgress)
	}
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func stageForPass(pass Pass) failure.Stage {
	switch pass {
	case PassOCR:
		return failure.StageOCR
	case PassSecond:
		return failure.StageSecondPass
	}
	return failure.StageMetadataExtraction
}
