package commit

import (
	"context"
	"errors"
	"time"

	"scoreflow/internal/instruments"
	"scoreflow/internal/session"
)

// ErrDuplicateCommit is returned by a Tx when a catalogue record already
// references the origin session.
var ErrDuplicateCommit = errors.New("catalogue record already exists for session")

// Existing identifies a previously committed catalogue record.
type Existing struct {
	CatalogueRecordID string
	FileID            string
	Title             string
	PartsCommitted    int
}

// CatalogueRecord is the top-level published work.
type CatalogueRecord struct {
	OriginSessionID string
	Title           string
	Subtitle        string
	ComposerID      string
	ArrangerID      string
	PublisherID     string
	EnsembleType    string
	FileType        string
	Confidence      float64
	ApprovedBy      string
	ApprovedAt      time.Time
}

// File kinds.
const (
	FileKindOriginal = "original"
	FileKindPart     = "part"
)

// File is a stored PDF belonging to a catalogue record.
type File struct {
	CatalogueRecordID string
	Kind              string
	StorageKey        string
	FileName          string
	PageCount         int
}

// PartRecord is one instrument part of a catalogue record.
type PartRecord struct {
	CatalogueRecordID string
	FileID            string
	InstrumentID      string
	PartName          string
	Instrument        string
	Section           instruments.Section
	Transposition     instruments.Transposition
	Chair             string
	PageStart         int
	PageEnd           int
	Fingerprint       string
}

// Repository is the persistence collaborator.
type Repository interface {
	// FindCommitBySession returns nil, nil when no record references sessionID.
	FindCommitBySession(ctx context.Context, sessionID string) (*Existing, error)
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
	// WithTx runs fn in a single atomic transaction. Returning an error from
	// fn rolls everything back.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of writes available inside a commit transaction.
type Tx interface {
	FindOrCreatePerson(ctx context.Context, name string) (string, error)
	FindOrCreatePublisher(ctx context.Context, name string) (string, error)
	FindOrCreateInstrument(ctx context.Context, inst instruments.Instrument) (string, error)
	CreateCatalogueRecord(ctx context.Context, rec CatalogueRecord) (string, error)
	CreateFile(ctx context.Context, f File) (string, error)
	CreatePart(ctx context.Context, p PartRecord) (string, error)
	SaveSession(ctx context.Context, s *session.Session) error
}
