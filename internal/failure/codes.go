package failure

import "strings"

// Stage identifies the pipeline stage where a failure occurred.
type Stage string

const (
	StageUpload             Stage = "UPLOAD"
	StageStorage            Stage = "STORAGE"
	StageRender             Stage = "RENDER"
	StageOCR                Stage = "OCR"
	StageMetadataExtraction Stage = "METADATA_EXTRACTION"
	StageBoundaryDetection  Stage = "BOUNDARY_DETECTION"
	StageSplitting          Stage = "SPLITTING"
	StageSecondPass         Stage = "SECOND_PASS"
	StageCommit             Stage = "COMMIT"
	StageQueue              Stage = "QUEUE"
)

// Code is a canonical, machine-stable error code.
type Code string

const (
	// Upload
	CodeUploadInvalidFile  Code = "UPLOAD_INVALID_FILE"
	CodeUploadEncryptedPDF Code = "UPLOAD_ENCRYPTED_PDF"
	CodeUploadCorruptFile  Code = "UPLOAD_CORRUPT_FILE"
	CodeUploadFileTooLarge Code = "UPLOAD_FILE_TOO_LARGE"

	// Storage
	CodeStorageError       Code = "STORAGE_ERROR"
	CodeStorageReadFailed  Code = "STORAGE_READ_FAILED"
	CodeStorageWriteFailed Code = "STORAGE_WRITE_FAILED"

	// Render
	CodeRenderFailed      Code = "RENDER_FAILED"
	CodeRenderPageMissing Code = "RENDER_PAGE_MISSING"

	// OCR
	CodeOCRFailed  Code = "OCR_FAILED"
	CodeOCRNoText  Code = "OCR_NO_TEXT"
	CodeOCRTimeout Code = "OCR_TIMEOUT"

	// Recognition model
	CodeModelTimeout             Code = "MODEL_TIMEOUT"
	CodeModelRateLimited         Code = "MODEL_RATE_LIMITED"
	CodeModelServerError         Code = "MODEL_SERVER_ERROR"
	CodeModelEndpointUnreachable Code = "MODEL_ENDPOINT_UNREACHABLE"
	CodeModelAuthFailed          Code = "MODEL_AUTH_FAILED"
	CodeModelSchemaInvalid       Code = "MODEL_SCHEMA_INVALID"

	// Boundary detection
	CodeBoundaryDetectionFailed Code = "BOUNDARY_DETECTION_FAILED"
	CodeBoundaryLowConfidence   Code = "BOUNDARY_LOW_CONFIDENCE"

	// Splitting
	CodeSplitFailed       Code = "SPLIT_FAILED"
	CodeSplitInvalidRange Code = "SPLIT_INVALID_RANGE"

	// Second pass
	CodeSecondPassFailed Code = "SECOND_PASS_FAILED"

	// Commit
	CodeCommitTxFailed    Code = "COMMIT_TX_FAILED"
	CodeCommitDuplicate   Code = "COMMIT_DUPLICATE"
	CodeCommitNotEligible Code = "COMMIT_NOT_ELIGIBLE"

	// Queue
	CodeQueueJobFailed      Code = "QUEUE_JOB_FAILED"
	CodeQueueUnknownJobType Code = "QUEUE_UNKNOWN_JOB_TYPE"

	CodeInternal Code = "INTERNAL_ERROR"
)

var stageCodes = map[Stage][]Code{
	StageUpload:             {CodeUploadInvalidFile, CodeUploadEncryptedPDF, CodeUploadCorruptFile, CodeUploadFileTooLarge},
	StageStorage:            {CodeStorageError, CodeStorageReadFailed, CodeStorageWriteFailed},
	StageRender:             {CodeRenderFailed, CodeRenderPageMissing},
	StageOCR:                {CodeOCRFailed, CodeOCRNoText, CodeOCRTimeout},
	StageMetadataExtraction: {CodeModelTimeout, CodeModelRateLimited, CodeModelServerError, CodeModelEndpointUnreachable, CodeModelAuthFailed, CodeModelSchemaInvalid},
	StageBoundaryDetection:  {CodeBoundaryDetectionFailed, CodeBoundaryLowConfidence},
	StageSplitting:          {CodeSplitFailed, CodeSplitInvalidRange},
	StageSecondPass:         {CodeSecondPassFailed},
	StageCommit:             {CodeCommitTxFailed, CodeCommitDuplicate, CodeCommitNotEligible},
	StageQueue:              {CodeQueueJobFailed, CodeQueueUnknownJobType},
}

var retriableCodes = map[Code]struct{}{
	CodeStorageError:             {},
	CodeStorageReadFailed:        {},
	CodeStorageWriteFailed:       {},
	CodeModelTimeout:             {},
	CodeModelRateLimited:         {},
	CodeModelServerError:         {},
	CodeModelEndpointUnreachable: {},
	CodeCommitTxFailed:           {},
	CodeQueueJobFailed:           {},
}

var terminalCodes = map[Code]struct{}{
	CodeUploadInvalidFile:   {},
	CodeUploadEncryptedPDF:  {},
	CodeUploadCorruptFile:   {},
	CodeUploadFileTooLarge:  {},
	CodeModelAuthFailed:     {},
	CodeCommitDuplicate:     {},
	CodeQueueUnknownJobType: {},
}

// stageDefaults is the fallback code when no message heuristic matches.
var stageDefaults = map[Stage]Code{
	StageStorage:   CodeStorageError,
	StageRender:    CodeRenderFailed,
	StageOCR:       CodeOCRFailed,
	StageSplitting: CodeSplitFailed,
	StageCommit:    CodeCommitTxFailed,
}

// IsRetriable reports whether a retry can plausibly succeed after code.
func IsRetriable(code Code) bool {
	_, ok := retriableCodes[code]
	return ok
}

// IsTerminal reports whether code must never be retried automatically.
// Codes that are neither retriable nor terminal should be treated as
// non-retriable by callers.
func IsTerminal(code Code) bool {
	_, ok := terminalCodes[code]
	return ok
}

// StageDefault returns the fallback code for stage, or INTERNAL_ERROR.
func StageDefault(stage Stage) Code {
	if code, ok := stageDefaults[stage]; ok {
		return code
	}
	return CodeInternal
}

// CodesForStage lists the canonical codes owned by stage.
func CodesForStage(stage Stage) []Code {
	codes := stageCodes[stage]
	cp := make([]Code, len(codes))
	copy(cp, codes)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := stageCodes[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// ParseCode converts a string into a known Code.
func ParseCode(value string) (Code, bool) {
	normalized := Code(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == CodeInternal {
		return normalized, true
	}
	for _, codes := range stageCodes {
		for _, code := range codes {
			if code == normalized {
				return code, true
			}
		}
	}
	return "", false
}
