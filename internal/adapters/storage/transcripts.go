package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/calls"
	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// Uploader is the narrow storage surface the archive writes through.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) (string, error)
}

// TranscriptArchive stores completed-call transcripts as JSON objects, one
// per call record.
type TranscriptArchive struct {
	uploader Uploader
	bucket   string
	log      *logger.Logger
}

func NewTranscriptArchive(uploader Uploader, bucket string, log *logger.Logger) *TranscriptArchive {
	return &TranscriptArchive{uploader: uploader, bucket: bucket, log: log}
}

// ArchiveTranscript uploads the transcript and returns the object key. An
// empty transcript is skipped without an error.
func (a *TranscriptArchive) ArchiveTranscript(ctx context.Context, callRecordID uuid.UUID, transcript []domain.TranscriptEntry) (string, error) {
	if len(transcript) == 0 {
		return "", nil
	}

	data, err := json.Marshal(transcript)
	if err != nil {
		return "", fmt.Errorf("marshal transcript for call %s: %w", callRecordID, err)
	}

	key := callRecordID.String() + ".json"
	if _, err := a.uploader.Upload(ctx, a.bucket, key, "application/json", bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("archive transcript for call %s: %w", callRecordID, err)
	}

	a.log.Info("call transcript archived", "call_record_id", callRecordID, "bucket", a.bucket, "object_key", key)
	return key, nil
}

var _ calls.TranscriptArchiver = (*TranscriptArchive)(nil)
var _ Uploader = (*Service)(nil)
