package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ARedaUni/teloshousemeet/internal/db"
)

// RecordingStatus tracks where a recording is in the processing pipeline
type RecordingStatus string

const (
	RecordingStatusPending      RecordingStatus = "pending"
	RecordingStatusTranscribing RecordingStatus = "transcribing"
	RecordingStatusSummarizing  RecordingStatus = "summarizing"
	RecordingStatusMatching     RecordingStatus = "matching"
	RecordingStatusCompleted    RecordingStatus = "completed"
	RecordingStatusFailed       RecordingStatus = "failed"
)

// Recording represents one meeting recording moving through the pipeline
type Recording struct {
	ID                uuid.UUID       `json:"id"`
	DriveFileID       string          `json:"drive_file_id"`
	FileName          string          `json:"file_name"`
	Status            RecordingStatus `json:"status"`
	TranscriptID      *string         `json:"transcript_id,omitempty"`
	Transcript        *string         `json:"transcript,omitempty"`
	Summary           *string         `json:"summary,omitempty"`
	MatchedEventID    *string         `json:"matched_event_id,omitempty"`
	MatchedEventTitle *string         `json:"matched_event_title,omitempty"`
	MatchScore        *float64        `json:"match_score,omitempty"`
	MatchMethod       *string         `json:"match_method,omitempty"`
	ErrorMessage      *string         `json:"error,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RecordingMatch holds the outcome of matching a recording to a calendar event
type RecordingMatch struct {
	EventID    string
	EventTitle string
	Score      float64
	Method     string
}

// RecordingRepository handles recording pipeline persistence
type RecordingRepository struct {
	pool DBTX
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(pool DBTX) *RecordingRepository {
	return &RecordingRepository{pool: pool}
}

const recordingColumns = `id, drive_file_id, file_name, status, transcript_id,
	transcript, summary, matched_event_id, matched_event_title, match_score,
	match_method, error_message, created_at, updated_at`

func scanRecording(row pgx.Row) (*Recording, error) {
	var rec Recording
	err := row.Scan(
		&rec.ID,
		&rec.DriveFileID,
		&rec.FileName,
		&rec.Status,
		&rec.TranscriptID,
		&rec.Transcript,
		&rec.Summary,
		&rec.MatchedEventID,
		&rec.MatchedEventTitle,
		&rec.MatchScore,
		&rec.MatchMethod,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	return &rec, nil
}

// Create registers a new recording in the pending state. Re-registering the
// same Drive file returns the existing row unchanged.
func (r *RecordingRepository) Create(ctx context.Context, driveFileID, fileName string) (*Recording, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO recordings (drive_file_id, file_name, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (drive_file_id) DO UPDATE SET drive_file_id = EXCLUDED.drive_file_id
		RETURNING `+recordingColumns,
		driveFileID, fileName, RecordingStatusPending)

	return scanRecording(row)
}

// GetByID retrieves a recording by ID
func (r *RecordingRepository) GetByID(ctx context.Context, id uuid.UUID) (*Recording, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id)
	return scanRecording(row)
}

// GetByDriveFileID retrieves a recording by its Drive file ID
func (r *RecordingRepository) GetByDriveFileID(ctx context.Context, driveFileID string) (*Recording, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE drive_file_id = $1`, driveFileID)
	return scanRecording(row)
}

// List returns recordings newest-first
func (r *RecordingRepository) List(ctx context.Context, limit, offset int) ([]Recording, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordingColumns+` FROM recordings
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	return collectRecordings(rows)
}

// ListByStatus returns recordings in a given pipeline state, oldest-first so
// the scheduler drains the backlog in arrival order.
func (r *RecordingRepository) ListByStatus(ctx context.Context, status RecordingStatus, limit int) ([]Recording, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordingColumns+` FROM recordings
		 WHERE status = $1 ORDER BY created_at LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, fmt.Errorf("list recordings by status: %w", err)
	}
	defer rows.Close()

	return collectRecordings(rows)
}

func collectRecordings(rows pgx.Rows) ([]Recording, error) {
	var recordings []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, *rec)
	}
	return recordings, rows.Err()
}

// RequeueStale moves recordings stuck in an intermediate pipeline state back
// to pending so the next processing pass picks them up. A row is stale when
// it was last touched before the cutoff, which happens when a crash
// interrupted processing. Returns the number of rows requeued.
func (r *RecordingRepository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recordings SET status = $1, updated_at = NOW()
		WHERE status = ANY($2) AND updated_at < $3`,
		RecordingStatusPending,
		[]string{
			string(RecordingStatusTranscribing),
			string(RecordingStatusSummarizing),
			string(RecordingStatusMatching),
		},
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("requeue stale recordings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateStatus moves a recording to a new pipeline state
func (r *RecordingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status RecordingStatus) error {
	return r.exec(ctx,
		`UPDATE recordings SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
}

// SetTranscriptID records the provider-side transcript job ID
func (r *RecordingRepository) SetTranscriptID(ctx context.Context, id uuid.UUID, transcriptID string) error {
	return r.exec(ctx, `
		UPDATE recordings SET transcript_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		id, transcriptID, RecordingStatusTranscribing)
}

// SetTranscript stores the finished transcript text
func (r *RecordingRepository) SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	return r.exec(ctx, `
		UPDATE recordings SET transcript = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		id, transcript, RecordingStatusSummarizing)
}

// SetSummary stores the generated summary
func (r *RecordingRepository) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return r.exec(ctx, `
		UPDATE recordings SET summary = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		id, summary, RecordingStatusMatching)
}

// SetMatch records the matched calendar event and completes the pipeline.
// A nil match completes the recording without event metadata.
func (r *RecordingRepository) SetMatch(ctx context.Context, id uuid.UUID, match *RecordingMatch) error {
	if match == nil {
		return r.UpdateStatus(ctx, id, RecordingStatusCompleted)
	}
	return r.exec(ctx, `
		UPDATE recordings SET
			matched_event_id = $2,
			matched_event_title = $3,
			match_score = $4,
			match_method = $5,
			status = $6,
			updated_at = NOW()
		WHERE id = $1`,
		id, match.EventID, match.EventTitle, match.Score, match.Method,
		RecordingStatusCompleted)
}

// SetError marks a recording as failed with a reason
func (r *RecordingRepository) SetError(ctx context.Context, id uuid.UUID, message string) error {
	return r.exec(ctx, `
		UPDATE recordings SET error_message = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		id, message, RecordingStatusFailed)
}

func (r *RecordingRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
