package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ARedaUni/teloshousemeet/internal/db"
	"github.com/ARedaUni/teloshousemeet/internal/google"
	"github.com/ARedaUni/teloshousemeet/internal/logger"
	"github.com/ARedaUni/teloshousemeet/internal/matching"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
	"github.com/ARedaUni/teloshousemeet/internal/transcription"
)

// driveStore is the slice of the Drive service the pipeline needs
// (for testability)
type driveStore interface {
	ListAudioFiles(ctx context.Context, folderID string) ([]google.DriveFile, error)
	ShareLink(ctx context.Context, fileID string) (string, error)
	CreateTextFile(ctx context.Context, folderID, name, content string) (*google.DriveFile, error)
	RenameOutputs(ctx context.Context, set google.RenameSet, audioFileName, baseName string) error
}

// transcriber is the slice of the transcription client the pipeline needs
// (for testability)
type transcriber interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	WaitForCompletion(ctx context.Context, id string) (*transcription.Transcript, error)
	Summarize(ctx context.Context, transcriptID string) (string, error)
}

// recordingStore is the slice of the recording repository the pipeline needs
// (for testability)
type recordingStore interface {
	Create(ctx context.Context, driveFileID, fileName string) (*repository.Recording, error)
	ListByStatus(ctx context.Context, status repository.RecordingStatus, limit int) ([]repository.Recording, error)
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)
	SetTranscriptID(ctx context.Context, id uuid.UUID, transcriptID string) error
	SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error
	SetMatch(ctx context.Context, id uuid.UUID, match *repository.RecordingMatch) error
	SetError(ctx context.Context, id uuid.UUID, message string) error
}

// settingsStore reads user settings (for testability)
type settingsStore interface {
	Get(ctx context.Context, key string) (*repository.Setting, error)
}

// summaryMatcher matches a summary to a calendar event (for testability)
type summaryMatcher interface {
	MatchSummary(ctx context.Context, summary string, reference time.Time) (*matching.MatchResult, error)
}

// PipelineService drives recordings from discovery through transcription,
// summarization, and calendar matching.
type PipelineService struct {
	drive       driveStore
	transcriber transcriber
	recordings  recordingStore
	settings    settingsStore
	matcher     summaryMatcher
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(
	drive driveStore,
	transcriber transcriber,
	recordings recordingStore,
	settings settingsStore,
	matcher summaryMatcher,
) *PipelineService {
	return &PipelineService{
		drive:       drive,
		transcriber: transcriber,
		recordings:  recordings,
		settings:    settings,
		matcher:     matcher,
	}
}

// DiscoverRecordings registers new audio files from the configured recordings
// folder. Files already registered are left untouched. Returns the number of
// files seen.
func (s *PipelineService) DiscoverRecordings(ctx context.Context) (int, error) {
	folderID, err := s.stringSetting(ctx, repository.SettingRecordingsFolder)
	if err != nil {
		return 0, fmt.Errorf("recordings folder is not configured: %w", err)
	}

	files, err := s.drive.ListAudioFiles(ctx, folderID)
	if err != nil {
		return 0, fmt.Errorf("list recordings folder: %w", err)
	}

	for _, f := range files {
		if _, err := s.recordings.Create(ctx, f.ID, f.Name); err != nil {
			logger.Warn().Err(err).Str("fileId", f.ID).Msg("failed to register recording")
		}
	}

	return len(files), nil
}

// staleAfter bounds how long a recording may sit in an intermediate state
// before it is considered abandoned by a crashed run.
const staleAfter = 30 * time.Minute

// ProcessPending runs the full pipeline for up to limit pending recordings.
// Recordings stranded mid-pipeline by an earlier crash are requeued first.
// A failed recording is marked failed and does not stop the batch.
func (s *PipelineService) ProcessPending(ctx context.Context, limit int) error {
	requeued, err := s.recordings.RequeueStale(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to requeue stale recordings")
	} else if requeued > 0 {
		logger.Info().Int64("count", requeued).Msg("requeued stale recordings")
	}

	recordings, err := s.recordings.ListByStatus(ctx, repository.RecordingStatusPending, limit)
	if err != nil {
		return fmt.Errorf("list pending recordings: %w", err)
	}

	for i := range recordings {
		rec := &recordings[i]
		if err := s.Process(ctx, rec); err != nil {
			logger.Error().Err(err).Str("recording", rec.ID.String()).Msg("recording pipeline failed")
			if dbErr := s.recordings.SetError(ctx, rec.ID, err.Error()); dbErr != nil {
				logger.Error().Err(dbErr).Msg("failed to mark recording as failed")
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// Process runs one recording through transcription, summarization, matching,
// and file management.
func (s *PipelineService) Process(ctx context.Context, rec *repository.Recording) error {
	logger.Info().Str("recording", rec.ID.String()).Str("file", rec.FileName).Msg("processing recording")

	// A requeued recording that already holds a transcript job resumes from
	// it instead of resubmitting the audio.
	var transcriptID string
	if rec.TranscriptID != nil && *rec.TranscriptID != "" {
		transcriptID = *rec.TranscriptID
	} else {
		audioURL, err := s.drive.ShareLink(ctx, rec.DriveFileID)
		if err != nil {
			return fmt.Errorf("share audio file: %w", err)
		}

		transcriptID, err = s.transcriber.Submit(ctx, audioURL)
		if err != nil {
			return fmt.Errorf("submit transcription: %w", err)
		}
	}
	if err := s.recordings.SetTranscriptID(ctx, rec.ID, transcriptID); err != nil {
		return err
	}

	transcript, err := s.transcriber.WaitForCompletion(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if err := s.recordings.SetTranscript(ctx, rec.ID, transcript.Text); err != nil {
		return err
	}

	summary, err := s.transcriber.Summarize(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("summarize transcript: %w", err)
	}
	if err := s.recordings.SetSummary(ctx, rec.ID, summary); err != nil {
		return err
	}

	outputs, err := s.saveDocuments(ctx, rec, summary, transcript.Text)
	if err != nil {
		return err
	}

	result, err := s.matcher.MatchSummary(ctx, summary, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("match summary: %w", err)
	}

	if !result.Matched() {
		return s.recordings.SetMatch(ctx, rec.ID, nil)
	}

	if err := s.recordings.SetMatch(ctx, rec.ID, &repository.RecordingMatch{
		EventID:    result.Event.ID,
		EventTitle: result.Event.Title,
		Score:      result.Score,
		Method:     string(result.Method),
	}); err != nil {
		return err
	}

	if s.autoRenameEnabled(ctx) {
		baseName := google.RenameSetName(result.Event.Title, result.Event.Start)
		if err := s.drive.RenameOutputs(ctx, outputs, rec.FileName, baseName); err != nil {
			// The match is already recorded; renaming is cosmetic
			logger.Warn().Err(err).Str("recording", rec.ID.String()).Msg("failed to rename drive files")
		}
	}

	return nil
}

// saveDocuments writes the summary and transcript documents. Each document
// type has its own optional folder setting and falls back to the recordings
// folder when unset.
func (s *PipelineService) saveDocuments(ctx context.Context, rec *repository.Recording, summary, transcript string) (google.RenameSet, error) {
	outputs := google.RenameSet{AudioFileID: rec.DriveFileID}

	recordingsFolder, err := s.stringSetting(ctx, repository.SettingRecordingsFolder)
	if err != nil {
		return outputs, fmt.Errorf("recordings folder is not configured: %w", err)
	}

	base := strings.TrimSuffix(rec.FileName, extension(rec.FileName))

	summaryFolder := s.folderOrDefault(ctx, repository.SettingSummaryFolder, recordingsFolder)
	summaryFile, err := s.drive.CreateTextFile(ctx, summaryFolder, base+"_summary.txt", summary)
	if err != nil {
		return outputs, fmt.Errorf("save summary document: %w", err)
	}
	outputs.SummaryFileID = summaryFile.ID

	transcriptFolder := s.folderOrDefault(ctx, repository.SettingTranscriptFolder, recordingsFolder)
	transcriptFile, err := s.drive.CreateTextFile(ctx, transcriptFolder, base+"_transcript.txt", transcript)
	if err != nil {
		return outputs, fmt.Errorf("save transcript document: %w", err)
	}
	outputs.TranscriptFileID = transcriptFile.ID

	return outputs, nil
}

// folderOrDefault reads an optional folder setting, falling back when unset
// or unreadable
func (s *PipelineService) folderOrDefault(ctx context.Context, key, fallback string) string {
	folder, err := s.stringSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Warn().Err(err).Str("setting", key).Msg("failed to read folder setting")
		}
		return fallback
	}
	return folder
}

func (s *PipelineService) stringSetting(ctx context.Context, key string) (string, error) {
	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		return "", err
	}

	var value string
	if err := json.Unmarshal(setting.Value, &value); err != nil {
		return "", fmt.Errorf("setting %q is not a string: %w", key, err)
	}
	if value == "" {
		return "", fmt.Errorf("setting %q is empty", key)
	}

	return value, nil
}

// autoRenameEnabled reads the auto-rename toggle, defaulting to enabled
func (s *PipelineService) autoRenameEnabled(ctx context.Context) bool {
	setting, err := s.settings.Get(ctx, repository.SettingAutoRename)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Warn().Err(err).Msg("failed to read auto-rename setting")
		}
		return true
	}

	var enabled bool
	if err := json.Unmarshal(setting.Value, &enabled); err != nil {
		return true
	}
	return enabled
}

func extension(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
