package google

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ARedaUni/teloshousemeet/internal/logger"
	"github.com/ARedaUni/teloshousemeet/internal/retry"
)

// renameRetryPolicy retries each rename a few times; transient Drive API
// errors during the rename trio would otherwise leave files half-renamed.
var renameRetryPolicy = retry.Policy{
	InitialInterval: time.Second,
	MaxInterval:     5 * time.Second,
	Multiplier:      2,
	Jitter:          1,
	MaxAttempts:     3,
}

// DriveFile is the subset of Drive file metadata the pipeline uses
type DriveFile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mime_type"`
	WebViewLink    string    `json:"web_view_link,omitempty"`
	WebContentLink string    `json:"web_content_link,omitempty"`
	CreatedTime    time.Time `json:"created_time,omitempty"`
}

// RenameSet names the three files produced for one recording: the audio
// source plus its generated summary and transcript documents.
type RenameSet struct {
	AudioFileID      string
	SummaryFileID    string
	TranscriptFileID string
}

// DriveService manages recording files in Google Drive
type DriveService struct {
	oauthService *OAuthService
}

// NewDriveService creates a Drive service
func NewDriveService(oauthService *OAuthService) *DriveService {
	return &DriveService{oauthService: oauthService}
}

func (s *DriveService) service(ctx context.Context) (*drive.Service, error) {
	client, err := s.oauthService.GetClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("get OAuth client: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create Drive service: %w", err)
	}

	return svc, nil
}

// ListAudioFiles returns audio files in a folder, newest first
func (s *DriveService) ListAudioFiles(ctx context.Context, folderID string) ([]DriveFile, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"'%s' in parents and mimeType contains 'audio/' and trashed = false", folderID)

	var files []DriveFile
	var pageToken string
	for {
		req := svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, createdTime)").
			OrderBy("createdTime desc").
			PageSize(100)

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		resp, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list audio files: %w", err)
		}

		for _, f := range resp.Files {
			files = append(files, mapDriveFile(f))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return files, nil
}

// Download streams the content of a Drive file. The caller closes the reader.
func (s *DriveService) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}

	return resp.Body, nil
}

// ShareLink makes a file readable by anyone with the link and returns its
// web content link so external services can fetch it directly.
func (s *DriveService) ShareLink(ctx context.Context, fileID string) (string, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return "", err
	}

	_, err = svc.Permissions.Create(fileID, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("share file %s: %w", fileID, err)
	}

	file, err := svc.Files.Get(fileID).Fields("webContentLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get shared file link: %w", err)
	}
	if file.WebContentLink == "" {
		return "", fmt.Errorf("file %s has no web content link", fileID)
	}

	return file.WebContentLink, nil
}

// CreateTextFile writes a plain-text document into a folder
func (s *DriveService) CreateTextFile(ctx context.Context, folderID, name, content string) (*DriveFile, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	meta := &drive.File{
		Name:     name,
		MimeType: "text/plain",
		Parents:  []string{folderID},
	}

	created, err := svc.Files.Create(meta).
		Media(strings.NewReader(content)).
		Fields("id, name, mimeType, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create text file %q: %w", name, err)
	}

	file := mapDriveFile(created)
	return &file, nil
}

// Rename changes a single file's name
func (s *DriveService) Rename(ctx context.Context, fileID, newName string) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	_, err = svc.Files.Update(fileID, &drive.File{Name: newName}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("rename file %s: %w", fileID, err)
	}

	return nil
}

// RenameSetName builds the shared base name for a recording's files from the
// matched event title and date, e.g. "Product Roadmap Sync | 2026-03-02".
func RenameSetName(eventTitle string, eventDate time.Time) string {
	return fmt.Sprintf("%s | %s", eventTitle, eventDate.Format("2006-01-02"))
}

// RenameOutputs renames a recording's audio, summary, and transcript files to
// the shared base name. The audio file keeps its original extension. Partial
// failures leave the files that did rename in place and report the first
// error.
func (s *DriveService) RenameOutputs(ctx context.Context, set RenameSet, audioFileName, baseName string) error {
	return renameAll(ctx, renameRetryPolicy, s.Rename, set, audioFileName, baseName)
}

func renameAll(
	ctx context.Context,
	policy retry.Policy,
	rename func(ctx context.Context, fileID, newName string) error,
	set RenameSet,
	audioFileName, baseName string,
) error {
	ext := path.Ext(audioFileName)
	if ext == "" {
		ext = ".m4a"
	}

	renames := []struct {
		fileID string
		name   string
	}{
		{set.AudioFileID, baseName + ext},
		{set.SummaryFileID, baseName + "_summary.txt"},
		{set.TranscriptFileID, baseName + "_transcript.txt"},
	}

	for _, r := range renames {
		if r.fileID == "" {
			continue
		}
		_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, rename(ctx, r.fileID, r.name)
		})
		if err != nil {
			return err
		}
		logger.Debug().Str("fileId", r.fileID).Str("name", r.name).Msg("renamed drive file")
	}

	return nil
}

func mapDriveFile(f *drive.File) DriveFile {
	file := DriveFile{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
	}
	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			file.CreatedTime = t
		}
	}
	return file
}
