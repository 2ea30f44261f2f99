// Package reports uploads medical report files and keeps track of them in the
// session's in-memory report list. Uploaded files are linked to the patient
// later, on recall submit.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

// MaxFileSize caps a single report upload.
const MaxFileSize = 10 << 20

var (
	ErrEmptyFile       = errors.New("reports: file is empty")
	ErrFileTooLarge    = errors.New("reports: file exceeds 10 MB")
	ErrUnsupportedType = errors.New("reports: only PDF, JPEG and PNG files are accepted")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// File is one report as received from the browser.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate checks size and type.
func (f File) Validate() error {
	if len(f.Data) == 0 {
		return ErrEmptyFile
	}
	if len(f.Data) > MaxFileSize {
		return ErrFileTooLarge
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	if !allowedTypes[ct] {
		return ErrUnsupportedType
	}
	return nil
}

// Uploader stores a report file and returns its reference.
type Uploader interface {
	Upload(ctx context.Context, profileID string, f File) (bookingform.Report, error)
}

// ReportList is the in-memory report list of one session.
type ReportList interface {
	AddReport(r bookingform.Report) error
	RemoveReport(id string) bool
}

// Accept validates, uploads and records a report.
func Accept(ctx context.Context, up Uploader, list ReportList, profileID string, f File) (bookingform.Report, error) {
	if err := f.Validate(); err != nil {
		return bookingform.Report{}, err
	}
	report, err := up.Upload(ctx, profileID, f)
	if err != nil {
		return bookingform.Report{}, err
	}
	if err := list.AddReport(report); err != nil {
		return bookingform.Report{}, fmt.Errorf("reports: record: %w", err)
	}
	return report, nil
}

// FileUploader is the backend's multipart upload endpoint.
type FileUploader interface {
	UploadFile(ctx context.Context, name, contentType string, r io.Reader) (backend.UploadedFile, error)
}

// BackendUploader sends reports to the clinic backend, which issues the file id.
type BackendUploader struct {
	client FileUploader
}

// NewBackendUploader creates an uploader over the backend files endpoint.
func NewBackendUploader(client FileUploader) *BackendUploader {
	return &BackendUploader{client: client}
}

func (u *BackendUploader) Upload(ctx context.Context, _ string, f File) (bookingform.Report, error) {
	up, err := u.client.UploadFile(ctx, f.Name, f.ContentType, bytes.NewReader(f.Data))
	if err != nil {
		return bookingform.Report{}, err
	}
	return bookingform.Report{
		ID:          up.ID,
		Name:        up.FileName,
		ContentType: f.ContentType,
		Size:        int64(len(f.Data)),
		Source:      bookingform.ReportSourceBackend,
	}, nil
}

// S3API is the subset of the S3 client used by S3Uploader.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes reports straight to a bucket; the object key is the file
// id. S3 reports are never linked to the patient through the backend.
type S3Uploader struct {
	bucket string
	client S3API
	logger *logging.Logger
	now    func() time.Time
}

// NewS3Uploader creates an S3-backed uploader.
func NewS3Uploader(client S3API, bucket string, logger *logging.Logger) *S3Uploader {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Uploader{bucket: bucket, client: client, logger: logger, now: time.Now}
}

func (u *S3Uploader) Upload(ctx context.Context, profileID string, f File) (bookingform.Report, error) {
	if u.bucket == "" || u.client == nil {
		return bookingform.Report{}, fmt.Errorf("reports: s3 bucket not configured")
	}
	now := u.now().UTC()
	key := fmt.Sprintf("reports/%d/%02d/%s/%s%s",
		now.Year(), now.Month(), profileID, uuid.NewString(), strings.ToLower(path.Ext(f.Name)))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(f.Data),
		ContentType:   aws.String(f.ContentType),
		ContentLength: aws.Int64(int64(len(f.Data))),
		Metadata:      map[string]string{"original-name": f.Name},
	})
	if err != nil {
		return bookingform.Report{}, fmt.Errorf("reports: s3 put %s: %w", key, err)
	}
	u.logger.Info("report uploaded", "profile_id", profileID, "s3_key", key, "size", len(f.Data))
	return bookingform.Report{
		ID:          key,
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        int64(len(f.Data)),
		Source:      bookingform.ReportSourceS3,
	}, nil
}
