package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"google.golang.org/api/option"

	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/logging"
)

// Uploader copies a local backup file to off-site storage and returns its
// remote location.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// NewUploader builds an uploader from a target URL. Supported schemes:
// s3://bucket/prefix, gs://bucket/prefix, azure://container/prefix.
// Credentials come from each provider's standard environment.
func NewUploader(ctx context.Context, target string, logger *logging.Logger) (Uploader, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid upload target %s", target), err)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	bucket := u.Host
	prefix := strings.Trim(u.Path, "/")
	if bucket == "" {
		return nil, errors.NewValidationError(fmt.Sprintf("upload target %s has no bucket", target), nil)
	}

	switch u.Scheme {
	case "s3":
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(envOrDefault("AWS_REGION", "us-east-1")),
		})
		if err != nil {
			return nil, errors.NewBackupIOError("failed to create AWS session", err)
		}
		return &s3Uploader{client: s3.New(sess), bucket: bucket, prefix: prefix, logger: logger}, nil

	case "gs":
		var client *storage.Client
		if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
			client, err = storage.NewClient(ctx, option.WithCredentialsFile(creds))
		} else {
			client, err = storage.NewClient(ctx)
		}
		if err != nil {
			return nil, errors.NewBackupIOError("failed to create GCS client", err)
		}
		return &gcsUploader{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil

	case "azure":
		accountName := os.Getenv("AZURE_STORAGE_ACCOUNT")
		accountKey := os.Getenv("AZURE_STORAGE_KEY")
		if accountName == "" || accountKey == "" {
			return nil, errors.NewValidationError(
				"AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set for azure:// targets", nil)
		}
		credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
		if err != nil {
			return nil, errors.NewBackupIOError("failed to create Azure credentials", err)
		}
		pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
		serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", accountName))
		if err != nil {
			return nil, errors.NewBackupIOError("failed to parse Azure service URL", err)
		}
		return &azureUploader{
			serviceURL: azblob.NewServiceURL(*serviceURL, pipeline),
			container:  bucket,
			prefix:     prefix,
			logger:     logger,
		}, nil

	default:
		return nil, errors.NewValidationError(
			fmt.Sprintf("unsupported upload scheme %q (supported: s3, gs, azure)", u.Scheme), nil)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func remoteKey(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}

// s3Uploader copies backups to an Amazon S3 bucket
type s3Uploader struct {
	client *s3.S3
	bucket string
	prefix string
	logger *logging.Logger
}

func (u *s3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", errors.NewBackupIOError(fmt.Sprintf("failed to open backup file %s", localPath), err)
	}
	defer file.Close()

	key := remoteKey(u.prefix, localPath)
	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", errors.NewBackupIOError("failed to upload backup to S3", err)
	}

	location := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	u.logger.WithField("location", location).Info("Backup uploaded")
	return location, nil
}

// gcsUploader copies backups to a Google Cloud Storage bucket
type gcsUploader struct {
	client *storage.Client
	bucket string
	prefix string
	logger *logging.Logger
}

func (u *gcsUploader) Upload(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.NewBackupIOError(fmt.Sprintf("failed to read backup file %s", localPath), err)
	}

	key := remoteKey(u.prefix, localPath)
	writer := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return "", errors.NewBackupIOError("failed to write backup to GCS", err)
	}
	if err := writer.Close(); err != nil {
		return "", errors.NewBackupIOError("failed to finalize GCS upload", err)
	}

	location := fmt.Sprintf("gs://%s/%s", u.bucket, key)
	u.logger.WithField("location", location).Info("Backup uploaded")
	return location, nil
}

// azureUploader copies backups to an Azure Blob Storage container
type azureUploader struct {
	serviceURL azblob.ServiceURL
	container  string
	prefix     string
	logger     *logging.Logger
}

func (u *azureUploader) Upload(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.NewBackupIOError(fmt.Sprintf("failed to read backup file %s", localPath), err)
	}

	key := remoteKey(u.prefix, localPath)
	blobURL := u.serviceURL.NewContainerURL(u.container).NewBlockBlobURL(key)

	_, err = azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/octet-stream",
		},
	})
	if err != nil {
		return "", errors.NewBackupIOError("failed to upload backup to Azure", err)
	}

	location := fmt.Sprintf("azure://%s/%s", u.container, key)
	u.logger.WithField("location", location).Info("Backup uploaded")
	return location, nil
}
