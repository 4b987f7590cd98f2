package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"apartmentng/internal/models"
)

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	// PublicBaseURL prefixes object keys in returned URLs. Empty means the
	// bucket's virtual-hosted AWS address.
	PublicBaseURL string
}

type S3Host struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	log      logrus.FieldLogger
}

func NewS3Host(ctx context.Context, cfg S3Config, log logrus.FieldLogger) (*S3Host, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return &S3Host{client: client, uploader: manager.NewUploader(client), cfg: cfg, log: log}, nil
}

func (h *S3Host) Name() string { return "s3" }

func (h *S3Host) Upload(ctx context.Context, obj Object) (Stored, error) {
	key := objectKey(obj)
	_, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
		Metadata:    map[string]string{"kind": string(obj.Kind)},
	})
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"bucket": h.cfg.Bucket, "key": key}).Error("s3 upload failed")
		return Stored{}, fmt.Errorf("s3 upload: %w", err)
	}
	return Stored{ID: key, URL: h.objectURL(key)}, nil
}

func (h *S3Host) Delete(ctx context.Context, kind models.MediaKind, id string) error {
	if !validKey(id) {
		return fmt.Errorf("invalid media id %q", id)
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.cfg.Bucket),
		Key:    aws.String(id),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return ErrNotFound
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"bucket": h.cfg.Bucket, "key": id, "kind": kind}).Warn("s3 delete failed")
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}

func (h *S3Host) objectURL(key string) string {
	if h.cfg.PublicBaseURL != "" {
		return strings.TrimRight(h.cfg.PublicBaseURL, "/") + "/" + key
	}
	if h.cfg.Endpoint != "" && h.cfg.ForcePathStyle {
		return strings.TrimRight(h.cfg.Endpoint, "/") + "/" + h.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.cfg.Bucket, h.cfg.Region, key)
}
