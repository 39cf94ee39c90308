package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ReceiptUploader copies rendered receipts to S3 so the link can be
// attached to the payment and shared with the shop.
type ReceiptUploader struct {
	bucket   string
	region   string
	uploader *s3manager.Uploader
}

// NewReceiptUploader returns nil when no bucket is configured.
// Credentials come from the standard AWS environment chain.
func NewReceiptUploader(bucket, region string) (*ReceiptUploader, error) {
	if bucket == "" {
		return nil, nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("s3: new session: %w", err)
	}
	return &ReceiptUploader{
		bucket:   bucket,
		region:   region,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Upload puts the file at localPath under receipts/ and returns its URL.
func (u *ReceiptUploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := "receipts/" + filepath.Base(localPath)
	out, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: upload %s: %w", key, err)
	}
	return out.Location, nil
}
