package aiservices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3MediaPresigner hands out short-lived PUT URLs for task media uploads.
type S3MediaPresigner struct {
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
}

func NewS3MediaPresigner(s3Client *s3.Client, bucket string, expiry time.Duration) (*S3MediaPresigner, error) {
	if s3Client == nil {
		return nil, fmt.Errorf("s3 client cannot be nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("media bucket cannot be empty")
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3MediaPresigner{
		presignClient: s3.NewPresignClient(s3Client),
		bucket:        bucket,
		expiry:        expiry,
	}, nil
}

// PresignUpload returns a presigned PUT URL for the given media key.
func (p *S3MediaPresigner) PresignUpload(ctx context.Context, mediaKey, contentType string) (string, error) {
	req, err := p.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(mediaKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("presigning upload for media %s: %w", mediaKey, err)
	}
	return req.URL, nil
}
