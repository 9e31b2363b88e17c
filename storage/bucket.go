package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Bucket describes a remote S3 (or S3 compatible, e.g. R2, MinIO) bucket.
type Bucket struct {
	Name     string
	Region   string
	Endpoint string // empty for AWS
	Prefix   string // prepended to every object id
	S3Key    string
	S3Secret string
}

// CreateSVC creates the S3 client for the bucket. Static credentials are used if set,
// otherwise the default AWS credential chain.
func (b *Bucket) CreateSVC() (*s3.S3, error) {
	cfg := aws.NewConfig().WithRegion(b.Region)
	if b.S3Key != "" && b.S3Secret != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(b.S3Key, b.S3Secret, ""))
	}
	if b.Endpoint != "" {
		cfg = cfg.WithEndpoint(b.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

func (b *Bucket) GetRemotePath(id string) string {
	return b.Prefix + id
}
