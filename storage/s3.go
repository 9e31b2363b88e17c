package storage

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Storage struct {
	Bucket   Bucket
	s3Client *s3.S3
}

func NewS3Storage(bucket Bucket) (*S3Storage, error) {
	client, err := bucket.CreateSVC()
	if err != nil {
		return nil, err
	}
	return &S3Storage{Bucket: bucket, s3Client: client}, nil
}

func (s *S3Storage) Put(ctx context.Context, id string, reader io.Reader, contentType string) error {
	if err := checkID(id); err != nil {
		return err
	}
	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       &s.Bucket.Name,
		Key:          aws.String(s.Bucket.GetRemotePath(id)),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(CacheControlImmutable),
		Body:         reader,
	})
	return err
}

func (s *S3Storage) Get(ctx context.Context, id string) (*Object, error) {
	if err := checkID(id); err != nil {
		return nil, ErrNotFound
	}
	resp, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    aws.String(s.Bucket.GetRemotePath(id)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Object{
		Body:        resp.Body,
		Size:        aws.Int64Value(resp.ContentLength),
		ContentType: aws.StringValue(resp.ContentType),
		ETag:        aws.StringValue(resp.ETag),
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	objects := make([]*s3.ObjectIdentifier, 0, len(ids))
	for _, id := range ids {
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(s.Bucket.GetRemotePath(id))})
	}
	resp, err := s.s3Client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: &s.Bucket.Name,
		Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		for _, e := range resp.Errors {
			log.Printf("Storage: S3 delete %s failed: %s", aws.StringValue(e.Key), aws.StringValue(e.Message))
		}
		return errors.New("storage: some objects could not be deleted")
	}
	return nil
}
