package adapters

import (
	"context"
	"fmt"
	"os"

	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
)

type s3MediaStore struct {
	logger   outbound.LoggerPort
	s3Svc    *s3.S3
	s3Config *config.S3Config
}

func NewS3MediaStore(s3Svc *s3.S3, s3Config *config.S3Config, logger outbound.LoggerPort) outbound.MediaStorePort {
	return &s3MediaStore{
		logger:   logger,
		s3Svc:    s3Svc,
		s3Config: s3Config,
	}
}

func (s *s3MediaStore) Upload(ctx context.Context, req outbound.UploadMediaRequest) (*outbound.UploadMediaResponse, error) {
	file, err := os.Open(req.LocalPath)
	if err != nil {
		s.logger.Error(err, "Failed to open local media file")
		return nil, err
	}

	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			s.logger.Error(err, "Failed to close local media file")
			return
		}
		err = os.Remove(file.Name())
		if err != nil {
			s.logger.Error(err, "Failed to remove local media file")
			return
		}
	}(file)

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(req.Key),
		Body:        file,
		ContentType: aws.String(req.ContentType),
	}
	if len(req.Metadata) > 0 {
		metadata := make(map[string]*string, len(req.Metadata))
		for key, value := range req.Metadata {
			metadata[key] = aws.String(value)
		}
		putInput.Metadata = metadata
	}

	_, err = s.s3Svc.PutObjectWithContext(ctx, putInput)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to upload object to S3", map[string]interface{}{
			"bucket": s.s3Config.BucketName,
			"key":    req.Key,
		})
		return nil, err
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, req.Key)
	s.logger.DebugWithFields("Uploaded object to S3", map[string]interface{}{
		"url": publicURL,
	})

	return &outbound.UploadMediaResponse{PublicURL: publicURL}, nil
}

func (s *s3MediaStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.s3Config.BucketName),
		Prefix: aws.String(prefix),
	}

	for {
		page, err := s.s3Svc.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return deleted, err
		}
		if len(page.Contents) == 0 {
			return deleted, nil
		}

		objects := make([]*s3.ObjectIdentifier, 0, len(page.Contents))
		for _, object := range page.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: object.Key})
		}

		_, err = s.s3Svc.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.s3Config.BucketName),
			Delete: &s3.Delete{Objects: objects},
		})
		if err != nil {
			return deleted, err
		}
		deleted += len(objects)

		if page.NextContinuationToken == nil {
			return deleted, nil
		}
		input.ContinuationToken = page.NextContinuationToken
	}
}
