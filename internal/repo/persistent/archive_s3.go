package persistent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/s3client"
)

// ArchiveRepo offloads resolved outbox rows to object storage before
// cleanup deletes them from postgres.
type ArchiveRepo struct {
	client *s3client.S3Client
	bucket string
}

func NewArchiveRepo(client *s3client.S3Client, bucket string) *ArchiveRepo {
	return &ArchiveRepo{
		client: client,
		bucket: bucket,
	}
}

func (r *ArchiveRepo) StoreBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	body, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("ArchiveRepo - StoreBatch - json.Marshal: %w", err)
	}

	key := fmt.Sprintf("outbox/%s/%s.json", time.Now().Format("2006-01-02"), uuid.New())

	_, err = r.client.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("ArchiveRepo - StoreBatch - r.client.Client.PutObject: %w", err)
	}

	return nil
}
