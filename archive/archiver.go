// Package archive ships a completed backtest's Period series to S3 as one
// gzipped NDJSON object per run, adapted from the local-disk trade archiver
// in internal/archive/archiver.go — same gzip/NDJSON encoding, writing to
// S3 via aws-sdk-go-v2 instead of the local filesystem.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ndrandal/backtestsim/model"
)

// PutObjectAPI is the s3.Client surface the Archiver depends on, letting
// tests stub out the network call the same way handlers_test.go substitutes
// a persist.TradeReader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads a run's Period series to S3 once the run completes.
type Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// New returns an Archiver writing to bucket under the given key prefix.
func New(client PutObjectAPI, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// ArchiveRun gzips periods as NDJSON and uploads them under
// <prefix>/<runID>.jsonl.gz.
func (a *Archiver) ArchiveRun(ctx context.Context, runID string, periods []model.Period) error {
	if len(periods) == 0 {
		return nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, p := range periods {
		if err := enc.Encode(p); err != nil {
			gz.Close()
			return fmt.Errorf("encode period: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}

	key := fmt.Sprintf("%s/%s.jsonl.gz", a.prefix, runID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	log.Printf("archive: uploaded %d periods for run %s to s3://%s/%s", len(periods), runID, a.bucket, key)
	return nil
}

// ArchiveOnCompletion archives result's periods under runID. The engine
// calls it from runLoop's termination paths once a run ends. completedAt
// is accepted from the caller but used in neither the key nor the upload.
func (a *Archiver) ArchiveOnCompletion(ctx context.Context, runID string, result model.Result, completedAt time.Time) error {
	return a.ArchiveRun(ctx, runID, result.Periods)
}
