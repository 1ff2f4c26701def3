package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/ndrandal/backtestsim/model"
)

type stubS3 struct {
	lastInput *s3.PutObjectInput
	calls     int
}

func (s *stubS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.calls++
	s.lastInput = params
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveRunUploadsGzippedNDJSON(t *testing.T) {
	stub := &stubS3{}
	a := New(stub, "my-bucket", "runs")

	periods := []model.Period{
		{PortfolioValue: 100000, TradingDays: 1},
		{PortfolioValue: 100500, TradingDays: 2},
	}

	require.NoError(t, a.ArchiveRun(context.Background(), "run-1", periods))
	require.Equal(t, 1, stub.calls)
	require.Equal(t, "my-bucket", *stub.lastInput.Bucket)
	require.Equal(t, "runs/run-1.jsonl.gz", *stub.lastInput.Key)

	gz, err := gzip.NewReader(stub.lastInput.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	var lines []model.Period
	dec := json.NewDecoder(bytes.NewReader(raw))
	for {
		var p model.Period
		if err := dec.Decode(&p); err != nil {
			break
		}
		lines = append(lines, p)
	}
	require.Len(t, lines, 2)
}

func TestArchiveRunSkipsEmptyPeriods(t *testing.T) {
	stub := &stubS3{}
	a := New(stub, "my-bucket", "runs")

	require.NoError(t, a.ArchiveRun(context.Background(), "run-1", nil))
	require.Equal(t, 0, stub.calls)
}

func TestArchiveOnCompletionDelegatesToArchiveRun(t *testing.T) {
	stub := &stubS3{}
	a := New(stub, "my-bucket", "runs")

	result := model.Result{Periods: []model.Period{{PortfolioValue: 100000}}}
	require.NoError(t, a.ArchiveOnCompletion(context.Background(), "run-2", result, time.Now()))
	require.Equal(t, 1, stub.calls)
}
