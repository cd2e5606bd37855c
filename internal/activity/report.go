package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/drfailover/internal/cloud"
	"github.com/edvin/drfailover/internal/model"
)

// Report contains activities for archiving failover run reports to S3.
type Report struct {
	s3 cloud.S3API
}

// NewReport creates a new Report activity struct.
func NewReport(client cloud.S3API) *Report {
	return &Report{s3: client}
}

// ArchiveReportParams holds parameters for the ArchiveReport activity.
type ArchiveReportParams struct {
	Bucket     string       `json:"bucket"`
	RunID      string       `json:"run_id"`
	FinishedAt time.Time    `json:"finished_at"`
	Result     model.Result `json:"result"`
}

// report is the JSON document written to S3.
type report struct {
	RunID      string       `json:"run_id"`
	FinishedAt time.Time    `json:"finished_at"`
	Result     model.Result `json:"result"`
}

// ReportKey returns the object key for a run report.
func ReportKey(runID string, finishedAt time.Time) string {
	return fmt.Sprintf("dr-failover/%s/%s.json", finishedAt.UTC().Format("2006-01-02"), runID)
}

// ArchiveReport writes the run's result to S3 and returns the object key.
func (a *Report) ArchiveReport(ctx context.Context, params ArchiveReportParams) (string, error) {
	body, err := json.MarshalIndent(report{
		RunID:      params.RunID,
		FinishedAt: params.FinishedAt.UTC(),
		Result:     params.Result,
	}, "", "  ")
	if err != nil {
		return "", temporal.NewNonRetryableApplicationError("marshal report", "MARSHAL_ERROR", err)
	}

	key := ReportKey(params.RunID, params.FinishedAt)
	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(params.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put report s3://%s/%s: %w", params.Bucket, key, err)
	}
	return key, nil
}
