package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CloudWatchLogsAPI is the part of the CloudWatch Logs client used for cleanup
type CloudWatchLogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DeleteLogGroup(ctx context.Context, params *cloudwatchlogs.DeleteLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteLogGroupOutput, error)
}

// CleanupFailure is a log group that could not be deleted
type CleanupFailure struct {
	LogGroupName string
	Err          error
}

// CleanupReport is the settled result of a bulk log group deletion
type CleanupReport struct {
	Matched  []string
	Deleted  []string
	Missing  []string // already gone when the delete was issued
	Failures []CleanupFailure
}

// LogGroupCleaner removes a stage's log groups ahead of stack teardown.
// Log groups created by lambdas at runtime are not owned by any stack.
type LogGroupCleaner struct {
	client CloudWatchLogsAPI
}

func NewLogGroupCleaner(client CloudWatchLogsAPI) *LogGroupCleaner {
	return &LogGroupCleaner{client: client}
}

// ListStageLogGroups pages through every log group in the region and keeps
// those whose name contains stage
func (c *LogGroupCleaner) ListStageLogGroups(ctx context.Context, stage string) ([]string, error) {
	var names []string

	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(c.client, &cloudwatchlogs.DescribeLogGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe log groups: %w", err)
		}

		for _, group := range page.LogGroups {
			name := aws.ToString(group.LogGroupName)
			if strings.Contains(name, stage) {
				names = append(names, name)
			}
		}
	}

	return names, nil
}

// DeleteLogGroups deletes every name concurrently and waits for all of them.
// A failed deletion is logged and reported, never returned.
func (c *LogGroupCleaner) DeleteLogGroups(ctx context.Context, names []string) CleanupReport {
	logger := zerolog.Ctx(ctx)

	errs := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			_, errs[i] = c.client.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
				LogGroupName: aws.String(name),
			})
			return nil
		})
	}
	_ = g.Wait()

	report := CleanupReport{Matched: names}
	for i, name := range names {
		err := errs[i]
		switch {
		case err == nil:
			report.Deleted = append(report.Deleted, name)
		case isNotFound(err):
			logger.Debug().Str("log_group", name).Msg("Log group already deleted")
			report.Missing = append(report.Missing, name)
		default:
			logger.Error().Err(err).Str("log_group", name).Msg("Failed to delete log group")
			report.Failures = append(report.Failures, CleanupFailure{LogGroupName: name, Err: err})
		}
	}

	return report
}

// Cleanup lists and deletes the stage's log groups. Only a listing failure is
// returned as an error.
func (c *LogGroupCleaner) Cleanup(ctx context.Context, stage string) (CleanupReport, error) {
	if stage == "" {
		return CleanupReport{}, fmt.Errorf("refusing to clean up log groups without a stage")
	}

	names, err := c.ListStageLogGroups(ctx, stage)
	if err != nil {
		return CleanupReport{}, err
	}

	return c.DeleteLogGroups(ctx, names), nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}
