package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"
	"github.com/savaki/gox/slicex"
)

const describeConcurrency = 4

// StackStatusNotFound is reported for stacks CloudFormation does not know about
const StackStatusNotFound = "NOT_FOUND"

// CloudFormationAPI is the part of the CloudFormation client used for status
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// StackStatus is the deployed state of one stack
type StackStatus struct {
	Name        string
	Status      string
	LastUpdated time.Time
	Outputs     map[string]string
}

type StackStatusService struct {
	client CloudFormationAPI
}

func NewStackStatusService(client CloudFormationAPI) *StackStatusService {
	return &StackStatusService{client: client}
}

// Describe returns the status of each named stack, in order
func (s *StackStatusService) Describe(ctx context.Context, names []string) ([]StackStatus, error) {
	results, err := slicex.MapConcurrent(s.describe).
		Concurrency(describeConcurrency).
		CollectErrors().
		DoValues(ctx, names...)
	if err != nil {
		return nil, fmt.Errorf("failed to describe stacks: %w", err)
	}

	statuses := make([]StackStatus, 0, len(results))
	for _, status := range results {
		if status != nil {
			statuses = append(statuses, *status)
		}
	}
	return statuses, nil
}

func (s *StackStatusService) describe(ctx context.Context, name string) (*StackStatus, error) {
	output, err := s.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if isStackMissing(err) {
			return &StackStatus{Name: name, Status: StackStatusNotFound}, nil
		}
		return nil, fmt.Errorf("failed to describe stack %s: %w", name, err)
	}
	if len(output.Stacks) == 0 {
		return &StackStatus{Name: name, Status: StackStatusNotFound}, nil
	}

	stack := output.Stacks[0]
	status := &StackStatus{
		Name:        name,
		Status:      string(stack.StackStatus),
		LastUpdated: aws.ToTime(stack.CreationTime),
		Outputs:     make(map[string]string, len(stack.Outputs)),
	}
	if stack.LastUpdatedTime != nil {
		status.LastUpdated = *stack.LastUpdatedTime
	}
	for _, out := range stack.Outputs {
		status.Outputs[aws.ToString(out.OutputKey)] = aws.ToString(out.OutputValue)
	}
	return status, nil
}

// CloudFormation signals a missing stack with a generic ValidationError
func isStackMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

// ReadStackOutputs reads the outputs file written by cdk deploy, keyed by
// stack name then output key. A missing file yields an empty map.
func ReadStackOutputs(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	outputs := map[string]map[string]string{}
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return outputs, nil
}
