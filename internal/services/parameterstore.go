package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// maxParametersPerCall is the GetParameters batch limit
const maxParametersPerCall = 10

// SSMAPI is the part of the SSM client used to read stack parameters
type SSMAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// ParameterStore reads the parameters the stacks publish to Parameter Store
type ParameterStore interface {
	// GetParameters returns the values found for names. Names that do not
	// exist are absent from the map.
	GetParameters(ctx context.Context, names []string) (map[string]string, error)
}

// SSMParameterStore implements ParameterStore using AWS Systems Manager Parameter Store
type SSMParameterStore struct {
	client SSMAPI
	mu     sync.RWMutex
	cache  map[string]string
}

// NewSSMParameterStore creates a new SSM-backed parameter store
func NewSSMParameterStore(client SSMAPI) *SSMParameterStore {
	return &SSMParameterStore{
		client: client,
		cache:  make(map[string]string),
	}
}

func (s *SSMParameterStore) GetParameters(ctx context.Context, names []string) (map[string]string, error) {
	values := make(map[string]string, len(names))

	// Check cache first
	var pending []string
	s.mu.RLock()
	for _, name := range names {
		if value, ok := s.cache[name]; ok {
			values[name] = value
		} else {
			pending = append(pending, name)
		}
	}
	s.mu.RUnlock()

	for start := 0; start < len(pending); start += maxParametersPerCall {
		end := min(start+maxParametersPerCall, len(pending))

		result, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          pending[start:end],
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get parameters: %w", err)
		}

		s.mu.Lock()
		for _, param := range result.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			values[*param.Name] = *param.Value
			s.cache[*param.Name] = *param.Value
		}
		s.mu.Unlock()
	}

	return values, nil
}

// EmptyParameterStore is used when Parameter Store is disabled
type EmptyParameterStore struct{}

func (EmptyParameterStore) GetParameters(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}
