// Package stacks describes the stacks the CDK app synthesizes for a stage as
// plain values, so workflows can reason about names, parameters and log
// groups without loading the app.
package stacks

import (
	"fmt"

	"github.com/savaki/gox/slicex"
	"github.com/savaki/stagectl/internal/appconfig"
)

const (
	Stateful = "stateful"
	Foo      = "foo"
)

type RemovalPolicy string

const (
	RemovalPolicyRetain  RemovalPolicy = "retain"
	RemovalPolicyDestroy RemovalPolicy = "destroy"
)

// Spec is one stack for one stage
type Spec struct {
	ID                    string        `json:"id"`   // short stack id, e.g. stateful
	Name                  string        `json:"name"` // CloudFormation stack name
	TerminationProtection bool          `json:"terminationProtection"`
	RemovalPolicy         RemovalPolicy `json:"removalPolicy"`
	LogGroups             []string      `json:"logGroups,omitempty"`
	Parameters            []string      `json:"parameters,omitempty"` // Parameter Store names the stack publishes
}

// StackName returns the CloudFormation name for stack in stage
func StackName(project, stack, stage string) string {
	return fmt.Sprintf("%s-%s-stack-%s", project, stack, stage)
}

// APILogGroupName is the access log group of the stage's REST API
func APILogGroupName(project, stack, stage string) string {
	return fmt.Sprintf("%s-%s-ApiLogGroup-%s", project, stack, stage)
}

// APIIDParameter holds the REST API id; api stacks read it to attach routes
func APIIDParameter(project, stack, stage string) string {
	return fmt.Sprintf("/%s/%s/id/%s", project, stack, stage)
}

// RootResourceIDParameter holds the REST API root resource id
func RootResourceIDParameter(project, stack, stage string) string {
	return fmt.Sprintf("/%s/%s/rootResourceId/%s", project, stack, stage)
}

// Plan returns the stacks deployed for cfg, stateful first
func Plan(cfg appconfig.ApplicationConfig) []Spec {
	removal := RemovalPolicyDestroy
	if cfg.IsStagingEnv {
		removal = RemovalPolicyRetain
	}
	protect := cfg.Stage == "prod"

	return []Spec{
		{
			ID:                    Stateful,
			Name:                  StackName(cfg.Project, Stateful, cfg.Stage),
			TerminationProtection: protect,
			RemovalPolicy:         removal,
			LogGroups:             []string{APILogGroupName(cfg.Project, Stateful, cfg.Stage)},
			Parameters: []string{
				APIIDParameter(cfg.Project, Stateful, cfg.Stage),
				RootResourceIDParameter(cfg.Project, Stateful, cfg.Stage),
			},
		},
		{
			ID:                    Foo,
			Name:                  StackName(cfg.Project, Foo, cfg.Stage),
			TerminationProtection: protect,
			RemovalPolicy:         removal,
		},
	}
}

// Names returns the stack names of specs
func Names(specs []Spec) []string {
	return slicex.Map(specs, GetName)
}

// GetName returns the spec's stack name
func GetName(spec Spec) string {
	return spec.Name
}

// Parameters returns every parameter name published by specs
func Parameters(specs []Spec) []string {
	var names []string
	for _, spec := range specs {
		names = append(names, spec.Parameters...)
	}
	return names
}
