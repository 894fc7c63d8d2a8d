// Package secret resolves settings that point at AWS SSM Parameter Store
// instead of carrying the value inline.
package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// RefPrefix marks a setting value as a parameter reference, e.g.
// "ssm:/pws/refresh-token".
const RefPrefix = "ssm:"

// ParseRef returns the parameter name of a reference value.
func ParseRef(value string) (string, bool) {
	name, ok := strings.CutPrefix(strings.TrimSpace(value), RefPrefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// SSMClient is the subset of *ssm.Client methods used here.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Writer stores secret values by name.
type Writer interface {
	PutSecret(ctx context.Context, name, value string) error
}

// SSMResolver reads and writes SecureString parameters.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client}
}

// NewSSMResolverFromEnv builds an SSM client from the default AWS
// credential chain.
func NewSSMResolverFromEnv(ctx context.Context) (*SSMResolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewSSMResolver(ssm.NewFromConfig(cfg)), nil
}

// GetSecret retrieves a parameter with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// PutSecret overwrites a parameter as a SecureString.
func (r *SSMResolver) PutSecret(ctx context.Context, name, value string) error {
	_, err := r.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("ssm put parameter %q: %w", name, err)
	}
	return nil
}

// EnvResolver reads secrets from environment variables. The parameter name
// is mapped to a variable name by taking the last path segment, uppercasing
// it and replacing hyphens with underscores.
type EnvResolver struct{}

// NewEnvResolver returns a Resolver that reads from environment variables.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

// GetSecret reads from the environment variable derived from name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

// paramNameToEnvVar converts "/pws/refresh-token" to "REFRESH_TOKEN".
func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}
