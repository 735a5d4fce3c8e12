// Package secrets overlays sensitive configuration from an AWS Secrets
// Manager secret whose value is a JSON object.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/dmitrijs2005/taskflow/internal/server/config"
)

// API is the subset of *secretsmanager.Client used by Loader.
type API interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Values are the keys recognised in the secret JSON.
type Values struct {
	JWTSecret          string `json:"jwt_secret"`
	GoogleClientSecret string `json:"google_client_secret"`
	DatabaseDSN        string `json:"database_dsn"`
	SMTPPassword       string `json:"smtp_password"`
}

type Loader struct {
	client API
}

func NewLoader(client API) *Loader {
	return &Loader{client: client}
}

func NewLoaderFromConfig(cfg aws.Config) *Loader {
	return NewLoader(secretsmanager.NewFromConfig(cfg))
}

// Fetch reads and decodes the named secret.
func (l *Loader) Fetch(ctx context.Context, name string) (*Values, error) {
	out, err := l.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("get secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q has no string value", name)
	}

	var v Values
	if err := json.Unmarshal([]byte(*out.SecretString), &v); err != nil {
		return nil, fmt.Errorf("decode secret %q: %w", name, err)
	}
	return &v, nil
}

// Apply overwrites cfg fields for every non-empty value in the secret.
func (l *Loader) Apply(ctx context.Context, cfg *config.Config) error {
	if cfg.SecretsName == "" {
		return nil
	}
	v, err := l.Fetch(ctx, cfg.SecretsName)
	if err != nil {
		return err
	}

	if v.JWTSecret != "" {
		cfg.SecretKey = v.JWTSecret
	}
	if v.GoogleClientSecret != "" {
		cfg.GoogleClientSecret = v.GoogleClientSecret
	}
	if v.DatabaseDSN != "" {
		cfg.DatabaseDSN = v.DatabaseDSN
	}
	return nil
}
