package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "15m" and integer nanoseconds are accepted. Only keys present in the
// file (non-zero after decoding) override the current values.
type JsonConfig struct {
	Environment string `json:"environment"`
	HTTPAddr    string `json:"http_addr"`
	GRPCAddr    string `json:"grpc_addr"`
	BaseURL     string `json:"base_url"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`

	DatabaseDSN       string         `json:"database_dsn"`
	DBMaxOpenConns    int            `json:"db_max_open_conns"`
	DBMaxIdleConns    int            `json:"db_max_idle_conns"`
	DBConnMaxLifetime timex.Duration `json:"db_conn_max_lifetime"`
	DBConnectTimeout  timex.Duration `json:"db_connect_timeout"`

	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	OTPLength                   int            `json:"otp_length"`
	OTPValidityDuration         timex.Duration `json:"otp_validity_duration"`

	GoogleClientID             string         `json:"google_client_id"`
	GoogleClientSecret         string         `json:"google_client_secret"`
	GoogleRedirectURL          string         `json:"google_redirect_url"`
	OAuthStateValidityDuration timex.Duration `json:"oauth_state_validity_duration"`
	OAuthExchangeTimeout       timex.Duration `json:"oauth_exchange_timeout"`

	AWSRegion          string `json:"aws_region"`
	AWSEndpoint        string `json:"aws_endpoint"`
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	QueueName          string `json:"queue_name"`
	SecretsName        string `json:"secrets_name"`
	S3Bucket           string `json:"s3_bucket"`

	RedisAddr        string         `json:"redis_addr"`
	RedisPassword    string         `json:"redis_password"`
	RateLimitWindow  timex.Duration `json:"rate_limit_window"`
	RateLimitLogin   int            `json:"rate_limit_login"`
	RateLimitOTPSend int            `json:"rate_limit_otp_send"`
}

// parseJSON loads path (if non-empty) and overlays its values onto cfg.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return err
	}

	setString(&cfg.Environment, c.Environment)
	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCAddr, c.GRPCAddr)
	setString(&cfg.BaseURL, c.BaseURL)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.LogFormat, c.LogFormat)

	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setInt(&cfg.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&cfg.DBMaxIdleConns, c.DBMaxIdleConns)
	setDuration(&cfg.DBConnMaxLifetime, c.DBConnMaxLifetime)
	setDuration(&cfg.DBConnectTimeout, c.DBConnectTimeout)

	setString(&cfg.SecretKey, c.SecretKey)
	setDuration(&cfg.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setInt(&cfg.BcryptCost, c.BcryptCost)
	setInt(&cfg.OTPLength, c.OTPLength)
	setDuration(&cfg.OTPValidityDuration, c.OTPValidityDuration)

	setString(&cfg.GoogleClientID, c.GoogleClientID)
	setString(&cfg.GoogleClientSecret, c.GoogleClientSecret)
	setString(&cfg.GoogleRedirectURL, c.GoogleRedirectURL)
	setDuration(&cfg.OAuthStateValidityDuration, c.OAuthStateValidityDuration)
	setDuration(&cfg.OAuthExchangeTimeout, c.OAuthExchangeTimeout)

	setString(&cfg.AWSRegion, c.AWSRegion)
	setString(&cfg.AWSEndpoint, c.AWSEndpoint)
	setString(&cfg.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&cfg.AWSSecretAccessKey, c.AWSSecretAccessKey)
	setString(&cfg.QueueName, c.QueueName)
	setString(&cfg.SecretsName, c.SecretsName)
	setString(&cfg.S3Bucket, c.S3Bucket)

	setString(&cfg.RedisAddr, c.RedisAddr)
	setString(&cfg.RedisPassword, c.RedisPassword)
	setDuration(&cfg.RateLimitWindow, c.RateLimitWindow)
	setInt(&cfg.RateLimitLogin, c.RateLimitLogin)
	setInt(&cfg.RateLimitOTPSend, c.RateLimitOTPSend)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
