package config

import (
	"encoding/json"
	"os"

	"github.com/sanguetsu/ikebana/internal/flagx"
	"github.com/sanguetsu/ikebana/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted.
// Keys that are absent keep the value already present in Config.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`

	S3AccessKey      string `json:"s3_access_key"`
	S3SecretKey      string `json:"s3_secret_key"`
	S3Region         string `json:"s3_region"`
	S3BaseEndpoint   string `json:"s3_base_endpoint"`
	S3UsersBucket    string `json:"s3_users_bucket"`
	S3ContentBucket  string `json:"s3_content_bucket"`
	S3UsersBaseURL   string `json:"s3_users_base_url"`
	S3ContentBaseURL string `json:"s3_content_base_url"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`
	SiteURL      string `json:"site_url"`

	OAuthClientID     string `json:"oauth_client_id"`
	OAuthClientSecret string `json:"oauth_client_secret"`
	OAuthDiscoveryURL string `json:"oauth_discovery_url"`
	OAuthRedirectURL  string `json:"oauth_redirect_url"`

	RedisAddr string `json:"redis_addr"`
	LogFormat string `json:"log_format"`
}

// parseJson overlays values from the file named by -c / -config.
// Without the flag nothing is loaded. An unreadable or invalid file panics,
// since the server cannot start with a half-applied configuration.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}

	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3UsersBucket, c.S3UsersBucket)
	setString(&config.S3ContentBucket, c.S3ContentBucket)
	setString(&config.S3UsersBaseURL, c.S3UsersBaseURL)
	setString(&config.S3ContentBaseURL, c.S3ContentBaseURL)

	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort > 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.SiteURL, c.SiteURL)

	setString(&config.OAuthClientID, c.OAuthClientID)
	setString(&config.OAuthClientSecret, c.OAuthClientSecret)
	setString(&config.OAuthDiscoveryURL, c.OAuthDiscoveryURL)
	setString(&config.OAuthRedirectURL, c.OAuthRedirectURL)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
