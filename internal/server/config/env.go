package config

import (
	"github.com/spf13/viper"
)

// envBindings maps config keys to environment variables. The first name is
// the canonical IKEBANA_* variable; later ones are legacy names still set by
// existing deployments and are consulted in order.
var envBindings = map[string][]string{
	"http_addr":                       {"IKEBANA_HTTP_ADDR"},
	"database_dsn":                    {"IKEBANA_DATABASE_DSN", "DATABASE_URL"},
	"secret_key":                      {"IKEBANA_SECRET_KEY", "APP_SECRET_KEY"},
	"access_token_validity_duration":  {"IKEBANA_ACCESS_TOKEN_VALIDITY"},
	"refresh_token_validity_duration": {"IKEBANA_REFRESH_TOKEN_VALIDITY"},
	"s3_access_key":                   {"IKEBANA_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
	"s3_secret_key":                   {"IKEBANA_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
	"s3_region":                       {"IKEBANA_S3_REGION", "AWS_REGION"},
	"s3_base_endpoint":                {"IKEBANA_S3_BASE_ENDPOINT"},
	"smtp_host":                       {"IKEBANA_SMTP_HOST"},
	"smtp_port":                       {"IKEBANA_SMTP_PORT"},
	"smtp_user":                       {"IKEBANA_SMTP_USER", "EMAIL_USER"},
	"smtp_password":                   {"IKEBANA_SMTP_PASSWORD", "EMAIL_PASSWORD"},
	"site_url":                        {"IKEBANA_SITE_URL"},
	"oauth_client_id":                 {"IKEBANA_OAUTH_CLIENT_ID", "GOOGLE_CLIENT_ID"},
	"oauth_client_secret":             {"IKEBANA_OAUTH_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"},
	"oauth_discovery_url":             {"IKEBANA_OAUTH_DISCOVERY_URL", "GOOGLE_DISCOVERY_URL"},
	"oauth_redirect_url":              {"IKEBANA_OAUTH_REDIRECT_URL"},
	"redis_addr":                      {"IKEBANA_REDIS_ADDR"},
	"log_format":                      {"IKEBANA_LOG_FORMAT"},
}

// parseEnv overlays values found in the process environment.
func parseEnv(config *Config) {
	v := viper.New()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	strs := map[string]*string{
		"http_addr":           &config.HTTPAddr,
		"database_dsn":        &config.DatabaseDSN,
		"secret_key":          &config.SecretKey,
		"s3_access_key":       &config.S3AccessKey,
		"s3_secret_key":       &config.S3SecretKey,
		"s3_region":           &config.S3Region,
		"s3_base_endpoint":    &config.S3BaseEndpoint,
		"smtp_host":           &config.SMTPHost,
		"smtp_user":           &config.SMTPUser,
		"smtp_password":       &config.SMTPPassword,
		"site_url":            &config.SiteURL,
		"oauth_client_id":     &config.OAuthClientID,
		"oauth_client_secret": &config.OAuthClientSecret,
		"oauth_discovery_url": &config.OAuthDiscoveryURL,
		"oauth_redirect_url":  &config.OAuthRedirectURL,
		"redis_addr":          &config.RedisAddr,
		"log_format":          &config.LogFormat,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			setString(dst, v.GetString(key))
		}
	}

	if v.IsSet("smtp_port") && v.GetInt("smtp_port") > 0 {
		config.SMTPPort = v.GetInt("smtp_port")
	}
	if d := v.GetDuration("access_token_validity_duration"); d > 0 {
		config.AccessTokenValidityDuration = d
	}
	if d := v.GetDuration("refresh_token_validity_duration"); d > 0 {
		config.RefreshTokenValidityDuration = d
	}
}
