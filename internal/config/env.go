package config

import (
	"log/slog"
	"os"
)

// Environment variable names for overrides.
const (
	EnvConfig             = "ANAPLAN_GO_CONFIG"
	EnvWorkspaceID        = "ANAPLAN_WORKSPACE_ID"
	EnvModelID            = "ANAPLAN_MODEL_ID"
	EnvPassword           = "ANAPLAN_PASSWORD"
	EnvPrivateKeyPassword = "ANAPLAN_PRIVATE_KEY_PASSWORD"
	EnvClientSecret       = "ANAPLAN_CLIENT_SECRET"
	EnvToken              = "ANAPLAN_TOKEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // ANAPLAN_GO_CONFIG: override config file path
	WorkspaceID string
	ModelID     string
	Secrets     Secrets
}

// Secrets are credentials that only ever come from the environment.
type Secrets struct {
	Password           string
	PrivateKeyPassword string
	ClientSecret       string
	Token              string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. Secret values are never logged, only their presence.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		WorkspaceID: os.Getenv(EnvWorkspaceID),
		ModelID:     os.Getenv(EnvModelID),
		Secrets: Secrets{
			Password:           os.Getenv(EnvPassword),
			PrivateKeyPassword: os.Getenv(EnvPrivateKeyPassword),
			ClientSecret:       os.Getenv(EnvClientSecret),
			Token:              os.Getenv(EnvToken),
		},
	}

	logger.Debug("read environment overrides",
		slog.String("config_path", env.ConfigPath),
		slog.String("workspace_id", env.WorkspaceID),
		slog.String("model_id", env.ModelID),
		slog.Bool("password_set", env.Secrets.Password != ""),
		slog.Bool("token_set", env.Secrets.Token != ""),
	)

	return env
}
