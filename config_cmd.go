package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anaplan-sdk/anaplan-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

// shownConfig is the JSON form of config show. Secrets appear only as
// presence flags.
type shownConfig struct {
	ConfigPath        string            `json:"config_path"`
	WorkspaceID       string            `json:"workspace_id"`
	ModelID           string            `json:"model_id"`
	Timeout           string            `json:"timeout"`
	ConnectTimeout    string            `json:"connect_timeout"`
	RetryCount        int               `json:"retry_count"`
	Backoff           string            `json:"backoff"`
	BackoffFactor     float64           `json:"backoff_factor"`
	PageSize          int               `json:"page_size"`
	StatusPollDelay   string            `json:"status_poll_delay"`
	UploadChunkSize   int64             `json:"upload_chunk_size"`
	BatchSize         int               `json:"batch_size"`
	AllowFileCreation bool              `json:"allow_file_creation"`
	Concurrency       string            `json:"concurrency"`
	LogLevel          string            `json:"log_level"`
	Auth              config.AuthConfig `json:"auth"`
	SecretsSet        map[string]bool   `json:"secrets_set"`
}

func newShownConfig(r *config.Resolved) shownConfig {
	return shownConfig{
		ConfigPath:        r.ConfigPath,
		WorkspaceID:       r.WorkspaceID,
		ModelID:           r.ModelID,
		Timeout:           r.Timeout.String(),
		ConnectTimeout:    r.ConnectTimeout.String(),
		RetryCount:        r.RetryCount,
		Backoff:           r.Backoff.String(),
		BackoffFactor:     r.BackoffFactor,
		PageSize:          r.PageSize,
		StatusPollDelay:   r.StatusPollDelay.String(),
		UploadChunkSize:   r.UploadChunkSize,
		BatchSize:         r.BatchSize,
		AllowFileCreation: r.AllowFileCreation,
		Concurrency:       r.Concurrency,
		LogLevel:          r.LogLevel,
		Auth:              r.Auth,
		SecretsSet: map[string]bool{
			config.EnvPassword:           r.Secrets.Password != "",
			config.EnvPrivateKeyPassword: r.Secrets.PrivateKeyPassword != "",
			config.EnvClientSecret:       r.Secrets.ClientSecret != "",
			config.EnvToken:              r.Secrets.Token != "",
		},
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Flags.JSON {
		return printJSON(os.Stdout, newShownConfig(cc.Cfg))
	}

	return config.RenderEffective(cc.Cfg, os.Stdout)
}
