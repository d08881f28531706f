package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/helpdesk-triage/internal/common"
)

// Config is the typed application configuration.
type Config struct {
	Helpdesk HelpdeskConfig
	Catalog  CatalogConfig
	Ledger   LedgerConfig
	Report   ReportConfig
	Email    EmailConfig
	LLM      LLMConfig
	Batch    BatchConfig
}

// HelpdeskConfig locates the ticket API.
type HelpdeskConfig struct {
	URL       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// CatalogConfig locates the service catalog.
type CatalogConfig struct {
	URL     string
	Timeout time.Duration
}

// LLMConfig selects and tunes the classification provider.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	RetryDelay  time.Duration
	MaxRetries  int
	RateLimit   int
	MaxTokens   int
	Temperature float64
}

// BatchConfig tunes the batch orchestrator.
type BatchConfig struct {
	Size          int
	Pace          time.Duration
	ExamplesToLog int
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Format    string
	OutputDir string
	Prefix    string
}

// EmailConfig controls report delivery.
type EmailConfig struct {
	Transport     string
	Host          string
	Username      string
	Password      string
	Sender        string
	Title         string
	CandidateName string
	CodebaseURL   string
	AWSRegion     string
	AWSAccessKey  string
	AWSSecretKey  string
	Recipients    []string
	Timeout       time.Duration
	Port          int
	UseTLS        bool
}

// LedgerConfig locates the delivery ledger database.
type LedgerConfig struct {
	Path string
}

// legacyEnv maps configuration keys to the environment variable names
// used by earlier deployments.
var legacyEnv = map[string]string{
	"helpdesk.url":         "HELPDESK_API_URL",
	"helpdesk.api_key":     "HELPDESK_API_KEY",
	"helpdesk.api_secret":  "HELPDESK_API_SECRET",
	"catalog.url":          "SERVICE_CATALOG_URL",
	"llm.model":            "LLM_MODEL_NAME",
	"llm.api_key":          "GEMINI_API_KEY",
	"batch.size":           "LLM_BATCH_SIZE",
	"email.host":           "EMAIL_SMTP_HOST",
	"email.port":           "EMAIL_SMTP_PORT",
	"email.use_tls":        "EMAIL_USE_TLS",
	"email.username":       "EMAIL_USERNAME",
	"email.password":       "EMAIL_PASSWORD",
	"email.sender":         "EMAIL_SENDER",
	"email.recipients":     "EMAIL_RECIPIENT",
	"email.candidate_name": "CANDIDATE_NAME",
	"ledger.path":          "REPORT_LOG_DB_PATH",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("helpdesk.timeout", 30*time.Second)
	v.SetDefault("catalog.timeout", 30*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.rate_limit", 30)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.temperature", 0.0)

	v.SetDefault("batch.size", 30)
	v.SetDefault("batch.pace", 3*time.Second)
	v.SetDefault("batch.examples_to_log", 3)

	v.SetDefault("report.format", "xlsx")
	v.SetDefault("report.output_dir", "output")
	v.SetDefault("report.prefix", "")

	v.SetDefault("email.transport", "smtp")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.timeout", 30*time.Second)
	v.SetDefault("email.title", "Helpdesk requests classification report")
	v.SetDefault("email.aws_region", "us-east-1")

	v.SetDefault("ledger.path", "report_log.db")
}

// BindLegacyEnv binds the historical environment variable names.
func BindLegacyEnv(v *viper.Viper) error {
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Load builds a Config from v. Call SetDefaults and BindLegacyEnv first.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Helpdesk: HelpdeskConfig{
			URL:       strings.TrimSpace(v.GetString("helpdesk.url")),
			APIKey:    v.GetString("helpdesk.api_key"),
			APISecret: v.GetString("helpdesk.api_secret"),
			Timeout:   v.GetDuration("helpdesk.timeout"),
		},
		Catalog: CatalogConfig{
			URL:     strings.TrimSpace(v.GetString("catalog.url")),
			Timeout: v.GetDuration("catalog.timeout"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Timeout:     v.GetDuration("llm.timeout"),
			RetryDelay:  v.GetDuration("llm.retry_delay"),
			MaxRetries:  v.GetInt("llm.max_retries"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Temperature: v.GetFloat64("llm.temperature"),
		},
		Batch: BatchConfig{
			Size:          v.GetInt("batch.size"),
			Pace:          v.GetDuration("batch.pace"),
			ExamplesToLog: v.GetInt("batch.examples_to_log"),
		},
		Report: ReportConfig{
			Format:    strings.ToLower(v.GetString("report.format")),
			OutputDir: ExpandPath(v.GetString("report.output_dir")),
			Prefix:    v.GetString("report.prefix"),
		},
		Email: EmailConfig{
			Transport:     strings.ToLower(v.GetString("email.transport")),
			Host:          v.GetString("email.host"),
			Port:          v.GetInt("email.port"),
			UseTLS:        v.GetBool("email.use_tls"),
			Username:      v.GetString("email.username"),
			Password:      v.GetString("email.password"),
			Sender:        v.GetString("email.sender"),
			Recipients:    stringList(v.Get("email.recipients")),
			Timeout:       v.GetDuration("email.timeout"),
			Title:         v.GetString("email.title"),
			CandidateName: v.GetString("email.candidate_name"),
			CodebaseURL:   v.GetString("email.codebase_url"),
			AWSRegion:     v.GetString("email.aws_region"),
			AWSAccessKey:  v.GetString("email.aws_access_key"),
			AWSSecretKey:  v.GetString("email.aws_secret_key"),
		},
		Ledger: LedgerConfig{
			Path: ExpandPath(v.GetString("ledger.path")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings every command relies on. Collaborator
// specific settings are checked when the collaborator is built.
func (c *Config) Validate() error {
	if c.Batch.Size <= 0 {
		return fmt.Errorf("%w: batch.size must be positive, got %d", common.ErrInvalidConfig, c.Batch.Size)
	}
	if c.Batch.Pace < 0 {
		return fmt.Errorf("%w: batch.pace must not be negative", common.ErrInvalidConfig)
	}
	switch c.Report.Format {
	case "xlsx", "csv":
	default:
		return fmt.Errorf("%w: report.format %q (want xlsx or csv)", common.ErrInvalidConfig, c.Report.Format)
	}
	switch c.Email.Transport {
	case "smtp", "ses":
	default:
		return fmt.Errorf("%w: email.transport %q (want smtp or ses)", common.ErrInvalidConfig, c.Email.Transport)
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("%w: llm.provider %q", common.ErrInvalidConfig, c.LLM.Provider)
	}
	if strings.TrimSpace(c.Report.OutputDir) == "" {
		return fmt.Errorf("%w: report.output_dir", common.ErrMissingConfig)
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return fmt.Errorf("%w: ledger.path", common.ErrMissingConfig)
	}
	return nil
}

// ValidateDelivery checks the settings needed to email reports.
func (c *Config) ValidateDelivery() error {
	if strings.TrimSpace(c.Email.Sender) == "" {
		return fmt.Errorf("%w: email.sender", common.ErrMissingConfig)
	}
	if len(c.Email.Recipients) == 0 {
		return fmt.Errorf("%w: email.recipients", common.ErrMissingConfig)
	}
	if c.Email.Transport == "smtp" && strings.TrimSpace(c.Email.Host) == "" {
		return fmt.Errorf("%w: email.host", common.ErrMissingConfig)
	}
	return nil
}

// ValidateEnrichment checks the settings needed to fetch and classify new
// tickets.
func (c *Config) ValidateEnrichment() error {
	required := []struct{ key, value string }{
		{"helpdesk.url", c.Helpdesk.URL},
		{"catalog.url", c.Catalog.URL},
		{"llm.api_key", c.LLM.APIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", common.ErrMissingConfig, r.key)
		}
	}
	return nil
}

// stringList accepts a comma separated string or a YAML list.
func stringList(value any) []string {
	var parts []string
	switch v := value.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	}

	var out []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
