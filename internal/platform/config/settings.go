package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings is the service configuration assembled from the environment.
type Settings struct {
	Port          string        `validate:"required,numeric"`
	OriginURL     string        `validate:"required,url"`
	OriginTimeout time.Duration `validate:"gte=0"`

	StoreDriver      string        `validate:"required,oneof=memory sqlite postgres"`
	StoreName        string        `validate:"required,store_name"`
	SQLitePath       string        `validate:"required_if=StoreDriver sqlite"`
	PostgresDSN      string        `validate:"required_if=StoreDriver postgres"`
	PostgresMaxConns int           `validate:"gte=1"`
	SessionTTL       time.Duration `validate:"gte=0"`

	AdCatalog       []string `validate:"min=1,dive,required"`
	AdBreakMarker   string   `validate:"required"`
	AdBreakTemplate string   `validate:"required,contains={UUID}"`
	AdSegmentPrefix string   `validate:"required,startswith=/"`
	FallbackAd      string

	BindMode    string        `validate:"required,oneof=async sync"`
	BindTimeout time.Duration `validate:"gt=0"`

	LogLevel    string `validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat   string `validate:"omitempty,oneof=json text"`
	MetricsPath string `validate:"required,startswith=/"`
}

var storeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// FromEnv reads Settings from the environment, applying defaults, and
// validates the result. templateDefault and catalogDefault are used when the
// corresponding variables are unset.
func FromEnv(templateDefault string, catalogDefault []string) (*Settings, error) {
	s := &Settings{
		Port:             GetEnv("PORT", "8080"),
		OriginURL:        GetEnv("ORIGIN_URL", "http://localhost:8000"),
		OriginTimeout:    GetEnvDuration("ORIGIN_TIMEOUT", 10*time.Second),
		StoreDriver:      strings.ToLower(GetEnv("STORE_DRIVER", "memory")),
		StoreName:        GetEnv("STORE_NAME", "uuids"),
		SQLitePath:       GetEnv("SQLITE_PATH", "adinsert.db"),
		PostgresDSN:      GetEnv("POSTGRES_DSN", ""),
		PostgresMaxConns: GetEnvInt("POSTGRES_MAX_CONNS", 25),
		SessionTTL:       GetEnvDuration("SESSION_TTL", 0),
		AdCatalog:        GetEnvList("AD_CATALOG", catalogDefault),
		AdBreakMarker:    GetEnv("AD_BREAK_MARKER", "#--INSERT AD--"),
		AdBreakTemplate:  templateDefault,
		AdSegmentPrefix:  GetEnv("AD_SEGMENT_PREFIX", "/ads"),
		FallbackAd:       GetEnv("FALLBACK_AD", ""),
		BindMode:         strings.ToLower(GetEnv("BIND_MODE", "async")),
		BindTimeout:      GetEnvDuration("BIND_TIMEOUT", 5*time.Second),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		LogFormat:        GetEnv("LOG_FORMAT", "json"),
		MetricsPath:      GetEnv("METRICS_PATH", "/metrics"),
	}

	if path := os.Getenv("AD_BREAK_TEMPLATE_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read ad break template: %w", err)
		}
		s.AdBreakTemplate = strings.TrimRight(string(b), "\r\n")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks Settings against its struct tags.
func (s *Settings) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("store_name", validateStoreName); err != nil {
		return fmt.Errorf("failed to register store_name validator: %w", err)
	}
	if err := v.Struct(s); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// validateStoreName accepts names usable verbatim as a SQL table name.
func validateStoreName(fl validator.FieldLevel) bool {
	return storeNamePattern.MatchString(fl.Field().String())
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if e.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s: failed %s=%s", e.Namespace(), e.Tag(), e.Param()))
			continue
		}
		messages = append(messages, fmt.Sprintf("%s: failed %s", e.Namespace(), e.Tag()))
	}
	return errors.New("invalid configuration: " + strings.Join(messages, "; "))
}
