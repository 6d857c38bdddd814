package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string

		Server    ServerConfig
		Database  DatabaseConfig
		Source    SourceConfig
		Relatorio RelatorioConfig
		Alert     AlertConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// SourceConfig tells where grade records are loaded from.
	SourceConfig struct {
		Kind            string // "database" | "api"
		BaseURL         string
		Timeout         time.Duration
		MaxRetries      int
		RefreshSchedule string // cron spec
		StaleAfter      time.Duration
	}

	RelatorioConfig struct {
		CacheSize int
	}

	AlertConfig struct {
		Schedule       string // cron spec; empty disables the scheduled digest
		Recipients     []string
		TenantID       int
		AcademicYearID int
	}
)

const (
	SourceDatabase = "database"
	SourceAPI      = "api"
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// NewConfig loads the configuration from the environment (and config/.env.<env> if it exists).
// Every key can be overridden with <ENV>_<KEY>, e.g. PROD_DATABASEPASSWORD.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "colaboraEdu")
	v.SetDefault("secretKey", "k2v#9dm!x0qz-colaboraedu-dev-only-7ru@1p")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "colaboraEdu")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseUrl", "http://localhost:5173")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverDisableReqLogs", false)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseName", "colaboraedu")
	v.SetDefault("databaseUser", "colaboraedu")
	v.SetDefault("databasePassword", "colaboraedu")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseDisableTls", true)

	v.SetDefault("sourceKind", SourceDatabase)
	v.SetDefault("sourceBaseUrl", "http://localhost:5000/api/v1")
	v.SetDefault("sourceTimeout", 15*time.Second)
	v.SetDefault("sourceMaxRetries", 3)
	v.SetDefault("sourceRefreshSchedule", "@every 5m")
	v.SetDefault("sourceStaleAfter", 5*time.Minute)

	v.SetDefault("relatorioCacheSize", 256)

	v.SetDefault("alertSchedule", "")
	v.SetDefault("alertRecipients", "")
	v.SetDefault("alertTenantId", 0)
	v.SetDefault("alertAcademicYearId", 0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		Env:            env,
		Build:          v.GetString("build"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		FrontendBaseURL: v.GetString("frontendBaseUrl"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Address:         v.GetString("serverAddress"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			DisableReqLogs:  v.GetBool("serverDisableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetInt("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTls"),
		},
		Source: SourceConfig{
			Kind:            CleanString(v.GetString("sourceKind"), true /* lower */),
			BaseURL:         strings.TrimRight(v.GetString("sourceBaseUrl"), "/"),
			Timeout:         v.GetDuration("sourceTimeout"),
			MaxRetries:      v.GetInt("sourceMaxRetries"),
			RefreshSchedule: v.GetString("sourceRefreshSchedule"),
			StaleAfter:      v.GetDuration("sourceStaleAfter"),
		},
		Relatorio: RelatorioConfig{
			CacheSize: v.GetInt("relatorioCacheSize"),
		},
		Alert: AlertConfig{
			Schedule:       v.GetString("alertSchedule"),
			Recipients:     SplitList(v.GetString("alertRecipients")),
			TenantID:       v.GetInt("alertTenantId"),
			AcademicYearID: v.GetInt("alertAcademicYearId"),
		},
	}
}

// Validate checks the settings the services cannot start without.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceDatabase, SourceAPI:
	default:
		return NewValidationError(fmt.Errorf("unknown source kind %q", c.Source.Kind),
			FieldError{Field: "sourceKind", Error: "must be one of: database, api"})
	}
	if c.Source.Kind == SourceAPI && c.Source.BaseURL == "" {
		return NewValidationError(fmt.Errorf("missing source base url"),
			FieldError{Field: "sourceBaseUrl", Error: "this field is required"})
	}
	if c.Relatorio.CacheSize <= 0 {
		return NewValidationError(fmt.Errorf("invalid cache size %d", c.Relatorio.CacheSize),
			FieldError{Field: "relatorioCacheSize", Error: "must be greater than 0"})
	}
	return nil
}
