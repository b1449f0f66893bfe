// internal/app/bootstrap/config.go
package bootstrap

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// minProdSessionKey is the shortest session key accepted in prod.
const minProdSessionKey = 32

// appConfigKeys defines the configuration keys for the service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CONFINEDSPACE_MONGO_URI, CONFINEDSPACE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "confined_space", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},
	{Name: "session_key", Default: "", Desc: "Session signing key (required in prod, at least 32 characters)"},
	{Name: "session_name", Default: "confinedspace-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 8h, 24h)"},

	// Image storage
	{Name: "storage_type", Default: StorageLocal, Desc: "Image storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Directory for locally stored images"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local images"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public base URL for stored objects (e.g., a CDN)"},

	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated browser origins allowed to call the API"},

	// Bootstrap admin
	{Name: "admin_email", Default: "", Desc: "Email of the admin user (promotes/creates on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password for the admin user when it has to be created"},

	// Audit trail
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "0", Desc: "Delete audit events older than this (e.g., 2160h); 0 keeps them"},

	// Database deadlines
	{Name: "timeout_ping", Default: "", Desc: "Health-check ping timeout (default 2s)"},
	{Name: "timeout_short", Default: "", Desc: "Single-document timeout (default 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "List and write timeout (default 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Multi-step write timeout (default 30s)"},
	{Name: "timeout_batch", Default: "", Desc: "Bulk, export and upload timeout (default 60s)"},

	{Name: "list_max_limit", Default: 100, Desc: "Largest page size for work-order lists"},
	{Name: "export_max_rows", Default: 5000, Desc: "Row cap for spreadsheet exports"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CONFINEDSPACE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
//
// Outside prod an empty session key is replaced with a random one, so
// sessions do not survive a restart.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CONFINEDSPACE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		StorageType:        strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath:   appValues.String("storage_local_path"),
		StorageLocalURL:    appValues.String("storage_local_url"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3PublicURL: appValues.String("storage_s3_public_url"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),

		AuditLogAuth:   strings.ToLower(strings.TrimSpace(appValues.String("audit_log_auth"))),
		AuditLogAdmin:  strings.ToLower(strings.TrimSpace(appValues.String("audit_log_admin"))),
		AuditRetention: appValues.Duration("audit_retention", 0),

		Timeouts: TimeoutConfig{
			Ping:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
			Batch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),
		},

		ListMaxLimit:  appValues.Int("list_max_limit"),
		ExportMaxRows: appValues.Int("export_max_rows"),
	}

	if appCfg.SessionKey == "" && coreCfg.Env != "prod" {
		appCfg.SessionKey = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		logger.Warn("session_key not set; generated a random key for this run",
			zap.String("env", coreCfg.Env))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return errors.New("mongo_database is required")
	}

	if coreCfg.Env == "prod" && len(appCfg.SessionKey) < minProdSessionKey {
		return fmt.Errorf("session_key must be at least %d characters in prod", minProdSessionKey)
	}

	switch appCfg.StorageType {
	case StorageLocal:
		if appCfg.StorageLocalPath == "" || !strings.HasPrefix(appCfg.StorageLocalURL, "/") {
			return errors.New("local storage needs storage_local_path and a storage_local_url starting with /")
		}
	case StorageS3:
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return errors.New("s3 storage requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("storage_type must be %q or %q, got %q", StorageLocal, StorageS3, appCfg.StorageType)
	}

	for key, mode := range map[string]string{
		"audit_log_auth":  appCfg.AuditLogAuth,
		"audit_log_admin": appCfg.AuditLogAdmin,
	} {
		if mode != "" && !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, mode)
		}
	}

	if appCfg.AuditRetention < 0 {
		return errors.New("audit_retention must not be negative")
	}

	if appCfg.AdminEmail != "" && appCfg.AdminPassword != "" && len(appCfg.AdminPassword) < 8 {
		return errors.New("admin_password must be at least 8 characters")
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
