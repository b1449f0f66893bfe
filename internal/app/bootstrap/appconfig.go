// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS and logging; everything the work-order service itself needs
// lives here and is passed to the lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: confinedspace-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Image storage configuration
	StorageType      string // "local" or "s3"
	StorageLocalPath string // Directory for local uploads (e.g., "./uploads")
	StorageLocalURL  string // URL prefix local uploads are served under (e.g., "/files")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Bucket    string
	StorageS3Region    string
	StorageS3Prefix    string // Key prefix (e.g., "confinedspace/")
	StorageS3PublicURL string // Base URL for object links; blank means the bucket's virtual-host URL

	// Browser origins allowed to call the API with credentials.
	CORSAllowedOrigins []string

	// Bootstrap admin, created or promoted at startup when AdminEmail is set.
	AdminEmail    string
	AdminPassword string

	// Audit trail destinations per category: "all", "db", "log" or "off".
	AuditLogAuth  string
	AuditLogAdmin string

	// Audit events older than this are deleted hourly; zero keeps them forever.
	AuditRetention time.Duration

	// Database deadlines; zero keeps the package defaults.
	Timeouts TimeoutConfig

	// Listing limits
	ListMaxLimit  int // Largest page size GET /workorders accepts
	ExportMaxRows int // Row cap for GET /workorders/export.xlsx
}

// TimeoutConfig mirrors timeouts.Config in config form.
type TimeoutConfig struct {
	Ping, Short, Medium, Long, Batch time.Duration
}
