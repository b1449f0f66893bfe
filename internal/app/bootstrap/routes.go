// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	auditlogfeature "github.com/dalemusser/confinedspace/internal/app/features/auditlog"
	healthfeature "github.com/dalemusser/confinedspace/internal/app/features/health"
	locationsfeature "github.com/dalemusser/confinedspace/internal/app/features/locations"
	loginfeature "github.com/dalemusser/confinedspace/internal/app/features/login"
	systemusersfeature "github.com/dalemusser/confinedspace/internal/app/features/systemusers"
	workordersfeature "github.com/dalemusser/confinedspace/internal/app/features/workorders"
	"github.com/dalemusser/confinedspace/internal/app/store/audit"
	userstore "github.com/dalemusser/confinedspace/internal/app/store/users"
	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/dalemusser/confinedspace/internal/app/system/httplog"
	"github.com/dalemusser/confinedspace/internal/app/system/ratelimit"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// loginLimiter is stopped in Shutdown.
var loginLimiter *ratelimit.LoginLimiter

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Every route answers JSON; the SPA on
// the allowed origins calls it with the session cookie.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()

	r.Use(httplog.RequestID(coreCfg.Env != "prod"))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", httplog.HeaderRequestID},
		ExposedHeaders:   []string{"Location", "Content-Disposition", httplog.HeaderRequestID, "X-Export-Truncated"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(httplog.Logger(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Message(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.StorageType, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Locally stored work-order images
	if appCfg.StorageType == StorageLocal {
		prefix := strings.TrimRight(appCfg.StorageLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.StorageLocalPath))
	}

	// Authentication
	loginLimiter = ratelimit.NewLoginLimiter()
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, loginLimiter, auditLogger, logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler, sessionMgr))

	// User administration
	usersHandler := systemusersfeature.NewHandler(deps.MongoDatabase, auditLogger, logger)
	r.Mount("/users", systemusersfeature.Routes(usersHandler, sessionMgr))

	// Sites and buildings
	locationsHandler := locationsfeature.NewHandler(deps.MongoDatabase, auditLogger, logger)
	r.Mount("/locations", locationsfeature.Routes(locationsHandler, sessionMgr))

	// Work orders
	ordersHandler := workordersfeature.NewHandler(deps.MongoDatabase, deps.Blobs, workordersfeature.Limits{
		ListMax:   appCfg.ListMaxLimit,
		ExportMax: appCfg.ExportMaxRows,
	}, auditLogger, logger)
	r.Mount("/workorders", workordersfeature.Routes(ordersHandler, sessionMgr))

	// Audit trail
	auditHandler := auditlogfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
