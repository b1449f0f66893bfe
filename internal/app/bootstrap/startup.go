// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/policy/orderpolicy"
	"github.com/dalemusser/confinedspace/internal/app/store/audit"
	userstore "github.com/dalemusser/confinedspace/internal/app/store/users"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/app/system/workers"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.Timeouts.Ping,
		Short:  appCfg.Timeouts.Short,
		Medium: appCfg.Timeouts.Medium,
		Long:   appCfg.Timeouts.Long,
		Batch:  appCfg.Timeouts.Batch,
	})

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	if appCfg.AuditRetention > 0 {
		auditRetention = workers.NewAuditRetention(audit.New(deps.MongoDatabase), logger, time.Hour, appCfg.AuditRetention)
		auditRetention.Start()
	}
	return nil
}

// auditRetention is stopped in Shutdown.
var auditRetention *workers.AuditRetention

// ensureAdmin makes sure the configured account exists with the admin role
// and is active. An existing account keeps its password; a new one needs
// password.
func ensureAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		if password == "" {
			return errors.New("admin_password is required to create the admin account")
		}
		created, err := users.Create(ctx, models.User{
			Email:     email,
			FirstName: "Site",
			LastName:  "Admin",
			Role:      orderpolicy.RoleAdmin,
		}, password)
		if err != nil {
			return err
		}
		logger.Info("created admin user", zap.String("email", created.Email))
		return nil
	case err != nil:
		return err
	}

	if u.Role != orderpolicy.RoleAdmin {
		if err := users.UpdateRole(ctx, u.ID, orderpolicy.RoleAdmin); err != nil {
			return err
		}
		logger.Info("promoted user to admin", zap.String("email", u.Email), zap.String("previous_role", u.Role))
	}
	if u.Status != userstore.StatusActive {
		if err := users.SetStatus(ctx, u.ID, userstore.StatusActive); err != nil {
			return err
		}
		logger.Info("re-enabled admin user", zap.String("email", u.Email))
	}
	return nil
}
