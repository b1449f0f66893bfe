// internal/app/features/systemusers/handler.go
package systemusers

import (
	userstore "github.com/dalemusser/confinedspace/internal/app/store/users"
	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves user administration under /users.
type Handler struct {
	Users *userstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a users Handler bound to db.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		Audit: audit,
		Log:   logger,
	}
}
