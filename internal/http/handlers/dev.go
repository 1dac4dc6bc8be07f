package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/seed"
)

// DevHandler exposes dev-only endpoints. It is only constructed when the
// app runs in a dev environment; otherwise its routes are never mounted
// and return 404 like any unknown path.
type DevHandler struct {
	db     *gorm.DB
	seeder *seed.Seeder
}

func NewDevHandler(db *gorm.DB, seeder *seed.Seeder) *DevHandler {
	return &DevHandler{db: db, seeder: seeder}
}

// POST /api/auth/dev-seed
func (dh *DevHandler) Seed(c *gin.Context) {
	if err := dh.seeder.Run(c.Request.Context()); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"ok":       true,
		"email":    seed.DemoEmail,
		"password": seed.DemoPassword,
	})
}

// GET /api/auth/dev-db-check
func (dh *DevHandler) DBCheck(c *gin.Context) {
	ctx := c.Request.Context()

	// current_database()/current_user are Postgres builtins; under the
	// sqlite dev driver they simply report unknown.
	dbName := "unknown"
	dbUser := "unknown"
	dh.db.WithContext(ctx).Raw("SELECT current_database()").Scan(&dbName)
	dh.db.WithContext(ctx).Raw("SELECT current_user").Scan(&dbUser)

	var usersCount int64
	if err := dh.db.WithContext(ctx).Model(&types.User{}).Count(&usersCount).Error; err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var emails []string
	if err := dh.db.WithContext(ctx).Model(&types.User{}).Pluck("email", &emails).Error; err != nil {
		response.RespondServiceError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"current_database": dbName,
		"current_user":     dbUser,
		"users_count":      usersCount,
		"emails":           emails,
	})
}
