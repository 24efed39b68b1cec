package middleware

import (
	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/events"
	"github.com/gamedjinn/sync/internal/logger"
)

type Middleware struct {
	DB          database.DB
	Config      config.Config
	log         logger.Logger
	eventBus    *events.EventBus
	authEnabled bool
}

// New builds the shared HTTP middleware set. Per spec §6.3, ADMIN_EMAIL and
// ADMIN_PASSWORD both being set is the switch for whether auth is enforced
// at all on this deployment; this core has no multi-user session system, so
// when enabled it checks a single shared secret rather than identities.
func New(
	db database.DB,
	eventBus *events.EventBus,
	config config.Config,
) Middleware {
	return Middleware{
		DB:          db,
		Config:      config,
		log:         logger.New("middleware"),
		eventBus:    eventBus,
		authEnabled: config.AdminEmail != "" && config.AdminPassword != "",
	}
}
