package app

import (
	"github.com/tenkit/tenkit/internal/config"
	"github.com/tenkit/tenkit/internal/oauth"
	"github.com/tenkit/tenkit/internal/rate"
	"github.com/tenkit/tenkit/internal/store/core"
)

type Container struct {
	Cfg     *config.Config
	Store   core.Repository
	OAuth   *oauth.Service
	Limiter rate.Limiter
}
