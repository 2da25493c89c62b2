package service

import (
	"gorm.io/gorm"

	"github.com/flokiorg/userhub/config"
	"github.com/flokiorg/userhub/kvstore"
)

type Service interface {
	Shutdown()

	GetConfig() config.Config
	GetStore() kvstore.Store
	// nil unless the sqlite store backend is used
	GetDB() *gorm.DB
}
