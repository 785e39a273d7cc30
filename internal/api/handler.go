package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"github.com/uarix/WashWise/internal/ledger"
	"github.com/uarix/WashWise/internal/logger"
	"github.com/uarix/WashWise/internal/snapshot"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	snapshots *snapshot.Store
	usage     ledger.Ledger
	db        *gorm.DB
	webpush   *webpush.Options
	log       *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(snapshots *snapshot.Store, usage ledger.Ledger, db *gorm.DB,
	webpushOptions *webpush.Options, log *logger.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		usage:     usage,
		db:        db,
		webpush:   webpushOptions,
		log:       log,
	}
}
