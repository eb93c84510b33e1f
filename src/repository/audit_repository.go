package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/model"
)

// AuditRepository handles persistence of audit log entries: forced
// liquidations, skipped rounds, margin-level warnings. Adapted from the
// teacher's TransactionLog idiom, retargeted at participants/competitions.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository() *AuditRepository {
	logger.WithField("component", "AuditRepository").Info("Creating new AuditRepository with MainDB")
	return &AuditRepository{db: database.MainDB}
}

func (r *AuditRepository) WithDB(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
