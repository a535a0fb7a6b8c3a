/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/grouptrip/internal/telemetry"
)

const startTimeKey = "grouptrip:start_time"

type registerFunc func(name string, fn func(*gorm.DB)) error

// RegisterCallbacks times every CRUD operation into the database metrics.
func RegisterCallbacks(database *gorm.DB) error {
	cb := database.Callback()
	hooks := []struct {
		op            string
		before, after registerFunc
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}

	for _, h := range hooks {
		if err := h.before("telemetry:before_"+h.op, markStart); err != nil {
			return err
		}
		if err := h.after("telemetry:after_"+h.op, observe(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startTimeKey, time.Now())
}

func observe(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}

		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "query_error").Inc()
		}
	}
}

// UpdateConnectionMetrics samples the connection pool size.
func UpdateConnectionMetrics(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	telemetry.DatabaseConnectionsActive.Set(float64(sqlDB.Stats().OpenConnections))
}
