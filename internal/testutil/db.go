// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database and migrates models into it.
// A single connection keeps sqlite from reporting lock errors under concurrent tests.
func NewDB(t testing.TB, migrations ...func(*gorm.DB) error) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	gl := logger.NewGormLogger()
	gl.LogLevel = gormlogger.Error
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gl})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, migrate := range migrations {
		require.NoError(t, migrate(db))
	}
	return db
}

// Clock is a settable time source.
type Clock struct {
	now atomic.Pointer[time.Time]
}

// NewClock starts a clock at start.
func NewClock(start time.Time) *Clock {
	c := &Clock{}
	c.Set(start)
	return c
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	return *c.now.Load()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.now.Store(&t)
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}
