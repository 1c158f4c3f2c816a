package db

import (
	"context"
	"fmt"
	"testing"

	"projet/internal/config"
	"projet/internal/record"
	"projet/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

func TestOpenMigrateSeed(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := Open(sqlite.Open(dsn), true, zap.NewNop())
	require.NoError(t, err)
	defer Close(gdb)

	require.NoError(t, Migrate(gdb, zap.NewNop()))
	assert.True(t, gdb.Migrator().HasTable(&record.Record{}))
	assert.True(t, gdb.Migrator().HasTable(&record.Revision{}))
	assert.True(t, gdb.Migrator().HasColumn(&record.Record{}, "tags"))

	users := user.NewService(user.NewRepository(gdb), zap.NewNop())
	cfg := &config.Config{OwnerName: "Owner", OwnerEmail: "owner@example.com", OwnerPassword: "code"}

	first, err := SeedOwner(context.Background(), users, cfg, zap.NewNop())
	require.NoError(t, err)
	second, err := SeedOwner(context.Background(), users, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
