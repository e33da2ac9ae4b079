package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"musicshare/config"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := &config.Config{DBUser: "music", DBPassword: "pw", DBHost: "db", DBPort: "3307", DBName: "catalog"}

	dsn := BuildDSN(cfg)
	assert.True(t, strings.HasPrefix(dsn, "music:pw@tcp(db:3307)/catalog?"))

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "catalog", parsed.DBName)
	assert.Equal(t, "db:3307", parsed.Addr)
}

type flakyDB struct {
	failures int
	calls    int
}

func (f *flakyDB) PingContext(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestPingWithRetry(t *testing.T) {
	db := &flakyDB{failures: 2}
	require.NoError(t, pingWithRetry(context.Background(), db, 3, time.Millisecond))
	assert.Equal(t, 3, db.calls)

	db = &flakyDB{failures: 5}
	err := pingWithRetry(context.Background(), db, 1, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, db.calls)
}
