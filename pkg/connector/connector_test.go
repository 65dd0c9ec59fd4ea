package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/config"
)

func Test_ConnectorFactory(t *testing.T) {
	t.Run("Should require config and logger", func(t *testing.T) {
		_, err := NewConnectorFactory(nil, zap.NewNop())
		require.Error(t, err)
		_, err = NewConnectorFactory(&config.Config{}, nil)
		require.Error(t, err)
	})

	t.Run("Should refuse connectors that are not configured", func(t *testing.T) {
		f, err := NewConnectorFactory(&config.Config{}, zap.NewNop())
		require.NoError(t, err)

		_, err = f.CreateSnowflakeConnector(context.Background())
		assert.ErrorContains(t, err, "snowflake is not configured")
		_, err = f.CreatePostgresConnector(context.Background())
		assert.ErrorContains(t, err, "not configured")
	})
}

func Test_InsertBatchSize(t *testing.T) {
	assert.Equal(t, 1000, insertBatchSize(0, 8))
	assert.Equal(t, 500, insertBatchSize(500, 8))
	assert.Equal(t, maxBindParams/9, insertBatchSize(100000, 9))
}

func Test_BuildCreateTable(t *testing.T) {
	got := BuildCreateTable(`"public"."cars"`, []string{`"id" BIGSERIAL`, `"make" TEXT NULL`}, `"id"`)
	assert.Equal(t, "CREATE TABLE \"public\".\"cars\" (\n\t\"id\" BIGSERIAL,\n\t\"make\" TEXT NULL,\n\tPRIMARY KEY (\"id\")\n)", got)

	got = BuildCreateTable(`"t"`, []string{`"a" TEXT`}, "")
	assert.Equal(t, "CREATE TABLE \"t\" (\n\t\"a\" TEXT\n)", got)
}
