package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeConstructors(t *testing.T) {
	assert.Equal(t, uint64(1), NewSize(1).Bytes())
	assert.Equal(t, uint64(3_000), NewSizeKilo(3).Bytes())
	assert.Equal(t, uint64(3*1024), NewSizeKibi(3).Bytes())
	assert.Equal(t, uint64(3_000_000), NewSizeMega(3).Bytes())
	assert.Equal(t, uint64(3*1024*1024), NewSizeMebi(3).Bytes())
}

func TestSizeJSON(t *testing.T) {
	bz, err := json.Marshal(NewSizeKibi(64))
	require.NoError(t, err)
	assert.Equal(t, "65536", string(bz))

	var s Size
	require.NoError(t, json.Unmarshal([]byte("1024"), &s))
	assert.Equal(t, uint64(1024), s.Bytes())
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, DefaultPoolSize, VMConfig{}.PoolSizeOrDefault())
	assert.Equal(t, 8, VMConfig{PoolSize: 8}.PoolSizeOrDefault())

	var rc RuntimeConfig
	assert.Equal(t, DefaultLogTruncateBytes, rc.LogTruncateOrDefault())
	assert.Equal(t, DefaultCheckpointInterval, rc.CheckpointIntervalOrDefault())

	rc = RuntimeConfig{LogTruncateBytes: 100, CheckpointInterval: time.Second}
	assert.Equal(t, 100, rc.LogTruncateOrDefault())
	assert.Equal(t, time.Second, rc.CheckpointIntervalOrDefault())
}
