package types

import (
	"encoding/json"
	"time"
)

// VMConfig defines the configuration of the bridge as a whole. The pool
// size is fixed at startup and is not hot-reconfigurable.
type VMConfig struct {
	// PoolSize is the number of executor goroutines shared by all runtimes.
	// Zero selects DefaultPoolSize.
	PoolSize int `json:"pool_size"`
}

// RuntimeConfig defines per-runtime limits. It is passed explicitly at
// runtime construction; there is no ambient process-wide state and no
// sharing between runtimes.
type RuntimeConfig struct {
	// MemoryLimitBytes is the heap growth ceiling enforced per operation.
	// Zero means unbounded.
	MemoryLimitBytes Size `json:"memory_limit_bytes"`
	// MaxStackSize caps the engine call stack depth, in the engine's own
	// stack-size units. Zero keeps the engine default.
	MaxStackSize int `json:"max_stack_size"`
	// LogTruncateBytes caps diagnostic text (script console output, error
	// messages and stack traces) before it crosses the boundary. Zero
	// selects DefaultLogTruncateBytes.
	LogTruncateBytes int `json:"log_truncate_bytes"`
	// CheckpointInterval is how often the memory guard samples heap growth
	// while an operation is running. Zero selects DefaultCheckpointInterval.
	CheckpointInterval time.Duration `json:"checkpoint_interval"`
}

const (
	// DefaultPoolSize is used when VMConfig.PoolSize is zero.
	DefaultPoolSize = 4
	// DefaultLogTruncateBytes is used when RuntimeConfig.LogTruncateBytes is zero.
	DefaultLogTruncateBytes = 4096
	// DefaultCheckpointInterval is used when RuntimeConfig.CheckpointInterval is zero.
	DefaultCheckpointInterval = 2 * time.Millisecond
)

// PoolSizeOrDefault resolves the configured pool size.
func (c VMConfig) PoolSizeOrDefault() int {
	if c.PoolSize <= 0 {
		return DefaultPoolSize
	}
	return c.PoolSize
}

// LogTruncateOrDefault resolves the configured truncation ceiling.
func (c RuntimeConfig) LogTruncateOrDefault() int {
	if c.LogTruncateBytes <= 0 {
		return DefaultLogTruncateBytes
	}
	return c.LogTruncateBytes
}

// CheckpointIntervalOrDefault resolves the configured checkpoint interval.
func (c RuntimeConfig) CheckpointIntervalOrDefault() time.Duration {
	if c.CheckpointInterval <= 0 {
		return DefaultCheckpointInterval
	}
	return c.CheckpointInterval
}

// Size is a byte quantity.
type Size struct{ uint64 }

// Bytes returns the quantity in bytes.
func (s Size) Bytes() uint64 {
	return s.uint64
}

func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.uint64)
}

func (s *Size) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.uint64)
}

func NewSize(v uint64) Size {
	return Size{v}
}

func NewSizeKilo(v uint64) Size {
	return Size{v * 1000}
}

func NewSizeKibi(v uint64) Size {
	return Size{v * 1024}
}

func NewSizeMega(v uint64) Size {
	return Size{v * 1000 * 1000}
}

func NewSizeMebi(v uint64) Size {
	return Size{v * 1024 * 1024}
}
