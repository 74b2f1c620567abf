package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/EventIndexor/internal/common"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/pkg/types"
	"github.com/invopop/jsonschema"
)

// Contract families understood by the event router.
const (
	FamilyPosition  = "position"
	FamilyScan      = "scan"
	FamilyDeath     = "death"
	FamilyMarket    = "market"
	FamilyToken     = "token"
	FamilyFee       = "fee"
	FamilyEmissions = "emissions"
)

// Recovery modes.
const (
	RecoveryNone        = ""
	RecoveryGenesis     = "genesis"
	RecoveryReindexFrom = "reindex_from"
)

// Families lists every supported contract family.
var Families = []string{
	FamilyPosition, FamilyScan, FamilyDeath, FamilyMarket, FamilyToken, FamilyFee, FamilyEmissions,
}

// Config represents the complete configuration of the event indexer.
type Config struct {
	// Indexer contains the ingestion loop configuration
	Indexer IndexerConfig `yaml:"indexer" json:"indexer" toml:"indexer"`

	// Contracts lists the monitored contracts
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// DB contains the state store database configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// Retention contains optional block record retention settings
	Retention *RetentionConfig `yaml:"retention,omitempty" json:"retention,omitempty" toml:"retention,omitempty"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// TokenStore, if set, persists token family events to their own SQLite database
	TokenStore *DatabaseConfig `yaml:"token_store,omitempty" json:"token_store,omitempty" toml:"token_store,omitempty"`
}

// IndexerConfig configures the block processor, reorg handler and checkpoint manager.
type IndexerConfig struct {
	// RPCURL is the JSON-RPC endpoint of the chain
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// BatchSize is the block range fetched per cycle
	BatchSize uint64 `yaml:"batch_size" json:"batch_size" toml:"batch_size"`

	// PollInterval is the sleep between polling cycles when caught up
	PollInterval icommon.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// DispatchBuffer is the capacity of the queue between the processor and the router
	DispatchBuffer int `yaml:"dispatch_buffer" json:"dispatch_buffer" toml:"dispatch_buffer"`

	// Finality selects the head tag polled: "finalized", "safe" or "latest"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// MinBlock is the lowest block ever indexed (0 = no minimum)
	MinBlock uint64 `yaml:"min_block" json:"min_block" toml:"min_block"`

	// MaxReorgDepth bounds the fork point search
	MaxReorgDepth uint64 `yaml:"max_reorg_depth" json:"max_reorg_depth" toml:"max_reorg_depth"`

	// StrictFetch makes a single contract fetch failure fail the whole batch
	StrictFetch bool `yaml:"strict_fetch" json:"strict_fetch" toml:"strict_fetch"`

	// Recovery overrides the stored checkpoint on start
	Recovery RecoveryConfig `yaml:"recovery" json:"recovery" toml:"recovery"`
}

// ApplyDefaults sets default values for optional indexer configuration fields.
func (i *IndexerConfig) ApplyDefaults() {
	if i.BatchSize == 0 {
		i.BatchSize = 100
	}
	if i.PollInterval.Duration == 0 {
		i.PollInterval = icommon.NewDuration(time.Second)
	}
	if i.DispatchBuffer == 0 {
		i.DispatchBuffer = 256
	}
	if i.Finality == "" {
		i.Finality = types.FinalityLatest.String()
	}
	if i.MaxReorgDepth == 0 {
		i.MaxReorgDepth = 64
	}
}

// Validate checks the indexer configuration.
func (i *IndexerConfig) Validate() error {
	if i.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if i.DispatchBuffer < 0 {
		return fmt.Errorf("dispatch_buffer must not be negative")
	}
	if _, err := types.ParseBlockFinality(i.Finality); err != nil {
		return fmt.Errorf("finality: %w", err)
	}

	return i.Recovery.Validate()
}

// RecoveryConfig forces the resume point regardless of the stored checkpoint.
type RecoveryConfig struct {
	// Mode is "", "genesis" or "reindex_from"
	Mode string `yaml:"mode" json:"mode" toml:"mode"`

	// FromBlock is the resume block for "reindex_from"
	FromBlock uint64 `yaml:"from_block" json:"from_block" toml:"from_block"`
}

// Validate checks the recovery configuration.
func (r *RecoveryConfig) Validate() error {
	switch icommon.ToLowerWithTrim(r.Mode) {
	case RecoveryNone, RecoveryGenesis, RecoveryReindexFrom:
		return nil
	default:
		return fmt.Errorf("recovery.mode: must be one of: genesis, reindex_from")
	}
}

// ContractConfig represents one monitored contract.
type ContractConfig struct {
	// Name is a unique label used in logs and metrics
	Name string `yaml:"name" json:"name" toml:"name"`

	// Address is the contract address to monitor
	Address string `yaml:"address" json:"address" toml:"address"`

	// Family selects the event set and handler port of the contract
	Family string `yaml:"family" json:"family" toml:"family"`
}

// HexAddress returns the parsed contract address.
func (c ContractConfig) HexAddress() common.Address {
	return common.HexToAddress(c.Address)
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff icommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff icommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = icommon.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = icommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks the database configuration.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("path is required")
	}
	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}

	return nil
}

// RetentionConfig bounds the number of block records kept for reorg detection.
type RetentionConfig struct {
	// RetainBlocks is the number of most recent block records to keep (0 = unlimited)
	RetainBlocks uint64 `yaml:"retain_blocks" json:"retain_blocks" toml:"retain_blocks"`
}

// IsEnabled returns true if retention policy should be applied
func (r *RetentionConfig) IsEnabled() bool {
	return r != nil && r.RetainBlocks > 0
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval icommon.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = icommon.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - processor: Block processor
	//   - router: Event router
	//   - reorg-handler: Reorg detection and rollback
	//   - checkpoint: Checkpoint manager
	//   - metadata: Event metadata builder
	//   - state-store: Indexer state store
	//   - maintenance: Database maintenance
	//   - rpc: Chain RPC client
	//   - handlers: Built-in handler ports
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[icommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := icommon.AllComponents[icommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[icommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return icommon.ToLowerWithTrim(level)
	}
	return icommon.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return icommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" || m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
// Logging is always populated so component loggers never see a nil config.
func (c *Config) ApplyDefaults() {
	c.Indexer.ApplyDefaults()
	c.DB.ApplyDefaults()

	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}

	// retention is applied by the maintenance loop
	if c.Retention.IsEnabled() && c.Maintenance == nil {
		c.Maintenance = &MaintenanceConfig{Enabled: true}
	}
	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}

	if c.TokenStore != nil {
		c.TokenStore.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer.%w", err)
	}

	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db.%w", err)
	}

	if c.Retention.IsEnabled() && c.Retention.RetainBlocks <= c.Indexer.MaxReorgDepth {
		return fmt.Errorf("retention.retain_blocks (%d) must exceed indexer.max_reorg_depth (%d)",
			c.Retention.RetainBlocks, c.Indexer.MaxReorgDepth)
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return fmt.Errorf("maintenance.%w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.TokenStore != nil {
		if err := c.TokenStore.Validate(); err != nil {
			return fmt.Errorf("token_store.%w", err)
		}
		if c.TokenStore.Path == c.DB.Path {
			return fmt.Errorf("token_store.path must differ from db.path")
		}
	}

	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}

	names := make(map[string]struct{}, len(c.Contracts))
	addresses := make(map[common.Address]struct{}, len(c.Contracts))
	for i, contract := range c.Contracts {
		if contract.Name == "" {
			return fmt.Errorf("contracts[%d]: name is required", i)
		}
		if _, ok := names[contract.Name]; ok {
			return fmt.Errorf("contracts[%d]: duplicate contract name '%s'", i, contract.Name)
		}
		names[contract.Name] = struct{}{}

		if !common.IsHexAddress(contract.Address) {
			return fmt.Errorf("contracts[%d] (%s): invalid address '%s'", i, contract.Name, contract.Address)
		}
		addr := contract.HexAddress()
		if _, ok := addresses[addr]; ok {
			return fmt.Errorf("contracts[%d] (%s): duplicate address %s", i, contract.Name, addr.Hex())
		}
		addresses[addr] = struct{}{}

		if !slices.Contains(Families, icommon.ToLowerWithTrim(contract.Family)) {
			return fmt.Errorf("contracts[%d] (%s): unknown family '%s'", i, contract.Name, contract.Family)
		}
	}

	return nil
}

// GenerateJSONSchema returns the JSON schema describing Config.
func GenerateJSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "json",
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "EventIndexor configuration"

	return schema
}
