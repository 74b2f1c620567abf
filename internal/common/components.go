package common

const (
	ComponentProcessor   = "processor"
	ComponentRouter      = "router"
	ComponentReorg       = "reorg-handler"
	ComponentCheckpoint  = "checkpoint"
	ComponentMetadata    = "metadata"
	ComponentStateStore  = "state-store"
	ComponentMaintenance = "maintenance"
	ComponentRPC         = "rpc"
	ComponentHandlers    = "handlers"
)

var AllComponents = map[string]struct{}{
	ComponentProcessor:   {},
	ComponentRouter:      {},
	ComponentReorg:       {},
	ComponentCheckpoint:  {},
	ComponentMetadata:    {},
	ComponentStateStore:  {},
	ComponentMaintenance: {},
	ComponentRPC:         {},
	ComponentHandlers:    {},
}
