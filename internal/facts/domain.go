package facts

// Domain names one group of facts that is either known (some artifact
// supplied it) or unknown for a run. Rules declare the domains they need.
type Domain string

const (
	DomainVersion        Domain = "version"
	DomainUptime         Domain = "uptime"
	DomainCPU            Domain = "cpu"
	DomainMemory         Domain = "memory"
	DomainHealthState    Domain = "health_state"
	DomainSensors        Domain = "sensors"
	DomainStorageDevices Domain = "storage_devices"
	DomainStorageLatency Domain = "storage_latency"
	DomainDatastores     Domain = "datastores"
	DomainNICs           Domain = "nics"
	DomainVSwitches      Domain = "vswitches"
	DomainVMs            Domain = "vm_inventory"
	DomainSnapshots      Domain = "vm_snapshots"
	DomainLogs           Domain = "logs"
)

// AllDomains lists every domain in a fixed order.
func AllDomains() []Domain {
	return []Domain{
		DomainVersion, DomainUptime, DomainCPU, DomainMemory,
		DomainHealthState, DomainSensors, DomainStorageDevices,
		DomainStorageLatency, DomainDatastores, DomainNICs,
		DomainVSwitches, DomainVMs, DomainSnapshots, DomainLogs,
	}
}

// IsValid checks if the domain value is valid
func (d Domain) IsValid() bool {
	for _, k := range AllDomains() {
		if k == d {
			return true
		}
	}
	return false
}

// MergePolicy is how the Builder combines observations of one field.
type MergePolicy string

const (
	// PolicyConflict keeps every distinct value; disagreement is an Inconsistency
	PolicyConflict MergePolicy = "conflict"
	// PolicyLatestWins keeps the most recently observed value
	PolicyLatestWins MergePolicy = "latest_wins"
	// PolicyMaxSeverityWins keeps the most severe value
	PolicyMaxSeverityWins MergePolicy = "max_severity_wins"
	// PolicyAppend accumulates every value into a canonically sorted sequence
	PolicyAppend MergePolicy = "append"
	// PolicyKeyedMaxSeverity keeps, per entity id, the most severe observation
	PolicyKeyedMaxSeverity MergePolicy = "keyed_max_severity"
	// PolicyKeyedLatest keeps, per entity id, the most recent observation
	PolicyKeyedLatest MergePolicy = "keyed_latest"
)

// FieldPolicies declares the merge policy of every Record payload field.
// The Builder implements exactly these; the table exists so callers and
// tests can inspect them.
var FieldPolicies = map[string]MergePolicy{
	"version":         PolicyConflict,
	"build":           PolicyConflict,
	"uptime_days":     PolicyLatestWins,
	"memory_total_mb": PolicyLatestWins,
	"memory_free_mb":  PolicyLatestWins,
	"health_state":    PolicyMaxSeverityWins,
	"cpu":             PolicyAppend,
	"latency":         PolicyAppend,
	"snapshot":        PolicyAppend,
	"log_event":       PolicyAppend,
	"device":          PolicyKeyedMaxSeverity,
	"nic":             PolicyKeyedMaxSeverity,
	"sensor":          PolicyKeyedMaxSeverity,
	"datastore":       PolicyKeyedLatest,
	"vswitch":         PolicyKeyedLatest,
	"vm":              PolicyKeyedLatest,
}
