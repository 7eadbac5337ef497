package acido

import "time"

// InputShard is one partition of the operator's input file, uploaded as an
// Artifact and handed to exactly one ContainerInstance.
type InputShard struct {
	// Identifier is assigned by the Artifact Store at upload time; empty
	// until Put succeeds.
	Identifier string

	// Data is the newline-terminated slice of lines belonging to this shard.
	Data []byte

	// GroupOrdinal is the 1-based group this shard's instance will belong to.
	GroupOrdinal int
}

// GroupState is a ContainerGroup's position in its lifecycle.
type GroupState string

const (
	GroupPlanned      GroupState = "planned"
	GroupProvisioning GroupState = "provisioning"
	GroupRunning      GroupState = "running"
	GroupSucceeded    GroupState = "succeeded"
	GroupFailed       GroupState = "failed"
	GroupTimedOut     GroupState = "timed_out"
	GroupRemoving     GroupState = "removing"
	GroupRemoved      GroupState = "removed"
)

// RestartPolicy values accepted by the cloud adapter. "never" is the only
// value defined, and the only one the orchestrator requests.
type RestartPolicy string

const (
	RestartNever RestartPolicy = "never"
)

// ResourceRequest is the CPU/memory shape requested per container instance.
type ResourceRequest struct {
	CPUCores float64
	MemoryGB float64
}

// ContainerInstance is a single running process inside a ContainerGroup.
type ContainerInstance struct {
	Name string

	// ShardID is the Artifact identifier of the input shard this instance
	// consumes, also injected as ACIDO_INPUT_UUID.
	ShardID string

	// CompletionUUID is the fresh UUID minted at provision time and placed
	// in the instance's environment as ACIDO_COMPLETION_UUID; the Log
	// Completion Detector watches for "ACIDO_DONE=<CompletionUUID>".
	CompletionUUID string

	Status    InstanceStatus
	Log       string
	StartedAt time.Time
	EndedAt   time.Time
}

// InstanceStatus is the terminal (or in-flight) classification of one
// ContainerInstance, independent of its group's state.
type InstanceStatus string

const (
	InstancePending      InstanceStatus = "pending"
	InstanceRunning      InstanceStatus = "running"
	InstanceSucceeded     InstanceStatus = "succeeded"
	InstanceFailed        InstanceStatus = "failed"
	InstanceTimedOut      InstanceStatus = "timed_out"
	InstanceUnprovisioned InstanceStatus = "unprovisioned"
)

// ContainerGroup is a colocated unit of up to 10 ContainerInstance sharing
// one virtual NIC and one subnet attachment.
type ContainerGroup struct {
	Name   string
	Region string
	Image  string

	// RegistryCredential is an opaque handle resolved by the cloud adapter
	// (username/password pair or managed-identity reference); never logged.
	RegistryCredential string

	Env           map[string]string
	Command       string
	Resources     ResourceRequest
	RestartPolicy RestartPolicy
	SubnetID      string // empty when no NetworkStack is attached

	Instances []*ContainerInstance
	State     GroupState

	// ProvisionAttempts tracks region-swap retries triggered by QuotaExceeded.
	ProvisionAttempts int
	LastError         error
}

// NetworkStack is the {public IP, egress gateway, virtual network, delegated
// subnet} quadruple used for shared egress.
type NetworkStack struct {
	Name string

	PublicIPName string
	GatewayName  string
	VNetName     string
	SubnetName   string

	IPv4 string
}

// DerivedNetworkStackNames returns the dependent-resource names for a stack
// named base: X, X-vnet, X-subnet, X-subnet-nat-gw.
func DerivedNetworkStackNames(base string) NetworkStack {
	return NetworkStack{
		Name:         base,
		PublicIPName: base,
		VNetName:     base + "-vnet",
		SubnetName:   base + "-subnet",
		GatewayName:  base + "-subnet-nat-gw",
	}
}

// Fleet is the in-memory tracking object for one orchestration invocation.
type Fleet struct {
	Name           string
	Groups         []*ContainerGroup
	RemoveWhenDone bool
	Deadline       time.Time
	NetworkStack   string // name of the attached NetworkStack, if any
}

// ArtifactKind distinguishes uploaded input shards from container-emitted
// completion markers.
type ArtifactKind string

const (
	ArtifactInput            ArtifactKind = "input"
	ArtifactCompletionMarker ArtifactKind = "completion_marker"
)

// FleetResult is returned by the Fleet Controller's fleet operation.
type FleetResult struct {
	FleetName string

	// PerInstanceStatus maps instance name to its terminal status.
	PerInstanceStatus map[string]InstanceStatus

	// PerInstanceLog maps instance name to its collected log (partial for
	// timed-out instances).
	PerInstanceLog map[string]string

	AggregateText string

	// ExitCode: 0 success, 2 provisioning failure, 3 partial success
	// (timeouts present), 4 teardown error. Usage errors (1) are returned as
	// a Go error before a FleetResult is produced.
	ExitCode int
}
