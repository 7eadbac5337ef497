package fleet

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/aggregate"
	"github.com/merabytes/acido/pkg/fleetevents"
	"github.com/merabytes/acido/pkg/log"
	"github.com/merabytes/acido/pkg/metrics"
	"github.com/merabytes/acido/pkg/placement"
	"github.com/merabytes/acido/pkg/sharder"
)

const (
	uploadFanOut     = 16
	provisionFanOut  = 8
	pollFanOut       = 64
	maxQuotaRetries  = 3
	providerMaxInstances = 1000

	defaultCPUCores  = 1.0
	defaultMemoryGB  = 1.5
)

// CloudAdapter is the subset of the Cloud Adapter the controller needs.
type CloudAdapter interface {
	CreateGroup(ctx context.Context, group *acido.ContainerGroup) error
	DeleteGroup(ctx context.Context, name string) error
	ListGroups(ctx context.Context) ([]string, error)
	GetLogs(ctx context.Context, groupName, containerName string) (string, error)
}

// ArtifactStore is the subset of the Artifact Store the controller needs.
type ArtifactStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, id string) error
}

// Detector watches a single instance until it reaches a terminal state.
type Detector interface {
	Watch(ctx context.Context, groupName string, instance *acido.ContainerInstance, deadline time.Time) acido.InstanceStatus
}

// Controller is the Fleet Controller.
type Controller struct {
	cloud    CloudAdapter
	store    ArtifactStore
	detector Detector
	events   *fleetevents.Broker

	rng *rand.Rand
}

// New builds a Controller wiring the Cloud Adapter, Artifact Store, and
// Log Completion Detector together. events may be nil; a nil broker's
// Publish calls are simply skipped.
func New(cloud CloudAdapter, store ArtifactStore, detector Detector, events *fleetevents.Broker) *Controller {
	return &Controller{
		cloud:    cloud,
		store:    store,
		detector: detector,
		events:   events,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Request describes one fleet(...) invocation.
type Request struct {
	Name               string
	NumInstances       int
	Image              string
	Command            string
	InputPath          string
	Regions            []string
	WaitSeconds        int
	RemoveWhenDone     bool
	OutputPath         string
	RegistryCredential string
	SubnetID           string
	Resources          acido.ResourceRequest
}

func (r Request) validate() error {
	if r.NumInstances < 1 || r.NumInstances > providerMaxInstances {
		return fmt.Errorf("fleet: num_instances must be between 1 and %d, got %d", providerMaxInstances, r.NumInstances)
	}
	if len(r.Regions) == 0 {
		return fmt.Errorf("fleet: regions must be non-empty")
	}
	if !strings.Contains(r.Command, "input") {
		return fmt.Errorf(`fleet: command must contain the literal substring "input"`)
	}
	return nil
}

// Fleet validates req, shards and uploads its input, plans placement,
// provisions container groups, polls every instance to completion,
// aggregates the results, and (if req.RemoveWhenDone) tears everything
// down. It never returns a partial FleetResult alongside a non-nil error:
// once shards are uploaded, failures are recorded per-group or
// per-instance in the returned result instead.
func (c *Controller) Fleet(ctx context.Context, req Request) (*acido.FleetResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	logger := log.WithFleet(req.Name)
	logger.Info().Int("instances", req.NumInstances).Strs("regions", req.Regions).Msg("starting fleet")

	resources := req.Resources
	if resources.CPUCores == 0 {
		resources.CPUCores = defaultCPUCores
	}
	if resources.MemoryGB == 0 {
		resources.MemoryGB = defaultMemoryGB
	}

	shardBytes, err := sharder.Split(req.InputPath, req.NumInstances)
	if err != nil {
		return nil, fmt.Errorf("fleet: shard input: %w", err)
	}
	metrics.ShardsTotal.WithLabelValues(req.Name).Add(float64(len(shardBytes)))

	shards, err := c.uploadShards(ctx, shardBytes)
	if err != nil {
		return nil, fmt.Errorf("fleet: upload shards: %w", err)
	}

	plans, err := placement.Plan(shards, req.Regions, c.rng)
	if err != nil {
		return nil, fmt.Errorf("fleet: plan placement: %w", err)
	}

	groups := c.buildGroups(req, resources, plans)
	for _, g := range groups {
		metrics.GroupsPlannedTotal.WithLabelValues(g.Region).Inc()
		c.publish(fleetevents.Event{Type: fleetevents.GroupPlanned, Fleet: req.Name, Group: g.Name, Region: g.Region})
	}

	c.provisionGroups(ctx, req.Name, groups, req.Regions)

	deadline := time.Time{}
	if req.WaitSeconds > 0 {
		deadline = time.Now().Add(time.Duration(req.WaitSeconds) * time.Second)
	}
	c.pollGroups(ctx, groups, deadline)

	results := c.collectResults(groups)
	report, err := aggregate.Build(results, req.OutputPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to write aggregate report")
	}

	var teardownErr bool
	if req.RemoveWhenDone {
		teardownErr = c.teardown(ctx, req.Name, groups, shards)
	}

	result := &acido.FleetResult{
		FleetName:         req.Name,
		PerInstanceStatus: report.Status,
		PerInstanceLog:    report.Logs,
		AggregateText:     report.Text,
		ExitCode:          exitCode(groups, teardownErr),
	}

	logger.Info().Int("exit_code", result.ExitCode).Msg("fleet complete")
	return result, nil
}

func (c *Controller) uploadShards(ctx context.Context, shardBytes [][]byte) ([]acido.InputShard, error) {
	shards := make([]acido.InputShard, len(shardBytes))
	for i, data := range shardBytes {
		shards[i] = acido.InputShard{Data: data}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(uploadFanOut)

	for i := range shards {
		i := i
		group.Go(func() error {
			timer := metrics.NewTimer()
			id, err := c.store.Put(gctx, shards[i].Data)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			shards[i].Identifier = id
			timer.ObserveDurationVec(metrics.ArtifactUploadDuration, "input")
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return shards, nil
}

func (c *Controller) buildGroups(req Request, resources acido.ResourceRequest, plans []placement.GroupPlan) []*acido.ContainerGroup {
	groups := make([]*acido.ContainerGroup, len(plans))
	for i, plan := range plans {
		groupName := fmt.Sprintf("%s-group-%d", req.Name, i+1)

		instances := make([]*acido.ContainerInstance, len(plan.Shards))
		for j, shard := range plan.Shards {
			instances[j] = &acido.ContainerInstance{
				Name:           fmt.Sprintf("%s-inst-%d", groupName, j+1),
				ShardID:        shard.Identifier,
				CompletionUUID: uuid.NewString(),
				Status:         acido.InstancePending,
			}
		}

		groups[i] = &acido.ContainerGroup{
			Name:               groupName,
			Region:             plan.Region,
			Image:              req.Image,
			RegistryCredential: req.RegistryCredential,
			Env:                map[string]string{},
			Command:            req.Command,
			Resources:          resources,
			RestartPolicy:      acido.RestartNever,
			SubnetID:           req.SubnetID,
			Instances:          instances,
			State:              acido.GroupPlanned,
		}
	}
	return groups
}

// provisionGroups provisions every group concurrently up to
// provisionFanOut. A QuotaExceeded failure swaps the group to a different
// region drawn from the remaining candidates and retries, up to
// maxQuotaRetries times, before giving up and leaving the group Failed.
func (c *Controller) provisionGroups(ctx context.Context, fleetName string, groups []*acido.ContainerGroup, regions []string) {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(provisionFanOut)

	for _, g := range groups {
		g := g
		group.Go(func() error {
			c.provisionOneGroup(gctx, fleetName, g, regions)
			return nil
		})
	}
	_ = group.Wait()
}

func (c *Controller) provisionOneGroup(ctx context.Context, fleetName string, g *acido.ContainerGroup, regions []string) {
	g.State = acido.GroupProvisioning
	c.publish(fleetevents.Event{Type: fleetevents.GroupProvisioning, Fleet: fleetName, Group: g.Name, Region: g.Region})

	tried := map[string]bool{}

	for {
		tried[g.Region] = true
		err := c.cloud.CreateGroup(ctx, g)
		if err == nil {
			g.State = acido.GroupRunning
			c.publish(fleetevents.Event{Type: fleetevents.GroupRunning, Fleet: fleetName, Group: g.Name, Region: g.Region})
			return
		}
		g.LastError = err

		ce, _ := err.(*acido.CloudError)

		if ce != nil && ce.Class == acido.ClassQuota && g.ProvisionAttempts < maxQuotaRetries {
			next := placement.ChooseRegion(regions, tried, c.rng)
			if next == "" {
				break
			}
			g.ProvisionAttempts++
			metrics.ProvisionRetriesTotal.WithLabelValues("quota_exceeded").Inc()
			g.Region = next
			g.State = acido.GroupProvisioning
			continue
		}
		break
	}

	g.State = acido.GroupFailed
	c.publish(fleetevents.Event{Type: fleetevents.GroupFailed, Fleet: fleetName, Group: g.Name, Region: g.Region, Message: errString(g.LastError)})
}

// pollGroups starts a Log Completion Detector for every instance in every
// running group, capped at pollFanOut concurrent pollers.
func (c *Controller) pollGroups(ctx context.Context, groups []*acido.ContainerGroup, deadline time.Time) {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(pollFanOut)

	var mu sync.Mutex
	groupTerminal := func(g *acido.ContainerGroup, status acido.InstanceStatus) {
		mu.Lock()
		defer mu.Unlock()
		if status == acido.InstanceFailed {
			g.State = acido.GroupFailed
		} else if status == acido.InstanceTimedOut && g.State != acido.GroupFailed {
			g.State = acido.GroupTimedOut
		}
	}

	for _, g := range groups {
		if g.State != acido.GroupRunning {
			continue
		}
		for _, inst := range g.Instances {
			g, inst := g, inst
			group.Go(func() error {
				status := c.detector.Watch(gctx, g.Name, inst, deadline)
				if status != acido.InstanceSucceeded {
					groupTerminal(g, status)
				}
				return nil
			})
		}
	}
	_ = group.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, g := range groups {
		if g.State == acido.GroupRunning {
			g.State = acido.GroupSucceeded
		}
	}
}

func (c *Controller) collectResults(groups []*acido.ContainerGroup) []aggregate.InstanceResult {
	var results []aggregate.InstanceResult
	for _, g := range groups {
		for _, inst := range g.Instances {
			status := inst.Status
			if status == "" {
				status = acido.InstanceUnprovisioned
			}
			results = append(results, aggregate.InstanceResult{
				Name:   inst.Name,
				Status: status,
				Log:    inst.Log,
			})
		}
	}
	return results
}

// teardown is best-effort: individual failures are logged and never
// propagated into the fleet's primary result, except as the teardownErr
// flag used for exit-code computation.
func (c *Controller) teardown(ctx context.Context, fleetName string, groups []*acido.ContainerGroup, shards []acido.InputShard) bool {
	logger := log.WithFleet(fleetName)
	failed := false

	for _, g := range groups {
		g.State = acido.GroupRemoving
		timer := metrics.NewTimer()
		if err := c.cloud.DeleteGroup(ctx, g.Name); err != nil {
			logger.Error().Err(err).Str("group", g.Name).Msg("teardown failed")
			metrics.TeardownsTotal.WithLabelValues("container_group", "error").Inc()
			failed = true
			continue
		}
		g.State = acido.GroupRemoved
		metrics.TeardownsTotal.WithLabelValues("container_group", "ok").Inc()
		timer.ObserveDurationVec(metrics.TeardownDuration, "container_group")
		c.publish(fleetevents.Event{Type: fleetevents.GroupRemoved, Fleet: fleetName, Group: g.Name})
	}

	for _, s := range shards {
		if s.Identifier == "" {
			continue
		}
		if err := c.store.Delete(ctx, s.Identifier); err != nil {
			logger.Error().Err(err).Str("artifact_id", s.Identifier).Msg("artifact teardown failed")
			failed = true
		}
	}

	return failed
}

func (c *Controller) publish(e fleetevents.Event) {
	if c.events != nil {
		c.events.Publish(e)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// exitCode picks the most severe terminal state across groups: a
// provisioning failure (2) outranks teardown trouble (4), which outranks a
// partial success from timeouts (3).
func exitCode(groups []*acido.ContainerGroup, teardownErr bool) int {
	anyFailed := false
	anyTimedOut := false
	for _, g := range groups {
		switch g.State {
		case acido.GroupFailed:
			anyFailed = true
		case acido.GroupTimedOut:
			anyTimedOut = true
		}
	}

	switch {
	case anyFailed:
		return 2
	case teardownErr:
		return 4
	case anyTimedOut:
		return 3
	default:
		return 0
	}
}
