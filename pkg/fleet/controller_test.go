package fleet

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merabytes/acido/pkg/acido"
)

// fakeCloud is an in-memory CloudAdapter. quotaFailRegions causes
// CreateGroup to fail with a quota error the first time a group targets
// one of those regions; alwaysFail makes every CreateGroup fail with a
// quota error in every region.
type fakeCloud struct {
	mu sync.Mutex

	quotaFailRegions map[string]bool
	alwaysFail       bool

	created []string
	deleted []string
	logs    map[string]string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{quotaFailRegions: map[string]bool{}, logs: map[string]string{}}
}

func (f *fakeCloud) CreateGroup(ctx context.Context, group *acido.ContainerGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.alwaysFail {
		group.State = acido.GroupFailed
		return acido.NewCloudError("create_group", acido.ClassQuota, fmt.Errorf("quota exceeded in %s", group.Region))
	}
	if f.quotaFailRegions[group.Region] {
		delete(f.quotaFailRegions, group.Region)
		return acido.NewCloudError("create_group", acido.ClassQuota, fmt.Errorf("quota exceeded in %s", group.Region))
	}

	f.created = append(f.created, group.Name)
	group.State = acido.GroupRunning
	for _, inst := range group.Instances {
		f.logs[inst.Name] = fmt.Sprintf("ACIDO_DONE=%s\n", inst.CompletionUUID)
	}
	return nil
}

func (f *fakeCloud) DeleteGroup(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	for i, created := range f.created {
		if created == name {
			f.created = append(f.created[:i], f.created[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeCloud) ListGroups(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.created))
	copy(out, f.created)
	return out, nil
}

func (f *fakeCloud) GetLogs(ctx context.Context, groupName, containerName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs[containerName], nil
}

// fakeStore is an in-memory ArtifactStore.
type fakeStore struct {
	mu      sync.Mutex
	n       int
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	id := fmt.Sprintf("artifact-%d", s.n)
	s.objects[id] = data
	return id, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
	return nil
}

// fakeDetector watches by reading from the fake cloud's recorded logs and
// immediately declaring success if the sentinel is present.
type fakeDetector struct {
	cloud   *fakeCloud
	timeout bool
}

func (d *fakeDetector) Watch(ctx context.Context, groupName string, instance *acido.ContainerInstance, deadline time.Time) acido.InstanceStatus {
	if d.timeout {
		instance.Status = acido.InstanceTimedOut
		return acido.InstanceTimedOut
	}
	log, _ := d.cloud.GetLogs(ctx, groupName, instance.Name)
	instance.Log = log
	if log != "" {
		instance.Status = acido.InstanceSucceeded
		return acido.InstanceSucceeded
	}
	instance.Status = acido.InstanceFailed
	return acido.InstanceFailed
}

func writeInput(t *testing.T, lines int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	var data []byte
	for i := 0; i < lines; i++ {
		data = append(data, []byte(fmt.Sprintf("line-%d\n", i))...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func baseRequest(t *testing.T, instances int) Request {
	return Request{
		Name:         "scan",
		NumInstances: instances,
		Image:        "registry.example.com/scanner:latest",
		Command:      "scan --input $ACIDO_INPUT_UUID",
		InputPath:    writeInput(t, instances*3),
		Regions:      []string{"eastus", "westus", "westeurope"},
	}
}

func TestFleet_SmallFleetSucceeds(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(1))

	result, err := ctrl.Fleet(context.Background(), baseRequest(t, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Len(t, result.PerInstanceStatus, 4)
	for _, status := range result.PerInstanceStatus {
		assert.Equal(t, acido.InstanceSucceeded, status)
	}
}

func TestFleet_GroupOverflowSplitsAcrossGroups(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(1))

	req := baseRequest(t, 15)
	result, err := ctrl.Fleet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Len(t, result.PerInstanceStatus, 15)

	// 15 instances at up to 10 per group must produce at least 2 groups.
	assert.GreaterOrEqual(t, len(cloud.created), 2)
}

func TestFleet_MultiRegionSpread(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(7))

	req := baseRequest(t, 100)
	result, err := ctrl.Fleet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Len(t, result.PerInstanceStatus, 100)
}

func TestFleet_TimeoutProducesPartialSuccess(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud, timeout: true}, nil)
	ctrl.rng = rand.New(rand.NewSource(1))

	req := baseRequest(t, 3)
	req.WaitSeconds = 1
	result, err := ctrl.Fleet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	for _, status := range result.PerInstanceStatus {
		assert.Equal(t, acido.InstanceTimedOut, status)
	}
}

func TestFleet_QuotaExhaustionFailsProvisioning(t *testing.T) {
	cloud := newFakeCloud()
	cloud.alwaysFail = true
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(1))

	result, err := ctrl.Fleet(context.Background(), baseRequest(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ExitCode)
}

func TestFleet_QuotaRetrySwapsRegionAndSucceeds(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(3))

	req := baseRequest(t, 3)
	// Exactly one group will be planned for a 3-instance, single-region-pick
	// fleet; mark every candidate but one as quota-exhausted so the retry
	// loop is forced to walk through ChooseRegion at least once.
	for _, r := range req.Regions {
		cloud.quotaFailRegions[r] = true
	}
	delete(cloud.quotaFailRegions, req.Regions[len(req.Regions)-1])

	result, err := ctrl.Fleet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestFleet_TeardownRemovesGroupsAndArtifacts(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(1))

	req := baseRequest(t, 4)
	req.RemoveWhenDone = true
	result, err := ctrl.Fleet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.NotEmpty(t, cloud.deleted)

	groups, err := ctrl.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFleet_RejectsInvalidNumInstances(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)

	req := baseRequest(t, 1)
	req.NumInstances = 0
	_, err := ctrl.Fleet(context.Background(), req)
	assert.Error(t, err)
}

func TestFleet_RejectsEmptyRegions(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)

	req := baseRequest(t, 1)
	req.Regions = nil
	_, err := ctrl.Fleet(context.Background(), req)
	assert.Error(t, err)
}

func TestFleet_RejectsCommandWithoutInputPlaceholder(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)

	req := baseRequest(t, 1)
	req.Command = "scan --all"
	_, err := ctrl.Fleet(context.Background(), req)
	assert.Error(t, err)
}

func TestRemove_MatchesGlobPattern(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)
	ctrl.rng = rand.New(rand.NewSource(1))

	req := baseRequest(t, 4)
	req.Name = "scan"
	_, err := ctrl.Fleet(context.Background(), req)
	require.NoError(t, err)

	removed, err := ctrl.Remove(context.Background(), "scan-group-*")
	require.NoError(t, err)
	assert.NotEmpty(t, removed)

	remaining, err := ctrl.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRemove_NoMatchesIsNotAnError(t *testing.T) {
	cloud := newFakeCloud()
	store := newFakeStore()
	ctrl := New(cloud, store, &fakeDetector{cloud: cloud}, nil)

	removed, err := ctrl.Remove(context.Background(), "no-such-*")
	require.NoError(t, err)
	assert.Empty(t, removed)
}
