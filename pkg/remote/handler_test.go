package remote

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/fleet"
)

type fakeFleetController struct {
	fleetResult *acido.FleetResult
	fleetErr    error
	lastRequest fleet.Request

	listResult []string
	listErr    error

	removeResult []string
	removeErr    error
}

func (f *fakeFleetController) Fleet(ctx context.Context, req fleet.Request) (*acido.FleetResult, error) {
	f.lastRequest = req
	if f.fleetErr != nil {
		return nil, f.fleetErr
	}
	if f.fleetResult != nil {
		return f.fleetResult, nil
	}
	return &acido.FleetResult{FleetName: req.Name, ExitCode: 0, PerInstanceStatus: map[string]acido.InstanceStatus{}}, nil
}

func (f *fakeFleetController) List(ctx context.Context) ([]string, error) {
	return f.listResult, f.listErr
}

func (f *fakeFleetController) Remove(ctx context.Context, pattern string) ([]string, error) {
	return f.removeResult, f.removeErr
}

type fakeNetworkManager struct {
	created map[string]acido.NetworkStack
	destroyErr error
	destroyed []string
}

func (n *fakeNetworkManager) Create(ctx context.Context, base string) (acido.NetworkStack, error) {
	stack := acido.DerivedNetworkStackNames(base)
	stack.IPv4 = "203.0.113.1"
	if n.created == nil {
		n.created = map[string]acido.NetworkStack{}
	}
	n.created[base] = stack
	return stack, nil
}

func (n *fakeNetworkManager) Destroy(ctx context.Context, stack acido.NetworkStack) error {
	n.destroyed = append(n.destroyed, stack.Name)
	return n.destroyErr
}

func TestHandle_UnknownOperation(t *testing.T) {
	h := New(&fakeFleetController{}, &fakeNetworkManager{}, "eastus")
	resp, err := h.Handle(context.Background(), []byte(`{"operation":"bogus"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid operation", resp.Body["error"])
}

func TestHandle_MalformedJSON(t *testing.T) {
	h := New(&fakeFleetController{}, &fakeNetworkManager{}, "eastus")
	resp, err := h.Handle(context.Background(), []byte(`not json`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_Fleet_MissingRequiredFields(t *testing.T) {
	h := New(&fakeFleetController{}, &fakeNetworkManager{}, "eastus")
	resp, err := h.Handle(context.Background(), []byte(`{"operation":"fleet"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields, ok := resp.Body["fields"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"image", "targets", "task"}, fields)
}

func TestHandle_Fleet_Success(t *testing.T) {
	fc := &fakeFleetController{}
	h := New(fc, &fakeNetworkManager{}, "eastus")

	body := []byte(`{"operation":"fleet","image":"reg/scan:latest","targets":["a.com","b.com"],"task":"scan $ACIDO_INPUT_UUID"}`)
	resp, err := h.Handle(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, fc.lastRequest.NumInstances)
	assert.Equal(t, []string{"eastus"}, fc.lastRequest.Regions)
	assert.True(t, fc.lastRequest.RemoveWhenDone)
}

func TestHandle_Fleet_RegionsAsSingleString(t *testing.T) {
	fc := &fakeFleetController{}
	h := New(fc, &fakeNetworkManager{}, "eastus")

	body := []byte(`{"operation":"fleet","image":"reg/scan:latest","targets":["a.com"],"task":"scan input","regions":"westus"}`)
	_, err := h.Handle(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, []string{"westus"}, fc.lastRequest.Regions)
}

func TestHandle_Fleet_RegionsAsArray(t *testing.T) {
	fc := &fakeFleetController{}
	h := New(fc, &fakeNetworkManager{}, "eastus")

	body := []byte(`{"operation":"fleet","image":"reg/scan:latest","targets":["a.com"],"task":"scan input","regions":["westus","eastus2"]}`)
	_, err := h.Handle(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, []string{"westus", "eastus2"}, fc.lastRequest.Regions)
}

func TestHandle_Run_CapsDurationAt900(t *testing.T) {
	fc := &fakeFleetController{}
	h := New(fc, &fakeNetworkManager{}, "eastus")

	body := []byte(`{"operation":"run","name":"one-off","image":"reg/scan:latest","task":"scan input","duration":5000}`)
	resp, err := h.Handle(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, maxRunDuration, fc.lastRequest.WaitSeconds)
	assert.Equal(t, 1, fc.lastRequest.NumInstances)
}

func TestHandle_Ls(t *testing.T) {
	fc := &fakeFleetController{listResult: []string{"scan-group-2", "scan-group-1"}}
	h := New(fc, &fakeNetworkManager{}, "eastus")

	resp, err := h.Handle(context.Background(), []byte(`{"operation":"ls"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"scan-group-1", "scan-group-2"}, resp.Body["groups"])
}

func TestHandle_Rm_MissingName(t *testing.T) {
	h := New(&fakeFleetController{}, &fakeNetworkManager{}, "eastus")
	resp, err := h.Handle(context.Background(), []byte(`{"operation":"rm"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_IPCreateThenLsThenRm(t *testing.T) {
	net := &fakeNetworkManager{}
	h := New(&fakeFleetController{}, net, "eastus")

	resp, err := h.Handle(context.Background(), []byte(`{"operation":"ip_create","name":"scan-egress"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "203.0.113.1", resp.Body["ip"])

	resp, err = h.Handle(context.Background(), []byte(`{"operation":"ip_ls"}`))
	require.NoError(t, err)
	stacks, ok := resp.Body["stacks"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, stacks, 1)

	resp, err = h.Handle(context.Background(), []byte(`{"operation":"ip_rm","name":"scan-egress"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, net.destroyed, "scan-egress")

	resp, err = h.Handle(context.Background(), []byte(`{"operation":"ip_ls"}`))
	require.NoError(t, err)
	stacks, _ = resp.Body["stacks"].([]map[string]any)
	assert.Empty(t, stacks)
}

func TestHandle_FleetInternalError(t *testing.T) {
	fc := &fakeFleetController{fleetErr: assertErr("boom")}
	h := New(fc, &fakeNetworkManager{}, "eastus")

	body := []byte(`{"operation":"fleet","image":"reg/scan:latest","targets":["a.com"],"task":"scan input"}`)
	resp, err := h.Handle(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
