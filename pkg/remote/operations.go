package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/fleet"
)

type fleetRequestBody struct {
	Image        string          `json:"image"`
	Targets      []string        `json:"targets"`
	Task         string          `json:"task"`
	FleetName    string          `json:"fleet_name"`
	NumInstances int             `json:"num_instances"`
	Regions      json.RawMessage `json:"regions"`
	RmWhenDone   *bool           `json:"rm_when_done"`
}

func (h *Handler) handleFleet(ctx context.Context, body []byte) (Response, error) {
	var req fleetRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON: %v", err)), nil
	}

	var missing []string
	if req.Image == "" {
		missing = append(missing, "image")
	}
	if len(req.Targets) == 0 {
		missing = append(missing, "targets")
	}
	if req.Task == "" {
		missing = append(missing, "task")
	}
	if len(missing) > 0 {
		return missingFields(missing), nil
	}

	regions, err := normalizeRegions(req.Regions, h.defaultRegion)
	if err != nil {
		return badRequest(err.Error()), nil
	}

	name := req.FleetName
	if name == "" {
		name = "fleet-" + uuid.NewString()[:8]
	}
	numInstances := req.NumInstances
	if numInstances == 0 {
		numInstances = len(req.Targets)
	}
	rmWhenDone := true
	if req.RmWhenDone != nil {
		rmWhenDone = *req.RmWhenDone
	}

	inputPath, cleanup, err := writeTargetsFile(req.Targets)
	if err != nil {
		return internalError(opFleet, err), nil
	}
	defer cleanup()

	result, err := h.fleet.Fleet(ctx, fleet.Request{
		Name:           name,
		NumInstances:   numInstances,
		Image:          req.Image,
		Command:        req.Task,
		InputPath:      inputPath,
		Regions:        regions,
		RemoveWhenDone: rmWhenDone,
	})
	if err != nil {
		return internalError(opFleet, err), nil
	}

	return Response{
		StatusCode: http.StatusOK,
		Body: map[string]any{
			"operation":  opFleet,
			"fleet_name": name,
			"exit_code":  result.ExitCode,
			"status":     result.PerInstanceStatus,
			"report":     result.AggregateText,
		},
	}, nil
}

type runRequestBody struct {
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Task     string          `json:"task"`
	Duration int             `json:"duration"`
	Cleanup  *bool           `json:"cleanup"`
	Regions  json.RawMessage `json:"regions"`
}

// handleRun is the single-instance convenience form of fleet: exactly one
// target, implicitly one instance.
func (h *Handler) handleRun(ctx context.Context, body []byte) (Response, error) {
	var req runRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON: %v", err)), nil
	}

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Image == "" {
		missing = append(missing, "image")
	}
	if req.Task == "" {
		missing = append(missing, "task")
	}
	if len(missing) > 0 {
		return missingFields(missing), nil
	}

	duration := req.Duration
	if duration <= 0 {
		duration = defaultRunDuration
	}
	if duration > maxRunDuration {
		duration = maxRunDuration
	}
	cleanup := true
	if req.Cleanup != nil {
		cleanup = *req.Cleanup
	}

	regions, err := normalizeRegions(req.Regions, h.defaultRegion)
	if err != nil {
		return badRequest(err.Error()), nil
	}

	inputPath, cleanupFile, err := writeTargetsFile([]string{req.Name})
	if err != nil {
		return internalError(opRun, err), nil
	}
	defer cleanupFile()

	result, err := h.fleet.Fleet(ctx, fleet.Request{
		Name:           req.Name,
		NumInstances:   1,
		Image:          req.Image,
		Command:        req.Task,
		InputPath:      inputPath,
		Regions:        regions,
		WaitSeconds:    duration,
		RemoveWhenDone: cleanup,
	})
	if err != nil {
		return internalError(opRun, err), nil
	}

	return Response{
		StatusCode: http.StatusOK,
		Body: map[string]any{
			"operation": opRun,
			"exit_code": result.ExitCode,
			"status":    result.PerInstanceStatus,
			"report":    result.AggregateText,
		},
	}, nil
}

func (h *Handler) handleLs(ctx context.Context) (Response, error) {
	names, err := h.fleet.List(ctx)
	if err != nil {
		return internalError(opLs, err), nil
	}
	return Response{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"operation": opLs, "groups": sortedCopy(names)},
	}, nil
}

type rmRequestBody struct {
	Name string `json:"name"`
}

func (h *Handler) handleRm(ctx context.Context, body []byte) (Response, error) {
	var req rmRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON: %v", err)), nil
	}
	if req.Name == "" {
		return missingFields([]string{"name"}), nil
	}

	removed, err := h.fleet.Remove(ctx, req.Name)
	if err != nil {
		return internalError(opRm, err), nil
	}
	return Response{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"operation": opRm, "removed": sortedCopy(removed)},
	}, nil
}

type ipRequestBody struct {
	Name string `json:"name"`
}

func (h *Handler) handleIPCreate(ctx context.Context, body []byte) (Response, error) {
	var req ipRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON: %v", err)), nil
	}
	if req.Name == "" {
		return missingFields([]string{"name"}), nil
	}

	stack, err := h.network.Create(ctx, req.Name)
	if err != nil {
		return internalError(opIPCreate, err), nil
	}

	h.mu.Lock()
	h.stacks[req.Name] = stack
	h.mu.Unlock()

	return Response{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"operation": opIPCreate, "name": req.Name, "ip": stack.IPv4},
	}, nil
}

func (h *Handler) handleIPLs(ctx context.Context) (Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stacks := make([]map[string]any, 0, len(h.stacks))
	for name, stack := range h.stacks {
		stacks = append(stacks, map[string]any{"name": name, "ip": stack.IPv4})
	}
	return Response{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"operation": opIPLs, "stacks": stacks},
	}, nil
}

func (h *Handler) handleIPRm(ctx context.Context, body []byte) (Response, error) {
	var req ipRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON: %v", err)), nil
	}
	if req.Name == "" {
		return missingFields([]string{"name"}), nil
	}

	h.mu.Lock()
	stack, ok := h.stacks[req.Name]
	h.mu.Unlock()
	if !ok {
		stack = acido.DerivedNetworkStackNames(req.Name)
	}

	if err := h.network.Destroy(ctx, stack); err != nil {
		return internalError(opIPRm, err), nil
	}

	h.mu.Lock()
	delete(h.stacks, req.Name)
	h.mu.Unlock()

	return Response{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"operation": opIPRm, "name": req.Name},
	}, nil
}
