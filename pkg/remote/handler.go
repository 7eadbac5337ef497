package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/fleet"
	"github.com/merabytes/acido/pkg/log"
)

const maxRequestBody = 1 << 20 // 1MiB

const (
	opFleet    = "fleet"
	opRun      = "run"
	opLs       = "ls"
	opRm       = "rm"
	opIPCreate = "ip_create"
	opIPLs     = "ip_ls"
	opIPRm     = "ip_rm"

	defaultRunDuration = 900
	maxRunDuration     = 900
)

// FleetController is the subset of the Fleet Controller the handler drives.
type FleetController interface {
	Fleet(ctx context.Context, req fleet.Request) (*acido.FleetResult, error)
	List(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, pattern string) ([]string, error)
}

// NetworkStackManager is the subset of the Network Stack Manager the
// handler drives for ip_create/ip_rm.
type NetworkStackManager interface {
	Create(ctx context.Context, base string) (acido.NetworkStack, error)
	Destroy(ctx context.Context, stack acido.NetworkStack) error
}

// Handler dispatches Remote Request Handler operations. It holds no
// persisted state of its own beyond the NetworkStacks it creates in this
// process's lifetime — stack bookkeeping, like fleet scheduling state, is
// not carried across invocations.
type Handler struct {
	fleet         FleetController
	network       NetworkStackManager
	defaultImage  string
	defaultRegion string

	mu     sync.Mutex
	stacks map[string]acido.NetworkStack
}

// New builds a Handler. defaultRegion is used whenever a request omits
// regions.
func New(controller FleetController, networkMgr NetworkStackManager, defaultRegion string) *Handler {
	return &Handler{
		fleet:         controller,
		network:       networkMgr,
		defaultRegion: defaultRegion,
		stacks:        map[string]acido.NetworkStack{},
	}
}

// Response is the {statusCode, body} envelope every operation returns.
type Response struct {
	StatusCode int            `json:"statusCode"`
	Body       map[string]any `json:"body"`
}

// Handle parses body as a JSON request and dispatches it. Malformed JSON,
// an unknown operation, and missing required fields surface as a 400
// Response, and operation failures as a 500 Response; the returned error
// is always nil.
func (h *Handler) Handle(ctx context.Context, body []byte) (Response, error) {
	var env struct {
		Operation string `json:"operation"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON: %v", err)), nil
	}

	logger := log.WithComponent("remote")
	logger.Info().Str("operation", env.Operation).Msg("dispatching remote request")

	switch env.Operation {
	case opFleet:
		return h.handleFleet(ctx, body)
	case opRun:
		return h.handleRun(ctx, body)
	case opLs:
		return h.handleLs(ctx)
	case opRm:
		return h.handleRm(ctx, body)
	case opIPCreate:
		return h.handleIPCreate(ctx, body)
	case opIPLs:
		return h.handleIPLs(ctx)
	case opIPRm:
		return h.handleIPRm(ctx, body)
	default:
		return badRequest("Invalid operation"), nil
	}
}

// ServeHTTP lets Handler be mounted directly as an http.Handler (e.g. under
// a chi router) for callers that want a plain HTTP surface rather than
// driving Handle() themselves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, badRequest(fmt.Sprintf("read body: %v", err)))
		return
	}

	resp, err := h.Handle(r.Context(), body)
	if err != nil {
		writeJSON(w, Response{StatusCode: http.StatusInternalServerError, Body: map[string]any{"error": err.Error()}})
		return
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func badRequest(msg string) Response {
	return Response{StatusCode: http.StatusBadRequest, Body: map[string]any{"error": msg}}
}

func internalError(operation string, err error) Response {
	return Response{StatusCode: http.StatusInternalServerError, Body: map[string]any{"operation": operation, "error": err.Error()}}
}

func missingFields(missing []string) Response {
	return Response{StatusCode: http.StatusBadRequest, Body: map[string]any{"error": "missing required fields", "fields": missing}}
}

// normalizeRegions accepts either a single string or an array of strings
// for the `regions` field, per the fleet/run schema.
func normalizeRegions(raw json.RawMessage, fallback string) ([]string, error) {
	if len(raw) == 0 {
		return []string{fallback}, nil
	}

	var asSlice []string
	if err := json.Unmarshal(raw, &asSlice); err == nil {
		if len(asSlice) == 0 {
			return []string{fallback}, nil
		}
		return asSlice, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return []string{fallback}, nil
		}
		return []string{asString}, nil
	}

	return nil, fmt.Errorf("regions must be a string or an array of strings")
}

func sortedCopy(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	return out
}
