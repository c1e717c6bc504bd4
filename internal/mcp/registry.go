package mcp

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/config"
)

var (
	ErrDuplicateTool  = errors.New("duplicate tool")
	ErrUnknownTool    = errors.New("unknown tool")
	ErrRegistrySealed = errors.New("tool registry is sealed")
)

type Registry interface {
	Register(spec ToolSpec) error
	Lookup(name string) (ToolSpec, error)
	List() []ToolSpec
}

type registeredTool struct {
	spec   ToolSpec
	input  *jsonschema.Resolved
	output *jsonschema.Resolved
}

// ToolRegistry maps tool names to specs with their compiled schemas. It is
// written during startup and read lock-free once sealed.
type ToolRegistry struct {
	cfg    *config.Config
	mu     sync.RWMutex
	sealed atomic.Bool
	tools  map[string]*registeredTool
	order  []string
	// skipped holds names filtered out by safety settings.
	skipped map[string]struct{}
}

func NewRegistry(cfg *config.Config) *ToolRegistry {
	return &ToolRegistry{cfg: cfg, tools: map[string]*registeredTool{}, skipped: map[string]struct{}{}}
}

// Register adds spec. Tools excluded by the safety settings are skipped
// without error, but only after the duplicate check.
func (r *ToolRegistry) Register(spec ToolSpec) error {
	if spec.Name == "" {
		return errors.New("tool name required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %q: handler required", spec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, spec.Name)
	}
	_, exists := r.tools[spec.Name]
	_, skipped := r.skipped[spec.Name]
	if exists || skipped {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, spec.Name)
	}
	if !r.allowedBySafety(spec) {
		r.skipped[spec.Name] = struct{}{}
		return nil
	}
	if spec.InputSchema == nil {
		spec.InputSchema = &jsonschema.Schema{Type: "object"}
	}
	input, err := spec.InputSchema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("tool %q: input schema: %w", spec.Name, err)
	}
	tool := &registeredTool{spec: spec, input: input}
	if spec.OutputSchema != nil {
		output, err := spec.OutputSchema.Resolve(&jsonschema.ResolveOptions{})
		if err != nil {
			return fmt.Errorf("tool %q: output schema: %w", spec.Name, err)
		}
		tool.output = output
	}
	r.tools[spec.Name] = tool
	r.order = append(r.order, spec.Name)
	return nil
}

// Seal freezes the registry. Later Register calls fail.
func (r *ToolRegistry) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

func (r *ToolRegistry) Sealed() bool { return r.sealed.Load() }

func (r *ToolRegistry) Lookup(name string) (ToolSpec, error) {
	tool, err := r.lookup(name)
	if err != nil {
		return ToolSpec{}, err
	}
	return tool.spec, nil
}

func (r *ToolRegistry) lookup(name string) (*registeredTool, error) {
	var tool *registeredTool
	var ok bool
	if r.sealed.Load() {
		tool, ok = r.tools[name]
	} else {
		r.mu.RLock()
		tool, ok = r.tools[name]
		r.mu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool, nil
}

// List returns specs in registration order.
func (r *ToolRegistry) List() []ToolSpec {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

func (r *ToolRegistry) Names() []string {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	names := slices.Clone(r.order)
	sort.Strings(names)
	return names
}

// Infos describes the tools as advertised to clients.
func (r *ToolRegistry) Infos() []ToolInfo {
	specs := r.List()
	infos := make([]ToolInfo, 0, len(specs))
	for _, spec := range specs {
		infos = append(infos, ToolInfo{
			Name:         spec.Name,
			Description:  spec.Description,
			Toolset:      spec.ToolsetID,
			Safety:       spec.Safety,
			InputSchema:  advertisedInputSchema(spec.InputSchema),
			OutputSchema: envelopeSchema(spec.OutputSchema),
		})
	}
	return infos
}

func (r *ToolRegistry) allowedBySafety(spec ToolSpec) bool {
	if r.cfg == nil {
		return true
	}
	if r.cfg.ReadOnly {
		return spec.Safety == SafetyReadOnly || spec.Safety == ""
	}
	if r.cfg.DisableDestructive {
		if spec.Safety == SafetyDestructive || spec.Safety == SafetyRiskyWrite {
			return slices.Contains(r.cfg.Safety.AllowDestructiveTools, spec.Name)
		}
	}
	return true
}
