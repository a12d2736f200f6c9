package composite

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
)

// maxConcurrentBranches caps how many branches run at once.
const maxConcurrentBranches = 10

// Spec is a validated composite tool definition.
type Spec struct {
	// Name is the exposed tool name.
	Name string

	// Description is the exposed tool description.
	Description string

	// InputSchema is the declared JSON Schema for the composite's inputs.
	InputSchema map[string]any

	// Branches maps branch name to its resolved target and template.
	Branches map[string]Branch

	// PartialResults reports completed branches on timeout instead of
	// failing the whole call.
	PartialResults bool
}

// Branch is one concurrent leg of a composite tool.
type Branch struct {
	// Server is the upstream server name.
	Server string

	// Tool is the tool name as the upstream server knows it.
	Tool string

	// Args is the argument template.
	Args map[string]any
}

// FromConfig builds a Spec from its configuration form, resolving the
// dotted "server.tool" addressing. The result is validated; a structurally
// broken definition returns ErrInvalidCompositeSpec.
func FromConfig(name string, cfg *config.CompositeTool) (*Spec, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s has no definition", proxy.ErrInvalidCompositeSpec, name)
	}

	spec := &Spec{
		Name:           name,
		Description:    cfg.Description,
		InputSchema:    cfg.InputSchema,
		Branches:       make(map[string]Branch, len(cfg.Branches)),
		PartialResults: cfg.PartialResults,
	}

	for branchName, b := range cfg.Branches {
		if b == nil {
			return nil, fmt.Errorf("%w: %s branch %q has no definition", proxy.ErrInvalidCompositeSpec, name, branchName)
		}
		server, tool, ok := strings.Cut(b.Tool, ".")
		if !ok || server == "" || tool == "" {
			return nil, fmt.Errorf("%w: %s branch %q target %q must use server.tool addressing",
				proxy.ErrInvalidCompositeSpec, name, branchName, b.Tool)
		}
		spec.Branches[branchName] = Branch{Server: server, Tool: tool, Args: b.Args}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the spec's structure: at least one branch, resolved
// targets, well-formed argument templates. Execution never starts on a spec
// that fails validation.
func (s *Spec) Validate() error {
	if len(s.Branches) == 0 {
		return fmt.Errorf("%w: %s has no branches", proxy.ErrInvalidCompositeSpec, s.Name)
	}
	for name, b := range s.Branches {
		if b.Server == "" || b.Tool == "" {
			return fmt.Errorf("%w: %s branch %q has no target", proxy.ErrInvalidCompositeSpec, s.Name, name)
		}
		if err := validateTemplate(b.Args, 0); err != nil {
			return fmt.Errorf("%w: %s branch %q: %v", proxy.ErrInvalidCompositeSpec, s.Name, name, err)
		}
	}
	return nil
}

// BranchNames returns the branch names in sorted order, for stable logging.
func (s *Spec) BranchNames() []string {
	names := make([]string, 0, len(s.Branches))
	for name := range s.Branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Caller issues one upstream call addressed by server and original tool
// name. The executor is handed this by the view so branch calls travel the
// same upstream path, instrumentation included, as simple calls.
type Caller func(ctx context.Context, server, tool string, args map[string]any) (*proxy.Result, error)

// Executor fans a composite call out to its branches.
type Executor struct {
	caller Caller
}

// NewExecutor creates an executor that issues branch calls through caller.
func NewExecutor(caller Caller) *Executor {
	return &Executor{caller: caller}
}

// Execute runs every branch of the spec concurrently and joins the results.
// Each branch's outcome lands under its branch name: the upstream payload on
// success, {"error": message} on failure. A branch failing never fails the
// call or its siblings. Only a timeout without PartialResults fails the
// whole call.
func (e *Executor) Execute(ctx context.Context, spec *Spec, inputs map[string]any) (map[string]any, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	results := make(map[string]any, len(spec.Branches))
	var mu sync.Mutex

	record := func(branch string, value any) {
		mu.Lock()
		defer mu.Unlock()
		results[branch] = value
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBranches)

	for name, branch := range spec.Branches {
		g.Go(func() error {
			args, err := expandArgs(branch.Args, inputs)
			if err != nil {
				record(name, map[string]any{"error": err.Error()})
				return nil
			}

			res, err := e.caller(gctx, branch.Server, branch.Tool, args)
			if err != nil {
				logger.Debugw("composite branch failed",
					"composite", spec.Name, "branch", name, "error", err)
				record(name, map[string]any{"error": err.Error()})
				return nil
			}
			record(name, resultPayload(res))
			return nil
		})
	}

	// Branch errors are captured per branch, never returned, so Wait only
	// reports context-level failure.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if !spec.PartialResults {
			return nil, fmt.Errorf("%w: composite %s: %v", proxy.ErrTimeout, spec.Name, err)
		}
		mu.Lock()
		for name := range spec.Branches {
			if _, done := results[name]; !done {
				results[name] = map[string]any{"error": "timed out"}
			}
		}
		mu.Unlock()
	}

	return results, nil
}

// resultPayload flattens an upstream result into the branch's output slot.
func resultPayload(res *proxy.Result) any {
	if res == nil {
		return nil
	}
	if res.StructuredContent != nil {
		return res.StructuredContent
	}
	if len(res.Content) == 1 && res.Content[0].Type == "text" {
		return map[string]any{"text": res.Content[0].Text}
	}
	items := make([]any, 0, len(res.Content))
	for _, c := range res.Content {
		switch c.Type {
		case "text":
			items = append(items, map[string]any{"type": "text", "text": c.Text})
		default:
			items = append(items, map[string]any{"type": c.Type, "mime_type": c.MimeType, "uri": c.URI})
		}
	}
	return items
}
