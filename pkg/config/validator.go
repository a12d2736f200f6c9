package config

import (
	"fmt"
	"strings"

	"github.com/toolview/toolview/pkg/proxy"
)

// DefaultValidator implements comprehensive configuration validation.
type DefaultValidator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{}
}

// Validate performs comprehensive validation of the configuration.
func (v *DefaultValidator) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is nil", proxy.ErrInvalidConfig)
	}

	var errs []string

	if len(cfg.Servers) == 0 {
		errs = append(errs, "at least one upstream server is required")
	}

	for name, srv := range cfg.Servers {
		if err := v.validateServer(name, srv); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for name, view := range cfg.Views {
		if err := v.validateView(name, view, cfg.Servers); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", proxy.ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

func (v *DefaultValidator) validateServer(name string, srv *UpstreamServer) error {
	if srv == nil {
		return fmt.Errorf("server %q: definition is empty", name)
	}

	switch srv.Transport {
	case TransportStdio:
		if len(srv.Command) == 0 {
			return fmt.Errorf("server %q: stdio transport requires a command", name)
		}
		if srv.URL != "" {
			return fmt.Errorf("server %q: stdio transport does not take a url", name)
		}
	case TransportSSE, TransportStreamableHTTP:
		if srv.URL == "" {
			return fmt.Errorf("server %q: %s transport requires a url", name, srv.Transport)
		}
		if len(srv.Command) != 0 {
			return fmt.Errorf("server %q: %s transport does not take a command", name, srv.Transport)
		}
	default:
		return fmt.Errorf("server %q: unsupported transport %q (allowed: %s)",
			name, srv.Transport, strings.Join(AllowedTransports, ", "))
	}

	for toolName, override := range srv.Tools {
		if err := v.validateOverride(name, toolName, override); err != nil {
			return err
		}
	}

	return nil
}

func (v *DefaultValidator) validateOverride(server, tool string, o *ToolOverride) error {
	if o == nil {
		return nil
	}

	for _, alias := range o.Aliases {
		if alias.Name == "" {
			return fmt.Errorf("server %q: tool %q: alias without a name", server, tool)
		}
	}

	for param, po := range o.Parameters {
		if po == nil {
			continue
		}
		if po.Hide && po.Name != "" {
			return fmt.Errorf("server %q: tool %q: parameter %q cannot be both hidden and renamed",
				server, tool, param)
		}
	}

	return nil
}

func (v *DefaultValidator) validateView(name string, view *View, servers map[string]*UpstreamServer) error {
	if view == nil {
		return fmt.Errorf("view %q: definition is empty", name)
	}

	if view.Exposure != ExposureDirect && view.Exposure != ExposureSearch {
		return fmt.Errorf("view %q: unsupported exposure mode %q (allowed: %s, %s)",
			name, view.Exposure, ExposureDirect, ExposureSearch)
	}

	// Every exposed name must be unique across the view's surface.
	exposed := make(map[string]string)
	claim := func(exposedName, origin string) error {
		if prev, ok := exposed[exposedName]; ok {
			return fmt.Errorf("view %q: exposed name %q declared by both %s and %s",
				name, exposedName, prev, origin)
		}
		exposed[exposedName] = origin
		return nil
	}

	for serverName, tools := range view.Tools {
		if _, ok := servers[serverName]; !ok {
			return fmt.Errorf("view %q: references unknown server %q", name, serverName)
		}
		for toolName, override := range tools {
			if err := v.validateOverride(serverName, toolName, override); err != nil {
				return fmt.Errorf("view %q: %w", name, err)
			}
			if override == nil {
				if err := claim(toolName, fmt.Sprintf("%s.%s", serverName, toolName)); err != nil {
					return err
				}
				continue
			}
			// Aliases replace the primary exposure, so only one side claims
			// names.
			if len(override.Aliases) > 0 {
				for _, alias := range override.Aliases {
					if err := claim(alias.Name, fmt.Sprintf("%s.%s alias", serverName, toolName)); err != nil {
						return err
					}
				}
				continue
			}
			exposedName := toolName
			if override.Name != "" {
				exposedName = override.Name
			}
			if err := claim(exposedName, fmt.Sprintf("%s.%s", serverName, toolName)); err != nil {
				return err
			}
		}
	}

	for compName, comp := range view.Composites {
		if err := v.validateComposite(name, compName, comp, servers); err != nil {
			return err
		}
		if err := claim(compName, "composite definition"); err != nil {
			return err
		}
	}

	return nil
}

func (*DefaultValidator) validateComposite(view, name string, comp *CompositeTool, servers map[string]*UpstreamServer) error {
	if comp == nil {
		return fmt.Errorf("view %q: composite %q: definition is empty", view, name)
	}

	if len(comp.Branches) == 0 {
		return fmt.Errorf("view %q: composite %q: at least one branch is required", view, name)
	}

	for branch, b := range comp.Branches {
		if b == nil || b.Tool == "" {
			return fmt.Errorf("view %q: composite %q: branch %q has no target tool", view, name, branch)
		}
		server, tool, ok := strings.Cut(b.Tool, ".")
		if !ok || server == "" || tool == "" {
			return fmt.Errorf("view %q: composite %q: branch %q target %q must use server.tool addressing",
				view, name, branch, b.Tool)
		}
		if _, exists := servers[server]; !exists {
			return fmt.Errorf("view %q: composite %q: branch %q references unknown server %q",
				view, name, branch, server)
		}
	}

	return nil
}
