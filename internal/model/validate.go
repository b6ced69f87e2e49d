package model

import (
	"fmt"
	"strings"
)

// Validate checks the invariants the job-file generator relies on.
func (c SubmissionConfig) Validate() error {
	var errs []string
	if c.EndFrame < c.StartFrame {
		errs = append(errs, fmt.Sprintf("end frame %d is before start frame %d", c.EndFrame, c.StartFrame))
	}
	seen := make(map[string]bool, len(c.RenderLayers))
	// Job files are named after the upper-cased layer, so enabled layers
	// differing only in case would write the same file.
	jobNames := make(map[string]string, len(c.RenderLayers))
	for i, l := range c.RenderLayers {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("render_layers[%d].name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("render layer %q is listed twice", name))
		}
		seen[name] = true
		if l.Enabled {
			upper := strings.ToUpper(name)
			if other, ok := jobNames[upper]; ok && other != name {
				errs = append(errs, fmt.Sprintf("render layers %q and %q map to the same job file", other, name))
			}
			jobNames[upper] = name
		}
		if l.PacketSize < 1 {
			errs = append(errs, fmt.Sprintf("render layer %q packet size must be >= 1", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Normalize returns the stored form of c: slices are copied and never nil,
// and exclude directories go through NormalizeDirectories.
func (c SubmissionConfig) Normalize() SubmissionConfig {
	out := c
	out.RenderLayers = append(make([]RenderLayer, 0, len(c.RenderLayers)), c.RenderLayers...)
	out.ExcludeDirectories = NormalizeDirectories(c.ExcludeDirectories)
	return out
}

// NormalizeDirectories trims, drops empties and duplicates, keeping order.
func NormalizeDirectories(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, d := range raw {
		v := strings.TrimSpace(d)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
