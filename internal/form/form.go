// Package form is the view state of the submission form. Reflect builds the
// field list from a config and Collect reads one back; nothing is bound
// automatically, the caller invokes each explicitly.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"

	"smedge-submit/internal/model"
)

type FieldKind int

const (
	FieldString FieldKind = iota
	FieldInt
	FieldBool
)

const (
	KeyGenerateTx     = "generate_tx"
	KeyForceTx        = "force_tx"
	KeyStartFrame     = "start_frame"
	KeyEndFrame       = "end_frame"
	KeyNetworkProject = "network_project"
	KeyNetworkRender  = "network_render"
	KeyExcludeDirs    = "exclude_dirs"
	KeyLayerEnabled   = "layer_enabled"
	KeyLayerPacket    = "layer_packet"
)

type Field struct {
	Key      string
	Label    string
	Help     string
	Kind     FieldKind
	Value    string
	Required bool
	// Layer names the render layer for per-layer fields.
	Layer string
	// Disabled fields are rendered grayed and ignore edits.
	Disabled bool
}

// LayerView is how one layer row is presented.
type LayerView struct {
	Name           string
	Enabled        bool
	PacketEditable bool
	Grayed         bool
}

// LayerDisplay maps a layer to its presentation: a disabled layer keeps its
// packet size but the control is grayed and read-only.
func LayerDisplay(l model.RenderLayer) LayerView {
	return LayerView{
		Name:           l.Name,
		Enabled:        l.Enabled,
		PacketEditable: l.Enabled,
		Grayed:         !l.Enabled,
	}
}

// Reflect builds a fresh field list for cfg. Layer rows follow list order.
func Reflect(cfg model.SubmissionConfig) []Field {
	fields := []Field{
		{Key: KeyGenerateTx, Label: "Generate TX", Help: "Let the renderer build missing .tx textures", Kind: FieldBool, Value: FormatBool(cfg.GenerateTx)},
		{Key: KeyForceTx, Label: "Force TX", Help: "Rebuild .tx textures even when up to date", Kind: FieldBool, Value: FormatBool(cfg.ForceTx)},
		{Key: KeyStartFrame, Label: "Start Frame", Kind: FieldInt, Value: strconv.Itoa(cfg.StartFrame), Required: true},
		{Key: KeyEndFrame, Label: "End Frame", Kind: FieldInt, Value: strconv.Itoa(cfg.EndFrame), Required: true},
	}
	for _, l := range cfg.RenderLayers {
		view := LayerDisplay(l)
		fields = append(fields,
			Field{Key: KeyLayerEnabled, Label: l.Name, Help: "Submit this render layer", Kind: FieldBool, Value: FormatBool(l.Enabled), Layer: l.Name},
			Field{Key: KeyLayerPacket, Label: l.Name + " packet size", Help: "Frames per farm work unit", Kind: FieldInt, Value: strconv.Itoa(l.PacketSize), Layer: l.Name, Disabled: view.Grayed},
		)
	}
	fields = append(fields,
		Field{Key: KeyNetworkProject, Label: "Network Project Directory", Help: "Mirror destination the farm renders from", Kind: FieldString, Value: cfg.NetworkProjectLocation},
		Field{Key: KeyNetworkRender, Label: "Network Render Output Directory", Help: "Parent of <job>_render", Kind: FieldString, Value: cfg.NetworkRenderLocation},
		Field{Key: KeyExcludeDirs, Label: "Exclude Directories", Help: "Comma-separated names skipped when mirroring", Kind: FieldString, Value: strings.Join(cfg.ExcludeDirectories, ", ")},
	)
	return fields
}

// RefreshLayerDisplay re-derives the Disabled flag of every packet-size
// field from its layer's enabled field.
func RefreshLayerDisplay(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	enabled := map[string]bool{}
	for _, f := range out {
		if f.Key == KeyLayerEnabled {
			v, _ := ParseBool(f.Value)
			enabled[f.Layer] = v
		}
	}
	for i, f := range out {
		if f.Key == KeyLayerPacket {
			out[i].Disabled = LayerDisplay(model.RenderLayer{Name: f.Layer, Enabled: enabled[f.Layer]}).Grayed
		}
	}
	return out
}

// Collect reads a config back from the fields and validates it.
func Collect(fields []Field) (model.SubmissionConfig, error) {
	cfg := model.SubmissionConfig{
		RenderLayers:       []model.RenderLayer{},
		ExcludeDirectories: []string{},
	}
	layerIndex := map[string]int{}
	layer := func(name string) *model.RenderLayer {
		if i, ok := layerIndex[name]; ok {
			return &cfg.RenderLayers[i]
		}
		layerIndex[name] = len(cfg.RenderLayers)
		cfg.RenderLayers = append(cfg.RenderLayers, model.RenderLayer{Name: name, PacketSize: 1})
		return &cfg.RenderLayers[len(cfg.RenderLayers)-1]
	}

	var errs []error
	for _, f := range fields {
		v := strings.TrimSpace(f.Value)
		label := strings.ToLower(f.Label)
		if f.Required && v == "" {
			errs = append(errs, fmt.Errorf("%s is required", label))
			continue
		}
		switch f.Key {
		case KeyGenerateTx, KeyForceTx, KeyLayerEnabled:
			b, ok := ParseBool(v)
			if !ok {
				errs = append(errs, fmt.Errorf("%s must be y or n", label))
				continue
			}
			switch f.Key {
			case KeyGenerateTx:
				cfg.GenerateTx = b
			case KeyForceTx:
				cfg.ForceTx = b
			default:
				layer(f.Layer).Enabled = b
			}
		case KeyStartFrame, KeyEndFrame:
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s must be an integer", label))
				continue
			}
			if f.Key == KeyStartFrame {
				cfg.StartFrame = n
			} else {
				cfg.EndFrame = n
			}
		case KeyLayerPacket:
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				errs = append(errs, fmt.Errorf("%s must be an integer >= 1", label))
				continue
			}
			layer(f.Layer).PacketSize = n
		case KeyNetworkProject:
			cfg.NetworkProjectLocation = v
		case KeyNetworkRender:
			cfg.NetworkRenderLocation = v
		case KeyExcludeDirs:
			cfg.ExcludeDirectories = model.NormalizeDirectories(strings.Split(v, ","))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return model.SubmissionConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return model.SubmissionConfig{}, err
	}
	return cfg, nil
}

// Clone deep-copies cfg so edits in the form never alias the loaded value.
func Clone(cfg model.SubmissionConfig) (model.SubmissionConfig, error) {
	var out model.SubmissionConfig
	if err := copier.CopyWithOption(&out, &cfg, copier.Option{DeepCopy: true}); err != nil {
		return model.SubmissionConfig{}, fmt.Errorf("copy submission config: %w", err)
	}
	return out, nil
}

func ParseBool(raw string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0", "":
		return false, true
	default:
		return false, false
	}
}

func FormatBool(v bool) string {
	if v {
		return "y"
	}
	return "n"
}
