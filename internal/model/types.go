package model

// RenderLayer is one render layer known to the host scene and its per-layer
// submission options.
type RenderLayer struct {
	Name       string `json:"name" yaml:"name"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	PacketSize int    `json:"packet_size" yaml:"packet_size"`
}

// SubmissionConfig is the persisted set of submission options for a scene.
type SubmissionConfig struct {
	RenderLayers           []RenderLayer `json:"render_layers" yaml:"render_layers"`
	GenerateTx             bool          `json:"generate_tx" yaml:"generate_tx"`
	ForceTx                bool          `json:"force_tx" yaml:"force_tx"`
	NetworkProjectLocation string        `json:"network_project_location" yaml:"network_project_location"`
	NetworkRenderLocation  string        `json:"network_render_location" yaml:"network_render_location"`
	ExcludeDirectories     []string      `json:"exclude_directories" yaml:"exclude_directories"`
	StartFrame             int           `json:"start_frame" yaml:"start_frame"`
	EndFrame               int           `json:"end_frame" yaml:"end_frame"`
}

// JobDescriptor is derived at submission time, one per enabled render layer.
// It is never mutated after being written.
type JobDescriptor struct {
	Layer           string `json:"layer,omitempty"`
	JobName         string `json:"job_name"`
	ProjectPath     string `json:"project_path"`
	ScenePath       string `json:"scene_path"`
	RenderOutputDir string `json:"render_output_dir"`
	StartFrame      int    `json:"start_frame"`
	EndFrame        int    `json:"end_frame"`
	PacketSize      int    `json:"packet_size"`
	FailureLimit    int    `json:"failure_limit"`
	OvertimeKill    int    `json:"overtime_kill"`
	DistributeMode  int    `json:"distribute_mode"`
	ExtraEngineArgs string `json:"extra_engine_args"`
}

// EnabledLayers returns the enabled layers in list order.
func (c SubmissionConfig) EnabledLayers() []RenderLayer {
	out := make([]RenderLayer, 0, len(c.RenderLayers))
	for _, l := range c.RenderLayers {
		if l.Enabled {
			out = append(out, l)
		}
	}
	return out
}

// LayerNames returns the layer names in list order.
func (c SubmissionConfig) LayerNames() []string {
	out := make([]string, 0, len(c.RenderLayers))
	for _, l := range c.RenderLayers {
		out = append(out, l.Name)
	}
	return out
}
