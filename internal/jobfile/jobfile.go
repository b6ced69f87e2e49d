// Package jobfile turns a submission config into Smedge job descriptors and
// renders them in the farm manager's key/value format.
package jobfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/model"
)

var (
	// SectionID heads the file and doubles as the job ID.
	SectionID = uuid.MustParse("4c8e3273-5d60-4d68-af28-23799ab7134c")
	// JobType is the Maya render job type.
	JobType = uuid.MustParse("833c1fa9-fc0b-46da-920a-c4b74b92d5c1")
)

const (
	FileSuffix      = "_SmedgeSettings.sj"
	PackageFileName = "SmedgeSettings.sj"
	DistributeMode  = 1
)

// Target is a resolved scene/project pair as the farm will see it.
type Target struct {
	// ProjectPath is written as Project.
	ProjectPath string
	// ScenePath is written as Scene.
	ScenePath string
	// RenderRoot is the parent of the per-job render directory.
	RenderRoot string
	// JobName is the base name; see JobName.
	JobName string
}

type Options struct {
	// ExtraArgs are appended after the TX flags and before -rl.
	ExtraArgs []string
}

// PacketSizes maps layer names to preset packet sizes.
type PacketSizes map[string]int

// For returns the preset for layer, or 1.
func (p PacketSizes) For(layer string) int {
	if n, ok := p[layer]; ok && n > 0 {
		return n
	}
	return 1
}

// JobName derives the job base name from the render output prefix:
// <Scene> becomes the scene file stem and layer tokens are dropped.
func JobName(imagePrefix, scenePath string) string {
	stem := sceneStem(scenePath)
	name := strings.TrimSpace(imagePrefix)
	if name == "" {
		return stem
	}
	name = strings.ReplaceAll(name, "<Scene>", stem)
	name = strings.ReplaceAll(name, "<RenderLayer>", "")
	name = strings.ReplaceAll(name, "<Layer>", "")
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.Trim(name, "_ ")
	if name == "" {
		return stem
	}
	return name
}

func sceneStem(scenePath string) string {
	base := filepath.Base(strings.ReplaceAll(scenePath, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TxFlags returns the Arnold texture flags for the config.
func TxFlags(generateTx, forceTx bool) []string {
	return []string{
		"-ai:txamm", "no",
		"-ai:txaum", yesNo(generateTx),
		"-ai:txaun", yesNo(generateTx && forceTx),
		"-ai:txett", "yes",
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Build returns one descriptor per enabled layer, in list order.
func Build(cfg model.SubmissionConfig, target Target, opts Options) []model.JobDescriptor {
	jobName := strings.TrimSpace(target.JobName)
	if jobName == "" {
		jobName = sceneStem(target.ScenePath)
	}
	renderDir := filepath.Join(target.RenderRoot, jobName+"_render")

	out := make([]model.JobDescriptor, 0, len(cfg.RenderLayers))
	for _, layer := range cfg.EnabledLayers() {
		extra := TxFlags(cfg.GenerateTx, cfg.ForceTx)
		extra = append(extra, opts.ExtraArgs...)
		extra = append(extra, "-rl", layer.Name)

		packet := layer.PacketSize
		if packet < 1 {
			packet = 1
		}
		out = append(out, model.JobDescriptor{
			Layer:           layer.Name,
			JobName:         jobName + "_" + strings.ToUpper(layer.Name),
			ProjectPath:     target.ProjectPath,
			ScenePath:       target.ScenePath,
			RenderOutputDir: renderDir,
			StartFrame:      cfg.StartFrame,
			EndFrame:        cfg.EndFrame,
			PacketSize:      packet,
			DistributeMode:  DistributeMode,
			ExtraEngineArgs: strings.Join(extra, " "),
		})
	}
	return out
}

// Render emits the job file text. Key order is fixed.
func Render(d model.JobDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", SectionID)
	fmt.Fprintf(&b, "ID = %s\n", SectionID)
	fmt.Fprintf(&b, "Type = %s\n", JobType)
	fmt.Fprintf(&b, "Name = %s\n", d.JobName)
	fmt.Fprintf(&b, "Project = %s\n", d.ProjectPath)
	fmt.Fprintf(&b, "Scene = %s\n", d.ScenePath)
	fmt.Fprintf(&b, "RenderDir = %s\n", d.RenderOutputDir)
	fmt.Fprintf(&b, "Range = %d-%d\n", d.StartFrame, d.EndFrame)
	b.WriteString("Status = 0\n")
	fmt.Fprintf(&b, "PacketSize = %d\n", d.PacketSize)
	fmt.Fprintf(&b, "FailureLimit = %d\n", d.FailureLimit)
	fmt.Fprintf(&b, "OvertimeKill = %d\n", d.OvertimeKill)
	fmt.Fprintf(&b, "DistributeMode = %d\n", d.DistributeMode)
	fmt.Fprintf(&b, "Extra = %s\n", d.ExtraEngineArgs)
	return b.String()
}

// FileName is <jobName>_<LAYER>_SmedgeSettings.sj where jobName is the base
// name without the layer suffix.
func FileName(jobName, layer string) string {
	return jobName + "_" + strings.ToUpper(layer) + FileSuffix
}

// Write renders each descriptor into dir, overwriting existing files, and
// returns the written paths in order.
func Write(dir string, ds []model.JobDescriptor) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("job output directory is required")
	}
	if err := fsstore.Mkdir(dir); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(ds))
	written := make(map[string]string, len(ds))
	for _, d := range ds {
		p := filepath.Join(dir, d.JobName+FileSuffix)
		if prev, ok := written[p]; ok {
			return paths, fmt.Errorf("%w: layers %s and %s both write %s", model.ErrConflict, prev, d.Layer, p)
		}
		written[p] = d.Layer
		if err := fsstore.WriteBytes(p, []byte(Render(d))); err != nil {
			return paths, fmt.Errorf("write job file for layer %s: %w", d.Layer, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteSingle writes one descriptor to an explicit path.
func WriteSingle(path string, d model.JobDescriptor) error {
	return fsstore.WriteBytes(path, []byte(Render(d)))
}
