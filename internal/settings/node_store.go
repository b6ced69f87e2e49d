package settings

import (
	"errors"
	"fmt"
	"os"

	"smedge-submit/internal/host"
	"smedge-submit/internal/model"
	"smedge-submit/internal/scenegraph"
)

const (
	SettingsNode     = "smedgeSubmitSettings"
	SettingsNodeType = "smedgeSubmitSettings"
)

// Attribute names on the settings node. The layer list is kept as three
// index-aligned arrays so scenes saved by older tools still load.
const (
	attrLayerNames     = "renderLayerNames"
	attrLayerEnabled   = "renderLayerEnabled"
	attrLayerPackets   = "renderLayerPacketSizes"
	attrGenerateTx     = "generateTx"
	attrForceTx        = "forceTx"
	attrNetworkProject = "networkProjectLocation"
	attrNetworkRender  = "networkRenderLocation"
	attrExcludeDirs    = "excludeDirectories"
	attrStartFrame     = "startFrame"
	attrEndFrame       = "endFrame"
	attrRevision       = "revision"
)

// NodeStore keeps the settings on a custom node in the scene's host
// document.
type NodeStore struct {
	tracker
	scenePath string
}

func NewNodeStore(scenePath string, d Defaults) *NodeStore {
	s := &NodeStore{scenePath: scenePath}
	s.tracker = tracker{b: s, defaults: d}
	return s
}

func (s *NodeStore) path() string {
	return scenegraph.PathForScene(s.scenePath)
}

func (s *NodeStore) scene() (host.Scene, error) {
	return host.OpenScene(s.scenePath)
}

func (s *NodeStore) read() (record, bool, error) {
	doc, err := scenegraph.Open(s.path())
	if err != nil {
		return record{}, false, err
	}
	n, ok := doc.Node(SettingsNode)
	if !ok {
		return record{}, false, nil
	}
	rec, err := decodeNode(n)
	if err != nil {
		return record{}, false, fmt.Errorf("read %s: %w", SettingsNode, err)
	}
	return rec, true, nil
}

func (s *NodeStore) write(rec record) error {
	doc, err := scenegraph.Open(s.path())
	if err != nil {
		return err
	}
	encodeNode(doc.EnsureNode(SettingsNode, SettingsNodeType), rec)
	return doc.Save()
}

func encodeNode(n *scenegraph.Node, rec record) {
	layers := rec.Config.RenderLayers
	names := make([]string, len(layers))
	enabled := make([]bool, len(layers))
	packets := make([]int, len(layers))
	for i, l := range layers {
		names[i] = l.Name
		enabled[i] = l.Enabled
		packets[i] = l.PacketSize
	}
	n.Set(attrLayerNames, names)
	n.Set(attrLayerEnabled, enabled)
	n.Set(attrLayerPackets, packets)
	n.Set(attrGenerateTx, rec.Config.GenerateTx)
	n.Set(attrForceTx, rec.Config.ForceTx)
	n.Set(attrNetworkProject, rec.Config.NetworkProjectLocation)
	n.Set(attrNetworkRender, rec.Config.NetworkRenderLocation)
	n.Set(attrExcludeDirs, append([]string{}, rec.Config.ExcludeDirectories...))
	n.Set(attrStartFrame, rec.Config.StartFrame)
	n.Set(attrEndFrame, rec.Config.EndFrame)
	n.Set(attrRevision, rec.Revision)
}

// decodeNode tolerates missing attributes. Mismatched array lengths are cut
// to the shortest; reconciliation re-adds any layer lost that way.
func decodeNode(n *scenegraph.Node) (record, error) {
	var rec record
	var errs []error

	names, err := optional(n, attrLayerNames, n.StringArray, []string{})
	errs = append(errs, err)
	enabled, err := optional(n, attrLayerEnabled, n.BoolArray, []bool{})
	errs = append(errs, err)
	packets, err := optional(n, attrLayerPackets, n.IntArray, []int{})
	errs = append(errs, err)

	count := min(len(names), len(enabled), len(packets))
	rec.Config.RenderLayers = make([]model.RenderLayer, 0, count)
	for i := 0; i < count; i++ {
		rec.Config.RenderLayers = append(rec.Config.RenderLayers, model.RenderLayer{
			Name:       names[i],
			Enabled:    enabled[i],
			PacketSize: max(packets[i], 1),
		})
	}

	rec.Config.GenerateTx, err = optional(n, attrGenerateTx, n.Bool, false)
	errs = append(errs, err)
	rec.Config.ForceTx, err = optional(n, attrForceTx, n.Bool, false)
	errs = append(errs, err)
	rec.Config.NetworkProjectLocation, err = optional(n, attrNetworkProject, n.String, "")
	errs = append(errs, err)
	rec.Config.NetworkRenderLocation, err = optional(n, attrNetworkRender, n.String, "")
	errs = append(errs, err)
	rec.Config.ExcludeDirectories, err = optional(n, attrExcludeDirs, n.StringArray, []string{})
	errs = append(errs, err)
	rec.Config.StartFrame, err = optional(n, attrStartFrame, n.Int, 1)
	errs = append(errs, err)
	rec.Config.EndFrame, err = optional(n, attrEndFrame, n.Int, rec.Config.StartFrame)
	errs = append(errs, err)
	rec.Revision, err = optional(n, attrRevision, n.Int, 0)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return record{}, err
	}
	return rec, nil
}

func optional[T any](n *scenegraph.Node, attr string, get func(string) (T, error), fallback T) (T, error) {
	if !n.Has(attr) {
		return fallback, nil
	}
	return get(attr)
}

// IsMissingDocument reports whether err means the scene has no host
// document yet.
func IsMissingDocument(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
