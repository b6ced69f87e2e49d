// Package host is the boundary to the 3D application: scene queries read
// from the exported host document, and the archive step shells out to the
// application's batch command.
package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"smedge-submit/internal/scenegraph"
)

const (
	RenderGlobalsNode  = "defaultRenderGlobals"
	RenderLayerType    = "renderLayer"
	DefaultRenderLayer = "defaultRenderLayer"
)

// Scene is the read-only query surface of an open scene.
type Scene interface {
	ScenePath() string
	FrameRange() (start, end int, err error)
	ImageFilePrefix() (string, error)
	RenderLayers() ([]string, error)
}

// Archiver archives a scene and its referenced assets into <scene>.zip
// next to the scene file.
type Archiver interface {
	Archive(ctx context.Context, scenePath, projectDir string) (string, error)
}

// DocumentScene implements Scene over a host document.
type DocumentScene struct {
	scenePath string
	doc       *scenegraph.Document
}

func NewDocumentScene(scenePath string, doc *scenegraph.Document) *DocumentScene {
	return &DocumentScene{scenePath: scenePath, doc: doc}
}

// OpenScene loads the host document that sits next to scenePath.
func OpenScene(scenePath string) (*DocumentScene, error) {
	abs, err := filepath.Abs(strings.TrimSpace(scenePath))
	if err != nil {
		return nil, fmt.Errorf("resolve scene path %s: %w", scenePath, err)
	}
	doc, err := scenegraph.Open(scenegraph.PathForScene(abs))
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", abs, err)
	}
	return NewDocumentScene(abs, doc), nil
}

func (s *DocumentScene) ScenePath() string {
	return s.scenePath
}

func (s *DocumentScene) Document() *scenegraph.Document {
	return s.doc
}

func (s *DocumentScene) FrameRange() (int, int, error) {
	globals, err := s.globals()
	if err != nil {
		return 0, 0, err
	}
	start, err := globals.Int("startFrame")
	if err != nil {
		return 0, 0, err
	}
	end, err := globals.Int("endFrame")
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ImageFilePrefix returns the render output prefix; unset reads as "".
func (s *DocumentScene) ImageFilePrefix() (string, error) {
	globals, err := s.globals()
	if err != nil {
		return "", err
	}
	if !globals.Has("imageFilePrefix") {
		return "", nil
	}
	return globals.String("imageFilePrefix")
}

func (s *DocumentScene) RenderLayers() ([]string, error) {
	nodes := s.doc.NodesOfType(RenderLayerType)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Name == DefaultRenderLayer {
			continue
		}
		out = append(out, n.Name)
	}
	return out, nil
}

func (s *DocumentScene) globals() (*scenegraph.Node, error) {
	n, ok := s.doc.Node(RenderGlobalsNode)
	if !ok {
		return nil, errors.New("host document has no " + RenderGlobalsNode + " node")
	}
	return n, nil
}
