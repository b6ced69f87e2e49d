package settings

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"smedge-submit/internal/fsstore"
	"smedge-submit/internal/host"
	"smedge-submit/internal/model"
)

// FileStore keeps the settings in a standalone YAML file with one ordered
// list of layer records. The scene is optional; without one no
// reconciliation happens.
type FileStore struct {
	tracker
	file      string
	hostScene host.Scene
}

type fileRecord struct {
	Revision int    `yaml:"revision"`
	Scene    string `yaml:"scene,omitempty"`

	model.SubmissionConfig `yaml:",inline"`
}

func NewFileStore(path string, scene host.Scene, d Defaults) *FileStore {
	s := &FileStore{file: path, hostScene: scene}
	s.tracker = tracker{b: s, defaults: d}
	return s
}

func (s *FileStore) path() string {
	return s.file
}

func (s *FileStore) scene() (host.Scene, error) {
	return s.hostScene, nil
}

func (s *FileStore) read() (record, bool, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return record{}, false, nil
		}
		return record{}, false, fmt.Errorf("read settings %s: %w", s.file, err)
	}
	var fr fileRecord
	if err := yaml.Unmarshal(data, &fr); err != nil {
		return record{}, false, fmt.Errorf("parse settings %s: %w", s.file, err)
	}
	if fr.RenderLayers == nil {
		fr.RenderLayers = []model.RenderLayer{}
	}
	if fr.ExcludeDirectories == nil {
		fr.ExcludeDirectories = []string{}
	}
	return record{Revision: fr.Revision, Config: fr.SubmissionConfig}, true, nil
}

func (s *FileStore) write(rec record) error {
	fr := fileRecord{Revision: rec.Revision, SubmissionConfig: rec.Config}
	if s.hostScene != nil {
		fr.Scene = s.hostScene.ScenePath()
	}
	data, err := yaml.Marshal(fr)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return fsstore.WriteBytes(s.file, data)
}
