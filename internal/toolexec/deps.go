package toolexec

import "os/exec"

type Dependency struct {
	Name  string `json:"name"`
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// DependencyStatus looks each binary up on PATH.
func DependencyStatus(names ...string) []Dependency {
	out := make([]Dependency, 0, len(names))
	for _, name := range names {
		dep := Dependency{Name: name}
		if path, err := exec.LookPath(name); err == nil {
			dep.Found = true
			dep.Path = path
		}
		out = append(out, dep)
	}
	return out
}

func (d Dependency) Message() string {
	if d.Found {
		return d.Name + " found at " + d.Path
	}
	return d.Name + " not found on PATH"
}
