package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smedge-submit/internal/model"
)

const (
	lockDirName   = ".smedge-submit.lock"
	lockOwnerFile = "owner.json"
)

// Lock guards an output location against a second concurrent submission.
type Lock struct {
	lockDir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
}

// AcquireLock creates the lock directory inside dir. A held lock is reported
// as model.ErrConflict together with the owner that holds it.
func AcquireLock(dir, purpose string) (Lock, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return Lock{}, fmt.Errorf("lock directory is required")
	}
	if err := Mkdir(target); err != nil {
		return Lock{}, err
	}

	lockDir := filepath.Join(target, lockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, lockOwnerFile)
			var owner lockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return Lock{}, fmt.Errorf(
					"%w: output location is locked: %s (pid=%d created_at=%s host=%s purpose=%s)",
					model.ErrConflict, target, owner.PID, owner.CreatedAt, owner.Hostname, owner.Purpose,
				)
			}
			return Lock{}, fmt.Errorf("%w: output location is locked: %s", model.ErrConflict, target)
		}
		return Lock{}, fmt.Errorf("acquire lock for %s: %w", target, err)
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
		Purpose:   purpose,
	}
	if err := WriteJSON(filepath.Join(lockDir, lockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return Lock{}, fmt.Errorf("write lock owner for %s: %w", target, err)
	}

	return Lock{lockDir: lockDir}, nil
}

func (l Lock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
