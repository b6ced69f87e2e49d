// Package history keeps a local SQLite ledger of submissions so artists can
// see what was sent to the farm and what failed.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"smedge-submit/internal/fsstore"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Submission is one ledger row.
type Submission struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ScenePath      string    `gorm:"size:1024;index" json:"scene_path"`
	JobName        string    `gorm:"size:255" json:"job_name"`
	OutputDir      string    `gorm:"size:1024" json:"output_dir"`
	Layers         string    `gorm:"type:text" json:"-"`
	JobFiles       string    `gorm:"type:text" json:"-"`
	MirrorExitCode *int      `json:"mirror_exit_code,omitempty"`
	Status         string    `gorm:"size:16;index" json:"status"`
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s Submission) LayerList() []string {
	return decodeList(s.Layers)
}

func (s Submission) JobFileList() []string {
	return decodeList(s.JobFiles)
}

// Entry is the input for Record.
type Entry struct {
	ScenePath      string
	JobName        string
	OutputDir      string
	Layers         []string
	JobFiles       []string
	MirrorExitCode *int
	Err            error
}

type Ledger struct {
	db *gorm.DB
}

// Open opens or creates the ledger database at path. ":memory:" is accepted
// for tests.
func Open(path string) (*Ledger, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, fmt.Errorf("history: database path is required")
	}
	if p != ":memory:" {
		if err := fsstore.Mkdir(filepath.Dir(p)); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(p), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", p, err)
	}
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return nil, fmt.Errorf("history: auto-migrate: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record appends one submission outcome.
func (l *Ledger) Record(ctx context.Context, e Entry) (Submission, error) {
	layers, err := encodeList(e.Layers)
	if err != nil {
		return Submission{}, err
	}
	files, err := encodeList(e.JobFiles)
	if err != nil {
		return Submission{}, err
	}
	row := Submission{
		ScenePath:      e.ScenePath,
		JobName:        e.JobName,
		OutputDir:      e.OutputDir,
		Layers:         layers,
		JobFiles:       files,
		MirrorExitCode: e.MirrorExitCode,
		Status:         StatusSucceeded,
	}
	if e.Err != nil {
		row.Status = StatusFailed
		row.Error = e.Err.Error()
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Submission{}, fmt.Errorf("history: record submission: %w", err)
	}
	return row, nil
}

// Recent returns the newest submissions first. A scene filter limits rows
// to one scene path.
func (l *Ledger) Recent(ctx context.Context, limit int, scene string) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	q := l.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if s := strings.TrimSpace(scene); s != "" {
		q = q.Where("scene_path = ?", s)
	}
	var rows []Submission
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("history: list submissions: %w", err)
	}
	return rows, nil
}

func encodeList(v []string) (string, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("history: encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) []string {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
