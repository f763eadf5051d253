package transplant

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/james-see/octatools/pkg/audio"
	"github.com/james-see/octatools/pkg/octatrack"
)

// Pool is a directory sample files are collected in
type Pool string

const (
	// PoolProject is the project directory itself
	PoolProject Pool = "project"
	// PoolSet is the AUDIO directory of the set holding the project
	PoolSet Pool = "set"
)

// ParsePool parses a pool name
func ParsePool(s string) (Pool, error) {
	switch strings.ToLower(s) {
	case "project":
		return PoolProject, nil
	case "set", "audio":
		return PoolSet, nil
	default:
		return "", fmt.Errorf("unknown pool %q (want project or set)", s)
	}
}

// dir returns the pool's absolute directory and its slot path prefix for the project in dir
func (p Pool) dir(projectDir string) (string, string, error) {
	switch p {
	case PoolProject:
		return projectDir, "", nil
	case PoolSet:
		return filepath.Join(filepath.Dir(projectDir), "AUDIO"), "../AUDIO", nil
	default:
		return "", "", fmt.Errorf("unknown pool %q", p)
	}
}

// SlotMove is a slot whose sample file was copied into a pool. SlotID is one-indexed.
type SlotMove struct {
	Type   octatrack.SampleType `json:"type" yaml:"type"`
	SlotID int                  `json:"slot_id" yaml:"slot_id"`
	From   string               `json:"from" yaml:"from"`
	To     string               `json:"to" yaml:"to"`
}

// ConsolidateReport describes a consolidation of a project's samples into a pool
type ConsolidateReport struct {
	Project  string          `json:"project" yaml:"project"`
	Pool     Pool            `json:"pool" yaml:"pool"`
	Moves    []SlotMove      `json:"moves" yaml:"moves"`
	Transfer *TransferResult `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	Backups  []string        `json:"backups,omitempty" yaml:"backups,omitempty"`
}

// ConsolidateProject copies the sample files of every slot of the project in dir into
// pool and points the slots at the copies. Files already in the pool stay where they
// are. Source files are left in place.
func (t *Transplanter) ConsolidateProject(ctx context.Context, dir string, pool Pool) (*ConsolidateReport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	poolDir, prefix, err := pool.dir(abs)
	if err != nil {
		return nil, err
	}
	projectPath := octatrack.ProjectFile(abs)
	project, err := octatrack.ReadProjectFile(projectPath)
	if err != nil {
		return nil, err
	}
	if err := validateOS(dir, project); err != nil {
		return nil, err
	}

	rep := &ConsolidateReport{Project: dir, Pool: pool, Moves: []SlotMove{}}
	names := newDestNamer(abs, poolDir, slotPaths(abs, project.Slots))
	var (
		transfers []FileTransfer
		missing   []string
	)
	slots := append([]octatrack.SampleSlot(nil), project.Slots...)
	octatrack.SortSlots(slots)
	for i := range slots {
		s := &slots[i]
		if s.Path == "" || s.Type == octatrack.RecorderBuffer {
			continue
		}
		src := resolvePath(abs, s.Path)
		if filepath.Dir(src) == poolDir {
			continue
		}
		if !exists(src) {
			missing = append(missing, fmt.Sprintf("%s slot %d: %s", s.Type, s.SlotID, src))
			continue
		}
		name, err := names.name(s.Path)
		if err != nil {
			return nil, err
		}
		ft := FileTransfer{Audio: src, DestAudio: name, DestAttributes: octatrack.AttributesPath(name)}
		if attrs := octatrack.AttributesPath(src); exists(attrs) {
			ft.Attributes = attrs
		}
		transfers = append(transfers, ft)

		to := name
		if prefix != "" {
			to = path.Join(prefix, name)
		}
		rep.Moves = append(rep.Moves, SlotMove{Type: s.Type, SlotID: s.SlotID, From: s.Path, To: to})
		s.Path = to
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(missing, "; "), ErrMissingSourceAudio)
	}
	if len(rep.Moves) == 0 {
		t.logf("All samples of %s are already in the %s pool.", dir, pool)
		return rep, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !t.opts.NoBackup {
		b, err := t.backup(projectPath)
		if err != nil {
			return nil, err
		}
		rep.Backups = append(rep.Backups, b)
	}
	if rep.Transfer, err = Transfer(transfers, abs, poolDir); err != nil {
		return nil, err
	}
	project.Slots = slots
	if err := octatrack.WriteProjectFile(projectPath, project); err != nil {
		return nil, fmt.Errorf("failed to write project: %w", err)
	}
	t.logf("Moved %d sample slots to the %s pool.", len(rep.Moves), pool)
	return rep, nil
}

// PurgeReport lists the sample files a purge removed, relative to the project directory
type PurgeReport struct {
	Project string   `json:"project" yaml:"project"`
	DryRun  bool     `json:"dry_run" yaml:"dry_run"`
	Removed []string `json:"removed" yaml:"removed"`
}

// PurgeProjectPool removes the device-compatible WAV files under the project directory
// that no sample slot loads, along with their .ot files. Hidden files and directories
// are skipped. With dryRun set nothing is removed.
func (t *Transplanter) PurgeProjectPool(ctx context.Context, dir string, dryRun bool) (*PurgeReport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	project, err := octatrack.ReadProjectFile(octatrack.ProjectFile(abs))
	if err != nil {
		return nil, err
	}
	loaded := slotPaths(abs, project.Slots)

	rep := &PurgeReport{Project: dir, DryRun: dryRun, Removed: []string{}}
	var unused []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p != abs && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".wav") || loaded[p] {
			return nil
		}
		// files the device cannot play are not pool samples
		if info, err := audio.ReadInfo(p); err != nil || !info.Supported() {
			return nil
		}
		unused = append(unused, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	for _, p := range unused {
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return nil, err
		}
		rep.Removed = append(rep.Removed, filepath.ToSlash(rel))
		if dryRun {
			continue
		}
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", p, err)
		}
		if err := os.Remove(octatrack.AttributesPath(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove %s: %w", octatrack.AttributesPath(p), err)
		}
		t.logf("Removed %s", rel)
	}
	return rep, nil
}
