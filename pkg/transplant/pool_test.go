package transplant

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/james-see/octatools/pkg/audio"
	"github.com/james-see/octatools/pkg/octatrack"
)

// poolSetup builds a set with project LIVE whose slots point into the project, a
// subdirectory, the set's AUDIO pool and a directory outside the set
func poolSetup(t *testing.T) (root, project string) {
	t.Helper()
	root = t.TempDir()
	project = filepath.Join(root, "SET", "LIVE")
	writeFile(t, filepath.Join(root, "elsewhere", "kick.wav"), []byte("KICK"))
	writeFile(t, filepath.Join(root, "elsewhere", "kick.ot"), []byte("OT"))
	writeFile(t, filepath.Join(root, "SET", "AUDIO", "snare.wav"), []byte("SNARE"))
	writeFile(t, filepath.Join(project, "local.wav"), []byte("LOCAL"))
	writeFile(t, filepath.Join(project, "sub", "hat.wav"), []byte("HAT"))

	p := octatrack.NewProject()
	p.Slots = append(p.Slots,
		octatrack.NewSampleSlot(octatrack.Static, 1, "../../elsewhere/kick.wav"),
		octatrack.NewSampleSlot(octatrack.Static, 2, "local.wav"),
		octatrack.NewSampleSlot(octatrack.Static, 3, "sub/hat.wav"),
		octatrack.NewSampleSlot(octatrack.Flex, 1, "../AUDIO/snare.wav"),
	)
	writeProjectDir(t, project, p, nil)
	return root, project
}

func TestConsolidateProject(t *testing.T) {
	tests := []struct {
		pool  Pool
		paths map[string]string // "<type> <id>" -> slot path after consolidation
		files map[string]string // file relative to the set -> contents
		moves int
	}{
		{
			pool: PoolProject,
			paths: map[string]string{
				"STATIC 1": "kick.wav", "STATIC 2": "local.wav", "STATIC 3": "hat.wav", "FLEX 1": "snare.wav",
			},
			files: map[string]string{
				"LIVE/kick.wav": "KICK", "LIVE/kick.ot": "OT", "LIVE/hat.wav": "HAT", "LIVE/snare.wav": "SNARE",
			},
			moves: 3,
		},
		{
			pool: PoolSet,
			paths: map[string]string{
				"STATIC 1": "../AUDIO/kick.wav", "STATIC 2": "../AUDIO/local.wav", "STATIC 3": "../AUDIO/hat.wav", "FLEX 1": "../AUDIO/snare.wav",
			},
			files: map[string]string{
				"AUDIO/kick.wav": "KICK", "AUDIO/kick.ot": "OT", "AUDIO/local.wav": "LOCAL", "AUDIO/hat.wav": "HAT",
			},
			moves: 3,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.pool), func(t *testing.T) {
			root, project := poolSetup(t)
			tr := newTestTransplanter(Options{})

			rep, err := tr.ConsolidateProject(context.Background(), project, tt.pool)
			if err != nil {
				t.Fatalf("ConsolidateProject() error = %v", err)
			}
			if len(rep.Moves) != tt.moves {
				t.Errorf("moves = %+v, want %d", rep.Moves, tt.moves)
			}
			if len(rep.Backups) != 1 {
				t.Errorf("Backups = %v, want the project", rep.Backups)
			}

			p, err := octatrack.ReadProjectFile(octatrack.ProjectFile(project))
			if err != nil {
				t.Fatal(err)
			}
			got := map[string]string{}
			for _, s := range p.Slots {
				if s.Type != octatrack.RecorderBuffer {
					got[s.Type.String()+" "+strconv.Itoa(s.SlotID)] = s.Path
				}
			}
			if !reflect.DeepEqual(got, tt.paths) {
				t.Errorf("slot paths = %v, want %v", got, tt.paths)
			}
			for name, want := range tt.files {
				if data := readFile(t, filepath.Join(root, "SET", filepath.FromSlash(name))); string(data) != want {
					t.Errorf("%s = %q, want %q", name, data, want)
				}
			}
			if data := readFile(t, filepath.Join(root, "elsewhere", "kick.wav")); string(data) != "KICK" {
				t.Error("source file changed")
			}

			again, err := tr.ConsolidateProject(context.Background(), project, tt.pool)
			if err != nil {
				t.Fatalf("second ConsolidateProject() error = %v", err)
			}
			if len(again.Moves) != 0 {
				t.Errorf("second run moves = %+v, want none", again.Moves)
			}
		})
	}
}

func TestConsolidateProjectRenamesCollisions(t *testing.T) {
	root, project := poolSetup(t)
	writeFile(t, filepath.Join(project, "kick.wav"), []byte("OTHER KICK"))

	rep, err := newTestTransplanter(Options{NoBackup: true}).ConsolidateProject(context.Background(), project, PoolProject)
	if err != nil {
		t.Fatalf("ConsolidateProject() error = %v", err)
	}
	if rep.Moves[0].To != "kick-2.wav" {
		t.Errorf("kick moved to %s, want kick-2.wav", rep.Moves[0].To)
	}
	if data := readFile(t, filepath.Join(project, "kick.wav")); string(data) != "OTHER KICK" {
		t.Errorf("existing kick.wav = %q, want it untouched", data)
	}
	if data := readFile(t, filepath.Join(project, "kick-2.wav")); string(data) != "KICK" {
		t.Errorf("kick-2.wav = %q, want KICK", data)
	}
	if data := readFile(t, filepath.Join(root, "elsewhere", "kick.wav")); string(data) != "KICK" {
		t.Error("source file changed")
	}
}

func TestConsolidateProjectMissingAudio(t *testing.T) {
	_, project := poolSetup(t)
	p, err := octatrack.ReadProjectFile(octatrack.ProjectFile(project))
	if err != nil {
		t.Fatal(err)
	}
	p.Slots = append(p.Slots, octatrack.NewSampleSlot(octatrack.Static, 9, "../gone.wav"))
	writeProjectDir(t, project, p, nil)
	before := readFile(t, octatrack.ProjectFile(project))

	_, err = newTestTransplanter(Options{}).ConsolidateProject(context.Background(), project, PoolProject)
	if !errors.Is(err, ErrMissingSourceAudio) {
		t.Fatalf("ConsolidateProject() error = %v, want ErrMissingSourceAudio", err)
	}
	if !bytes.Equal(readFile(t, octatrack.ProjectFile(project)), before) {
		t.Error("project changed despite failure")
	}
	if _, err := os.Stat(filepath.Join(project, "kick.wav")); !os.IsNotExist(err) {
		t.Error("audio copied despite failure")
	}
}

func TestParsePool(t *testing.T) {
	tests := []struct {
		in      string
		want    Pool
		wantErr bool
	}{
		{"project", PoolProject, false},
		{"SET", PoolSet, false},
		{"audio", PoolSet, false},
		{"cloud", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePool(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePool(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func writeWAV(t *testing.T, path string, rate int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := audio.WriteSilence(path, rate, 16, 1, 100); err != nil {
		t.Fatal(err)
	}
}

func TestPurgeProjectPool(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "used.wav"), 44100)
	writeWAV(t, filepath.Join(dir, "unused.wav"), 44100)
	writeFile(t, filepath.Join(dir, "unused.ot"), []byte("ot"))
	writeWAV(t, filepath.Join(dir, "sub", "old.wav"), 44100)
	writeWAV(t, filepath.Join(dir, ".trash", "x.wav"), 44100)
	writeWAV(t, filepath.Join(dir, "lofi.wav"), 22050)
	writeFile(t, filepath.Join(dir, "bad.wav"), []byte("not a wav"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("notes"))

	p := octatrack.NewProject()
	p.Slots = append(p.Slots, octatrack.NewSampleSlot(octatrack.Static, 1, "used.wav"))
	writeProjectDir(t, dir, p, nil)

	want := []string{"sub/old.wav", "unused.wav"}
	tr := newTestTransplanter(Options{})

	rep, err := tr.PurgeProjectPool(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("PurgeProjectPool(dry run) error = %v", err)
	}
	if !reflect.DeepEqual(rep.Removed, want) {
		t.Errorf("dry run Removed = %v, want %v", rep.Removed, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "unused.wav")); err != nil {
		t.Error("dry run removed a file")
	}

	rep, err = tr.PurgeProjectPool(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("PurgeProjectPool() error = %v", err)
	}
	if !reflect.DeepEqual(rep.Removed, want) {
		t.Errorf("Removed = %v, want %v", rep.Removed, want)
	}
	for _, name := range []string{"unused.wav", "unused.ot", "sub/old.wav"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); !os.IsNotExist(err) {
			t.Errorf("%s still exists", name)
		}
	}
	for _, name := range []string{"used.wav", ".trash/x.wav", "lofi.wav", "bad.wav", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			t.Errorf("%s was removed", name)
		}
	}
}
