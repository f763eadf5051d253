package transplant

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTransferIdempotent(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "AUDIO", "kick.wav"), []byte("kick"))
	writeFile(t, filepath.Join(src, "AUDIO", "kick.ot"), []byte("kick attributes"))
	writeFile(t, filepath.Join(src, "snare.wav"), []byte("snare"))

	entries := []FileTransfer{
		{Audio: "AUDIO/kick.wav", Attributes: "AUDIO/kick.ot", DestAudio: "kick.wav", DestAttributes: "kick.ot"},
		{Audio: "snare.wav", DestAudio: "snare.wav", DestAttributes: "snare.ot"},
	}

	first, err := Transfer(entries, src, dest)
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if len(first.Copied) != 3 || len(first.Skipped) != 0 {
		t.Errorf("first Transfer() copied %d, skipped %d, want 3, 0", len(first.Copied), len(first.Skipped))
	}

	second, err := Transfer(entries, src, dest)
	if err != nil {
		t.Fatalf("second Transfer() error = %v", err)
	}
	if len(second.Copied) != 0 || len(second.Skipped) != 3 {
		t.Errorf("second Transfer() copied %d, skipped %d, want 0, 3", len(second.Copied), len(second.Skipped))
	}

	for name, want := range map[string]string{"kick.wav": "kick", "kick.ot": "kick attributes", "snare.wav": "snare"} {
		got, err := os.ReadFile(filepath.Join(dest, name))
		if err != nil {
			t.Errorf("ReadFile(%s) error = %v", name, err)
			continue
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "snare.ot")); !os.IsNotExist(err) {
		t.Error("snare.ot should not be created")
	}
}

func TestTransferKeepsExistingFiles(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "kick.wav"), []byte("new"))
	writeFile(t, filepath.Join(dest, "kick.wav"), []byte("old"))

	res, err := Transfer([]FileTransfer{{Audio: "kick.wav", DestAudio: "kick.wav"}}, src, dest)
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if len(res.Skipped) != 1 {
		t.Errorf("Skipped = %v, want kick.wav", res.Skipped)
	}
	got, _ := os.ReadFile(filepath.Join(dest, "kick.wav"))
	if string(got) != "old" {
		t.Errorf("kick.wav = %q, want old", got)
	}
}

func TestTransferMissingAudio(t *testing.T) {
	_, err := Transfer([]FileTransfer{{Audio: "nope.wav", DestAudio: "nope.wav"}}, t.TempDir(), t.TempDir())
	if !errors.Is(err, ErrMissingSourceAudio) {
		t.Errorf("Transfer() error = %v, want ErrMissingSourceAudio", err)
	}
}
