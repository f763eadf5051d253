package transplant

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TransferResult lists the files a transfer copied and skipped, as absolute paths
type TransferResult struct {
	Copied  []string `json:"copied" yaml:"copied"`
	Skipped []string `json:"skipped" yaml:"skipped"`
}

// Transfer copies the audio and attributes files of each entry from srcDir to destDir.
// Files that already exist in the destination are skipped, so re-running a transfer
// copies nothing. A missing source attributes file is not an error.
func Transfer(entries []FileTransfer, srcDir, destDir string) (*TransferResult, error) {
	res := &TransferResult{}
	for _, e := range entries {
		if err := res.copyOnce(resolvePath(srcDir, e.Audio), resolvePath(destDir, e.DestAudio), true); err != nil {
			return res, err
		}
		if e.Attributes == "" || e.DestAttributes == "" {
			continue
		}
		if err := res.copyOnce(resolvePath(srcDir, e.Attributes), resolvePath(destDir, e.DestAttributes), false); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *TransferResult) copyOnce(src, dest string, required bool) error {
	if exists(dest) {
		r.Skipped = append(r.Skipped, dest)
		return nil
	}
	if !required && !exists(src) {
		return nil
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	r.Copied = append(r.Copied, dest)
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// copyFile copies src to dest through a temp file in dest's directory
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", src, ErrMissingSourceAudio)
		}
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}

// sameContents reports whether the files at a and b hold the same bytes
func sameContents(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", a, err)
	}
	defer func() { _ = fa.Close() }()
	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", b, err)
	}
	defer func() { _ = fb.Close() }()

	ia, err := fa.Stat()
	if err != nil {
		return false, err
	}
	ib, err := fb.Stat()
	if err != nil {
		return false, err
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	bufA, bufB := make([]byte, 32*1024), make([]byte, 32*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF, nil
		}
		if errA != nil {
			return false, fmt.Errorf("failed to read %s: %w", a, errA)
		}
		if errB != nil {
			return false, fmt.Errorf("failed to read %s: %w", b, errB)
		}
	}
}
