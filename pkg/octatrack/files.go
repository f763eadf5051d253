package octatrack

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind identifies the record type stored in a file
type Kind string

const (
	KindProject     Kind = "project"
	KindBank        Kind = "bank"
	KindArrangement Kind = "arrangement"
	KindAttributes  Kind = "attributes"
	KindUnknown     Kind = "unknown"
)

// File extensions used by the device
const (
	ExtWork = "work" // working copy, written on project sync
	ExtStrd = "strd" // saved copy
	ExtOT   = "ot"   // sample attributes sidecar
)

var (
	bankNameRe = regexp.MustCompile(`^bank(\d\d)\.(work|strd)$`)
	arrNameRe  = regexp.MustCompile(`^arr(\d\d)\.(work|strd)$`)
)

// DetectKind detects the record type of a file from its name
func DetectKind(filename string) Kind {
	base := strings.ToLower(filepath.Base(filename))
	switch {
	case base == "project.work" || base == "project.strd":
		return KindProject
	case bankNameRe.MatchString(base):
		return KindBank
	case arrNameRe.MatchString(base):
		return KindArrangement
	case filepath.Ext(base) == "."+ExtOT:
		return KindAttributes
	default:
		return KindUnknown
	}
}

// ParseKind parses a kind name as used on the command line
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "project":
		return KindProject, nil
	case "bank":
		return KindBank, nil
	case "arrangement", "arr":
		return KindArrangement, nil
	case "attributes", "ot", "sample":
		return KindAttributes, nil
	default:
		return KindUnknown, fmt.Errorf("unknown file type %q", s)
	}
}

// ProjectFile returns the project.work path inside a project directory
func ProjectFile(dir string) string {
	return filepath.Join(dir, "project."+ExtWork)
}

// BankFileName returns the file name of bank n (1-16)
func BankFileName(n int) string {
	return fmt.Sprintf("bank%02d.%s", n, ExtWork)
}

// BankFile returns the path of bank n (1-16) inside a project directory
func BankFile(dir string, n int) string {
	return filepath.Join(dir, BankFileName(n))
}

// ArrangementFile returns the path of arrangement n (1-8) inside a project directory
func ArrangementFile(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("arr%02d.%s", n, ExtWork))
}

// AttributesPath returns the .ot sidecar path for an audio file. The file may not exist.
func AttributesPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "." + ExtOT
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
