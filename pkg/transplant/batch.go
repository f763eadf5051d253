package transplant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// BatchConfig lists bank copies to run one after another
type BatchConfig struct {
	BankCopies []Request `yaml:"bank_copies"`
}

// ParseBatchConfig parses a YAML batch config. Relative project paths are resolved against baseDir.
func ParseBatchConfig(data []byte, baseDir string) (*BatchConfig, error) {
	var cfg BatchConfig
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse batch config: %w", err)
	}
	if len(cfg.BankCopies) == 0 {
		return nil, fmt.Errorf("batch config has no bank_copies")
	}
	for i := range cfg.BankCopies {
		c := &cfg.BankCopies[i]
		if c.Src.Project == "" || c.Dest.Project == "" {
			return nil, fmt.Errorf("bank_copies[%d]: src and dest project are required", i)
		}
		c.Src.Project = resolvePath(baseDir, c.Src.Project)
		c.Dest.Project = resolvePath(baseDir, c.Dest.Project)
	}
	return &cfg, nil
}

// LoadBatchConfig reads a YAML batch config file
func LoadBatchConfig(path string) (*BatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch config: %w", err)
	}
	return ParseBatchConfig(data, filepath.Dir(path))
}

// BatchResult is the outcome of one entry of a batch
type BatchResult struct {
	Request Request `json:"request" yaml:"request"`
	Report  *Report `json:"report" yaml:"report"`
	Err     error   `json:"-" yaml:"-"`
}

// CopyBanks runs every copy of the config in order. A failed copy does not stop
// later ones and does not undo earlier ones.
func (t *Transplanter) CopyBanks(ctx context.Context, cfg *BatchConfig) []BatchResult {
	results := make([]BatchResult, 0, len(cfg.BankCopies))
	for i, req := range cfg.BankCopies {
		t.logf("[%d/%d] %s -> %s", i+1, len(cfg.BankCopies), req.Src, req.Dest)
		rep, err := t.CopyBank(ctx, req)
		results = append(results, BatchResult{Request: req, Report: rep, Err: err})
	}
	return results
}

// Failed returns the number of failed results
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
