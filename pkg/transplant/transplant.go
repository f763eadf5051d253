package transplant

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/james-see/octatools/pkg/octatrack"
)

// State is a stage of a bank copy
type State string

const (
	StateValidate State = "validate"
	StateBackup   State = "backup"
	StatePlan     State = "plan"
	StateTransfer State = "transfer"
	StateCommit   State = "commit"
	StateDone     State = "done"
	StateAborted  State = "aborted"
)

// BankRef addresses a bank (1-16) of the project in directory Project
type BankRef struct {
	Project string `json:"project" yaml:"project"`
	BankID  int    `json:"bank_id" yaml:"bank_id"`
}

func (r BankRef) String() string {
	return fmt.Sprintf("%s bank %d", r.Project, r.BankID)
}

// Request describes a bank copy
type Request struct {
	Src   BankRef `json:"src" yaml:"src"`
	Dest  BankRef `json:"dest" yaml:"dest"`
	Force bool    `json:"force" yaml:"force"`
}

// Report describes a finished or aborted bank copy
type Report struct {
	ID         string          `json:"id" yaml:"id"`
	Request    Request         `json:"request" yaml:"request"`
	State      State           `json:"state" yaml:"state"`
	FailedAt   State           `json:"failed_at,omitempty" yaml:"failed_at,omitempty"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
	Backups    []string        `json:"backups,omitempty" yaml:"backups,omitempty"`
	Plan       *Plan           `json:"plan,omitempty" yaml:"plan,omitempty"`
	Transfer   *TransferResult `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
}

// Journal records the outcome of every bank copy
type Journal interface {
	Record(ctx context.Context, r *Report) error
}

// Options configures a Transplanter
type Options struct {
	Force    bool      // overwrite modified destination banks
	NoBackup bool      // skip backups of the destination project and bank
	Journal  Journal   // optional
	Out      io.Writer // progress output, discarded when nil
}

// Transplanter copies banks between projects
type Transplanter struct {
	opts Options
	out  io.Writer
	now  func() time.Time
}

// New creates a new Transplanter
func New(opts Options) *Transplanter {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Transplanter{opts: opts, out: out, now: time.Now}
}

func (t *Transplanter) logf(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

func validIndex(n int) bool {
	return n >= 1 && n <= octatrack.MaxBanks
}

func validateOS(which string, p *octatrack.Project) error {
	if err := p.Metadata.ValidateOS(); err != nil {
		return fmt.Errorf("%s project: %v: %w", which, err, ErrVersionMismatch)
	}
	return nil
}

// copyJob holds the files a bank copy reads
type copyJob struct {
	req         Request
	srcProject  *octatrack.Project
	srcBank     *octatrack.Bank
	destProject *octatrack.Project
	destBank    *octatrack.Bank
}

func (j *copyJob) destProjectPath() string {
	return octatrack.ProjectFile(j.req.Dest.Project)
}

func (j *copyJob) destBankPath() string {
	return octatrack.BankFile(j.req.Dest.Project, j.req.Dest.BankID)
}

// validate loads the source files and the destination project and bank and checks them
func (t *Transplanter) validate(req Request) (*copyJob, error) {
	if !validIndex(req.Src.BankID) || !validIndex(req.Dest.BankID) {
		return nil, fmt.Errorf("banks %d and %d: %w", req.Src.BankID, req.Dest.BankID, ErrInvalidIndex)
	}
	j := &copyJob{req: req}

	t.logf("Loading source project %s ...", req.Src.Project)
	var err error
	if j.srcProject, err = octatrack.ReadProjectFile(octatrack.ProjectFile(req.Src.Project)); err != nil {
		return nil, err
	}
	if err := validateOS("source", j.srcProject); err != nil {
		return nil, err
	}

	if j.destProject, err = octatrack.ReadProjectFile(j.destProjectPath()); err != nil {
		return nil, err
	}
	if err := validateOS("destination", j.destProject); err != nil {
		return nil, err
	}

	if j.destBank, err = octatrack.ReadBankFile(j.destBankPath()); err != nil {
		return nil, err
	}
	if !j.destBank.IsDefault() && !(req.Force || t.opts.Force) {
		return nil, fmt.Errorf("%s: %w", req.Dest, ErrDestinationModified)
	}

	if j.srcBank, err = octatrack.ReadBankFile(octatrack.BankFile(req.Src.Project, req.Src.BankID)); err != nil {
		return nil, err
	}
	if err := CheckSourceAudio(req.Src.Project, j.srcProject, j.srcBank); err != nil {
		return nil, err
	}
	return j, nil
}

// Plan computes a bank copy without writing anything
func (t *Transplanter) Plan(ctx context.Context, req Request) (*Plan, error) {
	j, err := t.validate(req)
	if err != nil {
		return nil, err
	}
	return PlanBankCopy(req.Src.Project, req.Dest.Project, j.srcProject, j.srcBank, j.destProject)
}

// CopyBank copies a bank into the destination project: it validates the request,
// backs up the destination files, plans the slot changes, copies the sample files
// and writes the new destination project and bank. Any failure before the commit
// leaves the destination project and bank untouched.
func (t *Transplanter) CopyBank(ctx context.Context, req Request) (*Report, error) {
	r := &Report{ID: uuid.NewString(), Request: req, StartedAt: t.now().UTC()}
	err := t.copyBank(r, req)
	r.FinishedAt = t.now().UTC()
	if err != nil {
		r.FailedAt = r.State
		r.State = StateAborted
		r.Error = err.Error()
		t.logf("Bank copy aborted during %s: %v", r.FailedAt, err)
	} else {
		r.State = StateDone
		t.logf("Bank copy complete.")
	}
	if t.opts.Journal != nil {
		if jerr := t.opts.Journal.Record(ctx, r); jerr != nil {
			t.logf("failed to record bank copy: %v", jerr)
		}
	}
	return r, err
}

func (t *Transplanter) copyBank(r *Report, req Request) error {
	r.State = StateValidate
	j, err := t.validate(req)
	if err != nil {
		return err
	}

	r.State = StateBackup
	if !t.opts.NoBackup {
		for _, path := range []string{j.destProjectPath(), j.destBankPath()} {
			b, err := t.backup(path)
			if err != nil {
				return err
			}
			r.Backups = append(r.Backups, b)
		}
	}

	r.State = StatePlan
	t.logf("Calculating changes ...")
	plan, err := PlanBankCopy(req.Src.Project, req.Dest.Project, j.srcProject, j.srcBank, j.destProject)
	if err != nil {
		return err
	}
	r.Plan = plan
	t.logf("Inactive references go to static/flex slots %d/%d.", plan.StaticSink+1, plan.FlexSink+1)
	t.logf("Will reuse %d/%d and add %d/%d static/flex slots.",
		plan.Count(octatrack.Static, ReuseSlot), plan.Count(octatrack.Flex, ReuseSlot),
		plan.Count(octatrack.Static, NewSlot), plan.Count(octatrack.Flex, NewSlot))

	r.State = StateTransfer
	if len(plan.Transfers) == 0 {
		t.logf("No sample files need copying.")
	}
	r.Transfer, err = Transfer(plan.Transfers, req.Src.Project, req.Dest.Project)
	if err != nil {
		return err
	}
	for _, c := range r.Transfer.Copied {
		t.logf("Copied %s", c)
	}

	r.State = StateCommit
	t.logf("Writing sample slot changes to %s ...", j.destProjectPath())
	if err := octatrack.WriteProjectFile(j.destProjectPath(), plan.Project); err != nil {
		return fmt.Errorf("failed to write destination project: %w", err)
	}
	t.logf("Writing bank to %s ...", j.destBankPath())
	if err := octatrack.WriteBankFile(j.destBankPath(), plan.Bank); err != nil {
		return fmt.Errorf("failed to write destination bank: %w", err)
	}
	return nil
}

// backup copies path to a timestamped sibling and returns the backup path
func (t *Transplanter) backup(path string) (string, error) {
	base := path + "_octatools_" + strconv.FormatInt(t.now().Unix(), 10)
	dest := base
	for i := 1; exists(dest); i++ {
		dest = base + "-" + strconv.Itoa(i)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	t.logf("Created backup %s", filepath.Base(dest))
	return dest, nil
}

// DedupReport describes a project-wide deduplication
type DedupReport struct {
	Project       string         `json:"project" yaml:"project"`
	Reassignments []Reassignment `json:"reassignments" yaml:"reassignments"`
	Banks         []int          `json:"banks" yaml:"banks"` // banks whose references changed
	Backups       []string       `json:"backups,omitempty" yaml:"backups,omitempty"`
}

// DeduplicateProject merges duplicate sample slots of the project in dir and moves the
// references in every bank, saved parts included, onto the remaining slots
func (t *Transplanter) DeduplicateProject(ctx context.Context, dir string) (*DedupReport, error) {
	projectPath := octatrack.ProjectFile(dir)
	project, err := octatrack.ReadProjectFile(projectPath)
	if err != nil {
		return nil, err
	}
	if err := validateOS(dir, project); err != nil {
		return nil, err
	}
	slots, err := ToZeroIndexed(project.Slots)
	if err != nil {
		return nil, err
	}
	kept, rs := Dedup(slots)
	rep := &DedupReport{Project: dir, Reassignments: rs}
	if len(rs) == 0 {
		t.logf("No duplicate sample slots in %s.", dir)
		return rep, nil
	}

	changed := map[int]*octatrack.Bank{}
	for n := 1; n <= octatrack.MaxBanks; n++ {
		path := octatrack.BankFile(dir, n)
		if !exists(path) {
			continue
		}
		bank, err := octatrack.ReadBankFile(path)
		if err != nil {
			return nil, err
		}
		w := newRewriter(bank)
		w.savedParts = true
		if w.applyPass(rs) > 0 {
			changed[n] = bank
			rep.Banks = append(rep.Banks, n)
		}
	}

	paths := []string{projectPath}
	for _, n := range rep.Banks {
		paths = append(paths, octatrack.BankFile(dir, n))
	}
	if !t.opts.NoBackup {
		for _, p := range paths {
			b, err := t.backup(p)
			if err != nil {
				return nil, err
			}
			rep.Backups = append(rep.Backups, b)
		}
	}

	project.Slots = ToOneIndexed(kept)
	if err := octatrack.WriteProjectFile(projectPath, project); err != nil {
		return nil, fmt.Errorf("failed to write project: %w", err)
	}
	for _, n := range rep.Banks {
		if err := octatrack.WriteBankFile(octatrack.BankFile(dir, n), changed[n]); err != nil {
			return nil, fmt.Errorf("failed to write bank %d: %w", n, err)
		}
	}
	t.logf("Removed %d duplicate slots, updated %d banks.", len(rs), len(rep.Banks))
	return rep, nil
}
