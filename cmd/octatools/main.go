// Package main is the entry point for the octatools CLI
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/james-see/octatools/pkg/api"
	"github.com/james-see/octatools/pkg/audio"
	"github.com/james-see/octatools/pkg/history"
	"github.com/james-see/octatools/pkg/mcpserver"
	"github.com/james-see/octatools/pkg/midiexport"
	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
	"github.com/james-see/octatools/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile   string
	formatName   string
	historyPath  string
	force        bool
	noBackup     bool
	kindName     string
	overwrite    bool
	bpm          float64
	historyLimit int
	serverPort   int
	dryRun       bool
	poolName     string
	patternID    int
	partID       int
	savedPart    bool
	excludeEmpty bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "octatools",
	Short: "Inspect Octatrack projects and copy banks between them",
	Long: `octatools reads and writes Elektron Octatrack project, bank, arrangement
and sample attribute files.

Its bank copy moves a bank from one project into another and brings the
sample slots the bank uses along, reusing matching slots in the destination.

Examples:
  octatools bank copy ./SET/LIVE 1 ./SET/STUDIO 4
  octatools bank plan ./SET/LIVE 1 ./SET/STUDIO 4
  octatools bank copy-yaml copies.yaml
  octatools slots list ./SET/LIVE
  octatools slots usage ./SET/LIVE 1 --pattern 3
  octatools slots consolidate ./SET/LIVE --to set
  octatools slots purge ./SET/LIVE --dry-run
  octatools bin inspect ./SET/LIVE/bank01.work
  octatools bin from-yaml bank01.yaml ./SET/LIVE/bank01.work --overwrite
  octatools pattern export-midi ./SET/LIVE 1 5 -o beat.mid
  octatools tui
  octatools serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Copy and plan bank copies between projects",
}

var bankCopyCmd = &cobra.Command{
	Use:   "copy <src-project> <src-bank> <dest-project> <dest-bank>",
	Short: "Copy a bank into another project with its sample slots",
	Args:  cobra.ExactArgs(4),
	RunE:  runBankCopy,
}

var bankCopyYAMLCmd = &cobra.Command{
	Use:   "copy-yaml <config.yaml>",
	Short: "Run the bank copies listed in a YAML file",
	Long: `Runs every entry of bank_copies in order. Relative project paths are
resolved against the directory of the YAML file.

  bank_copies:
    - src: {project: LIVE, bank_id: 1}
      dest: {project: STUDIO, bank_id: 4}
      force: false`,
	Args: cobra.ExactArgs(1),
	RunE: runBankCopyYAML,
}

var bankPlanCmd = &cobra.Command{
	Use:   "plan <src-project> <src-bank> <dest-project> <dest-bank>",
	Short: "Show what a bank copy would change without writing anything",
	Args:  cobra.ExactArgs(4),
	RunE:  runBankPlan,
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List and deduplicate sample slots",
}

var slotsListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List every sample slot of a project with the banks using it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsList,
}

var slotsUsageCmd = &cobra.Command{
	Use:   "usage <project> <bank>",
	Short: "List the sample slots a bank, one of its patterns or one of its parts references",
	Args:  cobra.ExactArgs(2),
	RunE:  runSlotsUsage,
}

var slotsPurgeCmd = &cobra.Command{
	Use:   "purge <project>",
	Short: "Delete WAV files in the project directory that no sample slot loads",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsPurge,
}

var slotsConsolidateCmd = &cobra.Command{
	Use:   "consolidate <project>",
	Short: "Copy every sample a project loads into the project or set audio pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsConsolidate,
}

var slotsDedupCmd = &cobra.Command{
	Use:   "dedup <project>",
	Short: "Merge duplicate sample slots and move bank references onto the kept slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsDedup,
}

var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "Inspect, convert and create binary data files",
}

var binInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print a summary of a project, bank, arrangement or .ot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBinInspect,
}

var binToYAMLCmd = &cobra.Command{
	Use:   "to-yaml <file>",
	Short: "Dump a data file as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBinDump(args[0], octatrack.FormatYAML)
	},
}

var binToJSONCmd = &cobra.Command{
	Use:   "to-json <file>",
	Short: "Dump a data file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBinDump(args[0], octatrack.FormatJSON)
	},
}

var binFromYAMLCmd = &cobra.Command{
	Use:   "from-yaml <file> <output>",
	Short: "Write a data file from its YAML dump",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBinLoad(args[0], args[1], octatrack.FormatYAML)
	},
}

var binFromJSONCmd = &cobra.Command{
	Use:   "from-json <file> <output>",
	Short: "Write a data file from its JSON dump",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBinLoad(args[0], args[1], octatrack.FormatJSON)
	},
}

var binCreateDefaultCmd = &cobra.Command{
	Use:   "create-default <project|bank|arrangement|attributes> <output>",
	Short: "Write a file holding the device's default data",
	Args:  cobra.ExactArgs(2),
	RunE:  runBinCreateDefault,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Inspect WAV samples and create their .ot files",
}

var sampleInfoCmd = &cobra.Command{
	Use:   "info <file.wav>",
	Short: "Show the format and length of a WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSampleInfo,
}

var sampleAttributesCmd = &cobra.Command{
	Use:   "attributes <file.wav>...",
	Short: "Create .ot attribute files spanning whole WAV files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSampleAttributes,
}

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Move pattern trigs to and from MIDI files",
}

var patternExportCmd = &cobra.Command{
	Use:   "export-midi <project> <bank> <pattern>",
	Short: "Export the audio track trigs of a pattern as a MIDI drum file",
	Args:  cobra.ExactArgs(3),
	RunE:  runPatternExport,
}

var patternImportCmd = &cobra.Command{
	Use:   "import-midi <project> <bank> <pattern> <file.mid>",
	Short: "Replace the audio track trigs of a pattern with notes from a MIDI file",
	Args:  cobra.ExactArgs(4),
	RunE:  runPatternImport,
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List journaled bank copies, or show one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE:  runMCP,
}

func init() {
	defaultHistory, err := history.DefaultPath()
	if err != nil {
		defaultHistory = ""
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", defaultHistory, "Bank copy journal (empty disables)")
	rootCmd.PersistentFlags().StringVarP(&formatName, "format", "f", "yaml", "Output format (yaml, json)")

	// bank commands
	for _, c := range []*cobra.Command{bankCopyCmd, bankCopyYAMLCmd} {
		c.Flags().BoolVar(&force, "force", false, "Overwrite destination banks that hold data")
		c.Flags().BoolVar(&noBackup, "no-backup", false, "Skip backups of the destination project and bank")
	}
	bankPlanCmd.Flags().BoolVar(&force, "force", false, "Plan over a destination bank that holds data")
	bankCmd.AddCommand(bankCopyCmd, bankCopyYAMLCmd, bankPlanCmd)

	// slots commands
	slotsUsageCmd.Flags().IntVar(&patternID, "pattern", 0, "List the slots of one pattern (1-16)")
	slotsUsageCmd.Flags().IntVar(&partID, "part", 0, "List the slots of one part (1-4)")
	slotsUsageCmd.Flags().BoolVar(&savedPart, "saved", false, "Read the saved copy of the part")
	slotsUsageCmd.Flags().BoolVar(&excludeEmpty, "exclude-empty", false, "Leave out slots with no sample loaded")
	slotsUsageCmd.MarkFlagsMutuallyExclusive("pattern", "part")
	slotsDedupCmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip backups of the changed files")
	slotsPurgeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files without deleting them")
	slotsConsolidateCmd.Flags().StringVar(&poolName, "to", "project", "Pool to collect samples in (project, set)")
	slotsConsolidateCmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the project backup")
	slotsCmd.AddCommand(slotsListCmd, slotsUsageCmd, slotsDedupCmd, slotsPurgeCmd, slotsConsolidateCmd)

	// bin commands
	binInspectCmd.Flags().StringVarP(&kindName, "kind", "k", "", "File type, detected from the name when empty")
	for _, c := range []*cobra.Command{binToYAMLCmd, binToJSONCmd} {
		c.Flags().StringVarP(&kindName, "kind", "k", "", "File type, detected from the name when empty")
		c.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default stdout)")
	}
	for _, c := range []*cobra.Command{binFromYAMLCmd, binFromJSONCmd} {
		c.Flags().StringVarP(&kindName, "kind", "k", "", "File type, detected from the output name when empty")
		c.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")
	}
	binCreateDefaultCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")
	binCmd.AddCommand(binInspectCmd, binToYAMLCmd, binToJSONCmd, binFromYAMLCmd, binFromJSONCmd, binCreateDefaultCmd)

	// sample commands
	sampleAttributesCmd.Flags().Float64Var(&bpm, "bpm", octatrack.DefaultBPM, "Sample tempo")
	sampleAttributesCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing .ot files")
	sampleCmd.AddCommand(sampleInfoCmd, sampleAttributesCmd)

	// pattern commands
	patternExportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	patternExportCmd.Flags().Float64Var(&bpm, "bpm", 0, "Tempo written to the file (default pattern tempo)")
	patternCmd.AddCommand(patternExportCmd, patternImportCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to list")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")
	serveCmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip backups of destination files")

	// Add commands
	rootCmd.AddCommand(bankCmd, slotsCmd, binCmd, sampleCmd, patternCmd)
	rootCmd.AddCommand(historyCmd, tuiCmd, serveCmd, mcpCmd)
}

func parseIndex(what, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 16 {
		return 0, fmt.Errorf("invalid %s %q, must be between 1 and 16", what, s)
	}
	return n, nil
}

func parseRequest(args []string) (transplant.Request, error) {
	var req transplant.Request
	var err error
	req.Src.Project, req.Dest.Project = args[0], args[2]
	if req.Src.BankID, err = parseIndex("source bank", args[1]); err != nil {
		return req, err
	}
	if req.Dest.BankID, err = parseIndex("destination bank", args[3]); err != nil {
		return req, err
	}
	req.Force = force
	return req, nil
}

// openHistory opens the journal, or returns nil when it is disabled
func openHistory() (*history.Store, error) {
	if historyPath == "" {
		return nil, nil
	}
	return history.Open(historyPath)
}

func newTransplanter(store *history.Store) *transplant.Transplanter {
	return transplant.New(transplant.Options{Force: force, NoBackup: noBackup, Journal: journalOf(store), Out: os.Stdout})
}

func closeHistory(store *history.Store) {
	if store != nil {
		_ = store.Close()
	}
}

func printValue(v any) error {
	f, err := octatrack.ParseFormat(formatName)
	if err != nil {
		return err
	}
	data, err := octatrack.Marshal(v, f)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Println(strings.TrimRight(string(data), "\n"))
	return nil
}

func runBankCopy(cmd *cobra.Command, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer closeHistory(store)

	rep, err := newTransplanter(store).CopyBank(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("bank copy %s failed during %s: %w", rep.ID, rep.FailedAt, err)
	}
	fmt.Printf("Copied %s -> %s (%s)\n", req.Src, req.Dest, rep.ID)
	return nil
}

func runBankCopyYAML(cmd *cobra.Command, args []string) error {
	cfg, err := transplant.LoadBatchConfig(args[0])
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer closeHistory(store)

	results := newTransplanter(store).CopyBanks(cmd.Context(), cfg)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "FAILED %s -> %s: %v\n", r.Request.Src, r.Request.Dest, r.Err)
			continue
		}
		fmt.Printf("OK     %s -> %s\n", r.Request.Src, r.Request.Dest)
	}
	if n := transplant.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d bank copies failed", n, len(results))
	}
	return nil
}

func runBankPlan(cmd *cobra.Command, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	plan, err := transplant.New(transplant.Options{Force: force}).Plan(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printValue(plan)
}

func runSlotsList(cmd *cobra.Command, args []string) error {
	usage, err := transplant.ListProjectUsage(args[0])
	if err != nil {
		return err
	}
	return printValue(usage)
}

func runSlotsUsage(cmd *cobra.Command, args []string) error {
	n, err := parseIndex("bank", args[1])
	if err != nil {
		return err
	}
	var usage []transplant.SlotUsage
	switch {
	case patternID != 0 && partID != 0:
		return errors.New("use either --pattern or --part")
	case patternID != 0:
		usage, err = transplant.ListPatternUsage(args[0], n, patternID)
	case partID != 0:
		usage, err = transplant.ListPartUsage(args[0], n, partID, savedPart)
	default:
		usage, err = transplant.ListBankUsage(args[0], n)
	}
	if err != nil {
		return err
	}
	if excludeEmpty {
		usage = transplant.LoadedOnly(usage)
	}
	return printValue(usage)
}

func runSlotsPurge(cmd *cobra.Command, args []string) error {
	rep, err := newTransplanter(nil).PurgeProjectPool(cmd.Context(), args[0], dryRun)
	if err != nil {
		return err
	}
	return printValue(rep)
}

func runSlotsConsolidate(cmd *cobra.Command, args []string) error {
	pool, err := transplant.ParsePool(poolName)
	if err != nil {
		return err
	}
	rep, err := newTransplanter(nil).ConsolidateProject(cmd.Context(), args[0], pool)
	if err != nil {
		return err
	}
	return printValue(rep)
}

func runSlotsDedup(cmd *cobra.Command, args []string) error {
	rep, err := newTransplanter(nil).DeduplicateProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printValue(rep)
}

func readKind(path string) (any, error) {
	kind := octatrack.DetectKind(path)
	if kindName != "" {
		var err error
		if kind, err = octatrack.ParseKind(kindName); err != nil {
			return nil, err
		}
	}
	if kind == octatrack.KindUnknown {
		return nil, fmt.Errorf("cannot detect the file type of %s, use --kind", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	v, err := octatrack.DecodeKind(kind, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func runBinInspect(cmd *cobra.Command, args []string) error {
	v, err := readKind(args[0])
	if err != nil {
		return err
	}
	if b, ok := v.(*octatrack.Bank); ok {
		v = b.Summarize()
	}
	return printValue(v)
}

func runBinDump(path string, f octatrack.Format) error {
	v, err := readKind(path)
	if err != nil {
		return err
	}
	data, err := octatrack.Marshal(v, f)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", f, err)
	}
	if outputFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Converted %s -> %s\n", path, outputFile)
	return nil
}

func runBinLoad(input, output string, f octatrack.Format) error {
	kind := octatrack.DetectKind(output)
	if kindName != "" {
		var err error
		if kind, err = octatrack.ParseKind(kindName); err != nil {
			return err
		}
	}
	if kind == octatrack.KindUnknown {
		return fmt.Errorf("cannot detect the file type of %s, use --kind", output)
	}
	if _, err := os.Stat(output); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, use --overwrite", output)
	}
	text, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	data, err := octatrack.EncodeKind(kind, text, f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	if err := octatrack.WriteFileAtomic(output, data); err != nil {
		return err
	}
	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func runBinCreateDefault(cmd *cobra.Command, args []string) error {
	kind, err := octatrack.ParseKind(args[0])
	if err != nil {
		return err
	}
	output := args[1]
	if _, err := os.Stat(output); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, use --overwrite", output)
	}
	data, err := octatrack.DefaultFile(kind)
	if err != nil {
		return err
	}
	if err := octatrack.WriteFileAtomic(output, data); err != nil {
		return err
	}
	fmt.Printf("Wrote default %s to %s\n", kind, output)
	return nil
}

func runSampleInfo(cmd *cobra.Command, args []string) error {
	info, err := audio.ReadInfo(args[0])
	if err != nil {
		return err
	}
	if !info.Supported() {
		fmt.Fprintf(os.Stderr, "warning: %s is not 16 or 24 bit 44.1kHz mono/stereo\n", args[0])
	}
	return printValue(info)
}

func runSampleAttributes(cmd *cobra.Command, args []string) error {
	settings := octatrack.DefaultAttributeSettings()
	settings.BPM = bpm
	var failed int
	for _, path := range args {
		dest, err := audio.WriteAttributes(path, settings, overwrite)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("Wrote %s\n", dest)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

// loadPattern reads a bank and returns it with a pointer to one of its patterns
func loadPattern(args []string) (*octatrack.Bank, *octatrack.Pattern, string, error) {
	bankN, err := parseIndex("bank", args[1])
	if err != nil {
		return nil, nil, "", err
	}
	patternN, err := parseIndex("pattern", args[2])
	if err != nil {
		return nil, nil, "", err
	}
	path := octatrack.BankFile(args[0], bankN)
	bank, err := octatrack.ReadBankFile(path)
	if err != nil {
		return nil, nil, "", err
	}
	return bank, &bank.Patterns[patternN-1], path, nil
}

func runPatternExport(cmd *cobra.Command, args []string) error {
	_, p, _, err := loadPattern(args)
	if err != nil {
		return err
	}
	output := outputFile
	if output == "" {
		output = fmt.Sprintf("bank%s-pattern%s.mid", args[1], args[2])
	}
	tempo := bpm
	if tempo == 0 {
		if project, err := octatrack.ReadProjectFile(octatrack.ProjectFile(args[0])); err == nil {
			tempo = project.Tempo()
		}
	}
	if err := midiexport.NewConverter().WriteMIDIFile(p, tempo, output); err != nil {
		return err
	}
	fmt.Printf("Exported pattern %s of bank %s -> %s\n", args[2], args[1], output)
	return nil
}

func runPatternImport(cmd *cobra.Command, args []string) error {
	bank, p, path, err := loadPattern(args)
	if err != nil {
		return err
	}
	tr, err := midiexport.NewConverter().ImportMIDIFile(p, args[3])
	if err != nil {
		return err
	}
	if err := octatrack.WriteBankFile(path, bank); err != nil {
		return err
	}
	fmt.Printf("Imported %d trigs into pattern %s of bank %s\n", tr.Count, args[2], args[1])
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history is disabled")
	}
	defer closeHistory(store)

	ctx := cmd.Context()
	if len(args) == 1 {
		e, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printValue(e)
	}
	entries, err := store.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		status := string(e.State)
		if e.Error != "" {
			status += ": " + e.Error
		}
		fmt.Printf("%s  %s  %s:%d -> %s:%d  %s\n", e.StartedAt.Local().Format("2006-01-02 15:04"), e.ID,
			e.SrcProject, e.SrcBank, e.DestProject, e.DestBank, status)
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer closeHistory(store)
	return tui.Run(transplant.New(transplant.Options{Journal: journalOf(store)}))
}

func runServe(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer closeHistory(store)

	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort, transplant.Options{NoBackup: noBackup}, store)
}

func runMCP(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer closeHistory(store)
	return mcpserver.Serve(transplant.New(transplant.Options{Journal: journalOf(store)}), version)
}

func journalOf(store *history.Store) transplant.Journal {
	if store == nil {
		return nil
	}
	return store
}
