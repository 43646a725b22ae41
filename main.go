package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atlas-tuning/arduino/pkg/compare"
	"github.com/atlas-tuning/arduino/pkg/editor"
	"github.com/atlas-tuning/arduino/pkg/export"
	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/atlas-tuning/arduino/pkg/reader"
	"github.com/atlas-tuning/arduino/pkg/renderer"
	"github.com/atlas-tuning/arduino/pkg/scanner"
	"github.com/atlas-tuning/arduino/pkg/state"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/web"
	"github.com/pterm/pterm"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

func main() {
	programFile := flag.String("program", "", "Program definition (YAML)")
	listTables := flag.Bool("list", false, "List the program's tables")
	tableName := flag.String("table", "all", "Table to display, export, import or compare (name, substring or all)")
	displayMode := flag.String("display", "", "Display tables: values, heatmap or symbols")
	setValues := flag.String("set", "", "Set variables before running: name=value[,name=value...]")
	cycles := flag.Int("cycles", 1, "Number of cycles to run")
	strategy := flag.String("strategy", "", "Force a search strategy: reestimate, estimate or linear")
	stateBackend := flag.String("state", "memory", "State store for persistent state tables: memory, file or redis")
	stateFile := flag.String("state-file", "atlas-state.yaml", "State file for -state file")
	redisURL := flag.String("redis", "redis://localhost:6379/0", "Redis URL for -state redis")
	exportPath := flag.String("export", "", "Export the selected tables to CSV in this directory")
	importFile := flag.String("import", "", "Import a CSV file into the selected table before running")
	compareWith := flag.String("compare", "", "Compare the selected table with a CSV file, or 'seed' to compare learned corrections")
	showProfile := flag.Bool("profile", false, "Show cycle timings")
	servePort := flag.Int("serve", 0, "Serve the diagnostics API on this port after running")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	scanImage := flag.String("scan", "", "Scan a calibration image for table candidates")
	scanOut := flag.String("scan-out", "", "Write scan candidates as a program definition to this file")
	editMode := flag.Bool("edit", false, "Interactive table edit mode")
	writeImage := flag.Bool("write-image", false, "Write the selected image-backed tables back to the program's image")
	dryRun := flag.Bool("dry-run", false, "Show what -edit or -write-image would change without writing")
	flag.Parse()

	if *scanImage != "" {
		scanner.ScanForMaps(*scanImage, *scanOut)
		return
	}

	if *programFile == "" {
		pterm.Error.Println("No program specified")
		pterm.Info.Println("Usage: atlas -program <file.yaml> [-list] [-cycles N] [-display values|heatmap|symbols] [-table name]")
		pterm.Info.Println("       atlas -scan <image.bin> [-scan-out candidates.yaml]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			pterm.Fatal.Printf("Failed to create logger: %v\n", err)
		}
	}
	defer logger.Sync()

	cfg, err := reader.LoadProgramConfig(*programFile)
	if err != nil {
		pterm.Error.Printf("Failed to load program: %v\n", err)
		os.Exit(1)
	}

	store, err := openStore(*stateBackend, *stateFile, *redisURL, logger)
	if err != nil {
		pterm.Error.Printf("Failed to open state store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := []program.Option{
		program.WithLogger(logger),
		program.WithStateStore(store),
		program.WithBaseDir(filepath.Dir(*programFile)),
	}

	if *strategy != "" {
		search, err := table.ParseSearch(*strategy)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}

		opts = append(opts, program.WithSearch(search))
	}

	p, err := program.Build(cfg, opts...)
	if err != nil {
		pterm.Error.Printf("Failed to build program: %v\n", err)
		os.Exit(1)
	}

	if *listTables {
		renderer.ListTables(p)
		return
	}

	if err := applySets(p, *setValues); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	if *importFile != "" {
		importTable(p, *tableName, *importFile)
	}

	for i := 0; i < *cycles; i++ {
		results := p.Cycle()
		if i == *cycles-1 || *verbose {
			renderer.RenderResults(p.Cycles(), results)
		}
	}

	if *editMode {
		editor.InteractiveEdit(p, editor.ImagePath(*programFile, cfg), *dryRun)
	}

	if *writeImage {
		if _, err := editor.WriteProgramImage(renderer.Select(p, *tableName), editor.ImagePath(*programFile, cfg), *dryRun); err != nil {
			pterm.Error.Printf("Failed to write image: %v\n", err)
			os.Exit(1)
		}
	}

	if *displayMode != "" {
		renderer.DisplayTables(p, *tableName, *displayMode)
	}

	if *exportPath != "" {
		export.ExportTablesToCSV(renderer.Select(p, *tableName), *exportPath)
	}

	if *compareWith != "" {
		compareTables(p, *tableName, *compareWith)
	}

	if *showProfile {
		renderer.RenderProfile(p.Profiler())
	}

	if *servePort > 0 {
		server := web.NewServer(p, *servePort, logger)
		if err := server.Start(true); err != nil {
			pterm.Error.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	}
}

func openStore(backend, stateFile, redisURL string, logger *zap.Logger) (state.Store, error) {
	backend, err := state.ParseBackend(backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case state.BackendFile:
		return state.OpenFileStore(stateFile, logger)
	case state.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return state.DialRedis(ctx, redisURL, state.DefaultNamespace, logger)
	default:
		return state.NewMemoryStore(), nil
	}
}

func applySets(p *program.Program, sets string) error {
	if sets == "" {
		return nil
	}

	for _, pair := range strings.Split(sets, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid -set entry %q, want name=value", pair)
		}

		v, err := cast.ToFloat64E(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}

		if _, err := p.Set(strings.TrimSpace(name), v); err != nil {
			return err
		}
	}

	return nil
}

func importTable(p *program.Program, name, csvFile string) {
	nodes := renderer.Select(p, name)
	if len(nodes) != 1 {
		pterm.Error.Printf("Import needs exactly one table, %q matches %d\n", name, len(nodes))
		os.Exit(1)
	}

	pterm.Info.Printf("Importing %s into %s\n", csvFile, nodes[0].Name())

	changed, err := export.ImportTableFromCSV(nodes[0].Table(), csvFile)
	if err != nil {
		pterm.Error.Printf("Failed to import: %v\n", err)
		os.Exit(1)
	}

	pterm.Success.Printf("Imported %s: %d cells changed\n", nodes[0].Name(), changed)
}

func compareTables(p *program.Program, name, with string) {
	pterm.DefaultHeader.WithFullWidth().Println("Table Comparison")

	for _, n := range renderer.Select(p, name) {
		unit := n.Config().Unit

		if with == "seed" {
			fb := n.Feedback()
			if fb == nil {
				continue
			}

			correction := fb.Correction()
			if err := compare.CompareTable(n.Name()+" correction vs seed", correction,
				web.Seed(n), correction.Cells(), "x"); err != nil {
				pterm.Error.Println(err)
			}

			continue
		}

		f, err := os.Open(with)
		if err != nil {
			pterm.Error.Printf("Failed to open %s: %v\n", with, err)
			return
		}

		cells, err := export.ReadCSV(f)
		f.Close()

		if err != nil {
			pterm.Error.Printf("Failed to read %s: %v\n", with, err)
			return
		}

		if err := compare.CompareTable(n.Name()+" vs "+filepath.Base(with), n.Table(),
			cells, n.Table().Cells(), unit); err != nil {
			pterm.Error.Println(err)
		}
	}
}
