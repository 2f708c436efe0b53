package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"

	"today-todo/internal/archive"
	"today-todo/internal/config"
	"today-todo/internal/logger"
	"today-todo/internal/storage"
	"today-todo/internal/todo"
	"today-todo/internal/tui"
	"today-todo/internal/version"
)

func main() {
	// Flags
	var (
		cfgPath     string
		store       string
		dataDir     string
		key         string
		hooksDir    string
		exportDir   string
		logFile     string
		debug       bool
		showVersion bool

		addText   string
		routine   bool
		tagName   string
		listMode  bool
		statsMode bool
		dumpPath  string
		exportZip string
		importZip string
		inspect   string
		backup    bool
		restore   bool
	)

	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "config file path (.json, .yaml)")
	flag.StringVar(&store, "store", "", "storage backend: sqlite | file | memory (overrides config)")
	flag.StringVar(&dataDir, "data-dir", "", "directory holding the database or JSON files")
	flag.StringVar(&key, "key", "", "storage key of the state blob")
	flag.StringVar(&hooksDir, "hooks-dir", "", "directory containing JS hook files")
	flag.StringVar(&exportDir, "export-dir", "", "default directory for TUI exports and dumps")
	flag.StringVar(&logFile, "log-file", "", "log file path (default from config)")
	flag.BoolVar(&debug, "debug", false, "debug logging")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&addText, "add", "", "batch: add a task with this text")
	flag.BoolVar(&routine, "routine", false, "with --add: make the task a routine")
	flag.StringVar(&tagName, "tag", "", "with --add: tag name (created when missing)")
	flag.BoolVar(&listMode, "list", false, "batch: print all tasks")
	flag.BoolVar(&statsMode, "stats", false, "batch: print counts")
	flag.StringVar(&dumpPath, "dump", "", "batch: write a markdown dump to this file")
	flag.StringVar(&exportZip, "export", "", "batch: export state to this zip")
	flag.StringVar(&importZip, "import", "", "batch: replace state with the one in this zip")
	flag.StringVar(&inspect, "inspect", "", "open the TUI on a zip export without touching the store")
	flag.BoolVar(&backup, "backup", false, "sqlite: copy the database to a timestamped backup")
	flag.BoolVar(&restore, "restore", false, "sqlite: pick a backup to restore")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Full())
		return
	}

	// Load config
	cfg := config.Default()
	if err := config.Load(cfgPath, &cfg); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load config: %v", err)
	}
	// Merge overrides
	if store != "" {
		cfg.Store = store
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if key != "" {
		cfg.Key = key
	}
	if hooksDir != "" {
		cfg.HooksDir = hooksDir
	}
	if exportDir != "" {
		cfg.ExportDir = exportDir
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.Debug = true
	}

	// Inspect zip mode: hydrate a memory store from the archive
	var inspectRaw string
	if inspect != "" {
		man, raw, err := archive.Import(inspect)
		if err != nil {
			log.Fatalf("inspect import failed: %v", err)
		}
		inspectRaw = raw
		cfg.Store = config.StoreMemory
		fmt.Fprintf(os.Stderr, "inspecting export %s (%s)\n", man.ExportID, man.ExportedAt.Format(time.RFC3339))
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zl, err := logger.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		log.Printf("warning: logging disabled: %v", err)
		zl = zap.NewNop()
	}
	defer logger.Sync(zl)
	zl.Info("starting", zap.String("version", version.String()), zap.String("store", cfg.Store), zap.String("dataDir", cfg.DataDir))

	st, err := storage.Open(cfg, zl.Named("store"))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	if backup || restore {
		err := runBackup(context.Background(), st, cfg.Key, restore)
		_ = st.Close()
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	mgr := todo.New(st, cfg.Key, todo.WithLogger(zl), todo.WithTimeFormat(cfg.TimeFormat))
	ctx := context.Background()
	closeAll := func() {
		if err := mgr.Close(ctx); err != nil {
			log.Printf("warning: final save failed: %v", err)
		}
		if err := st.Close(); err != nil {
			zl.Warn("store close failed", zap.Error(err))
		}
	}

	if inspect != "" {
		// seed the memory store; later Hydrate calls read it back
		mgr.HydrateFrom(inspectRaw)
		mgr.Flush()
	}

	// Batch operations
	batch := addText != "" || listMode || statsMode || dumpPath != "" || exportZip != "" || importZip != ""
	if batch {
		err := runBatch(ctx, mgr, batchArgs{
			add: addText, routine: routine, tag: tagName,
			list: listMode, stats: statsMode,
			dump: dumpPath, export: exportZip, importZip: importZip,
		})
		closeAll()
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if !(term.IsTerminal(int(os.Stdin.Fd())) || term.IsTerminal(int(os.Stdout.Fd()))) {
		mgr.Hydrate(ctx)
		printList(os.Stdout, mgr.Snapshot())
		closeAll()
		return
	}

	p := tea.NewProgram(tui.New(cfg, mgr, zl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		closeAll()
		log.Fatalf("tui error: %v", err)
	}
	closeAll()
}

type batchArgs struct {
	add       string
	routine   bool
	tag       string
	list      bool
	stats     bool
	dump      string
	export    string
	importZip string
}

func runBatch(ctx context.Context, mgr *todo.Manager, a batchArgs) error {
	if a.importZip != "" {
		man, raw, err := archive.Import(a.importZip)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		mgr.HydrateFrom(raw)
		fmt.Printf("imported %s (%d tasks, %d completed, %d tags)\n", a.importZip, man.Todos, man.Completed, man.Tags)
	} else {
		mgr.Hydrate(ctx)
	}

	if a.add != "" {
		if strings.TrimSpace(a.add) == "" {
			return fmt.Errorf("--add: empty text")
		}
		tagID := ""
		if a.tag != "" {
			tagID = mgr.AddTag(a.tag)
		}
		id := mgr.AddTodo(a.add, a.routine, tagID)
		fmt.Printf("added #%s\n", id)
	}
	if a.list {
		printList(os.Stdout, mgr.Snapshot())
	}
	if a.stats {
		printStats(os.Stdout, mgr.Snapshot())
	}
	if a.dump != "" {
		if err := todo.DumpMarkdown(mgr.Snapshot(), a.dump); err != nil {
			return fmt.Errorf("dump failed: %w", err)
		}
		fmt.Printf("wrote %s\n", a.dump)
	}
	if a.export != "" {
		payload, err := mgr.Payload()
		if err != nil {
			return err
		}
		man, err := archive.Export(payload, a.export)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("exported %d tasks -> %s (%s)\n", man.Todos, a.export, man.ExportID)
	}
	return nil
}

func runBackup(ctx context.Context, st storage.Store, key string, restore bool) error {
	db, ok := st.(*storage.SQLite)
	if !ok {
		return fmt.Errorf("backups need the sqlite store")
	}
	if !restore {
		bak, err := db.Backup(storage.BackupSuffix(time.Now()))
		if err != nil {
			return err
		}
		fmt.Printf("backup written: %s\n", bak)
		return nil
	}
	entries, err := tui.LoadBackupEntries(ctx, db, key)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	final, err := tea.NewProgram(tui.NewRestore(entries, db.Path())).Run()
	if err != nil {
		return fmt.Errorf("restore ui: %w", err)
	}
	suffix := final.(tui.RestoreModel).Selected()
	if suffix == "" {
		fmt.Println("nothing restored")
		return nil
	}
	// keep the current database around before overwriting it
	if bak, err := db.Backup(storage.BackupSuffix(time.Now())); err == nil {
		fmt.Printf("current database saved as %s\n", bak)
	}
	if err := db.Restore(suffix); err != nil {
		return err
	}
	fmt.Printf("restored backup %s\n", suffix)
	return nil
}

func printList(w io.Writer, p todo.Payload) {
	fmt.Fprintf(w, "%d tasks\n", len(p.Todos))
	for _, t := range p.Todos {
		var flags []string
		if t.Done {
			flags = append(flags, "done")
		}
		if t.Today {
			flags = append(flags, "today")
		}
		if t.IsRoutine {
			flags = append(flags, "routine")
		}
		line := t.ID + "\t" + strings.Join(flags, ",") + "\t"
		if name := p.TagName(t.TagID); name != "" {
			line += "[" + name + "] "
		}
		fmt.Fprintln(w, line+todo.OneLine(t.Text))
	}
}

func printStats(w io.Writer, p todo.Payload) {
	st := todo.StatsFrom(p)
	fmt.Fprintf(w, "tasks: %d\ntoday: %d\ndone: %d\nroutine: %d\ncompleted: %d\nuntagged: %d\n",
		st.Total, st.Today, st.Done, st.Routine, st.Completed, st.Untagged)
	for _, t := range p.Tags {
		fmt.Fprintf(w, "tag %s: %d\n", t.Name, st.ByTag[t.ID])
	}
}
