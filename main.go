package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/labbook/internal/applog"
	"github.com/lotas/labbook/internal/clip"
	"github.com/lotas/labbook/internal/config"
	"github.com/lotas/labbook/internal/export"
	"github.com/lotas/labbook/internal/gateway"
	"github.com/lotas/labbook/internal/history"
	"github.com/lotas/labbook/internal/storage"
	"github.com/lotas/labbook/internal/tui"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export":
			runExport(os.Args[2:])
			return
		case "snapshot":
			runSnapshot(os.Args[2:])
			return
		case "clip":
			runClip(os.Args[2:])
			return
		case "say":
			runSay(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("labbook", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/labbook/config.toml)")
	serverURL := fs.String("server", "", "Backend URL (overrides config)")
	pollMS := fs.Int("poll-ms", 0, "Poll interval in milliseconds (overrides config)")
	live := fs.Bool("live", false, "Subscribe to the websocket change feed")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *pollMS > 0 {
		cfg.Polling.IntervalMS = *pollMS
	}
	if *live {
		cfg.Server.Live = true
	}

	if err := applog.Init(cfg.Data.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: log unavailable: %v\n", err)
	}
	defer applog.Close()

	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	model := tui.NewModel(cfg, gateway.New(cfg.Server.URL), storage.NewStore(db))
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`labbook — terminal client for a lab notebook backend

Usage:
  labbook                                    Start the TUI (default)
    --config <file>      Config file (default: ~/.config/labbook/config.toml)
    --server <url>       Backend URL (default: http://127.0.0.1:8765)
    --poll-ms <n>        Poll interval in milliseconds (default: 2500)
    --live               Subscribe to the websocket change feed

  labbook export                             Export the notebook to stdout or file
    --json               Export as JSON instead of markdown
    --out <file>         Output file path (default: stdout)

  labbook snapshot [--label "text"]          Snapshot the directory (only if changed)
  labbook snapshot list                      List saved snapshots
  labbook snapshot diff [rev] [rev2]         Compare snapshots or current state
  labbook snapshot delete <rev> [--yes]      Delete a snapshot

  labbook clip <url>                         Extract readable text from a page
                                             and submit it as a backend command

  labbook say <text...>                      Submit a free-text command

Environment:
  LABBOOK_SERVER       Backend URL (overridden by --server flag)
  LABBOOK_DATA_DIR     Database and log directory
  LABBOOK_POLL_MS      Poll interval in milliseconds
`)
}

func loadConfigOrDie(path, serverURL string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	return cfg
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.Data.Dir != "" {
		return storage.OpenDB(filepath.Join(cfg.Data.Dir, "labbook.db"))
	}
	path, err := storage.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return storage.OpenDB(path)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	serverURL := fs.String("server", "", "Backend URL")
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fs.Parse(args)

	cfg := loadConfigOrDie(*configPath, *serverURL)
	gw := gateway.New(cfg.Server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sessions, err := gw.FetchNotebook(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching notebook: %v\n", err)
		os.Exit(1)
	}

	nb := &export.Notebook{Sessions: sessions}
	var output string
	if *jsonFlag {
		output, err = export.JSON(nb)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		output = export.Markdown(nb)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(output)
	}
}

func runSnapshot(args []string) {
	// No args or a leading flag means the auto-create flow.
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		runSnapshotCreate(args)
		return
	}

	subcmd := args[0]
	subArgs := args[1:]

	switch subcmd {
	case "create":
		runSnapshotCreate(subArgs)
	case "list":
		runSnapshotList(subArgs)
	case "diff":
		runSnapshotDiff(subArgs)
	case "delete":
		runSnapshotDelete(subArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown snapshot command %q. Use list, diff, or delete.\n", subcmd)
		os.Exit(1)
	}
}

func fetchCurrent(cfg config.Config) []storage.SnapshotSession {
	gw := gateway.New(cfg.Server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sessions, err := gw.FetchNotebook(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching notebook: %v\n", err)
		os.Exit(1)
	}
	return history.CaptureFetched(sessions)
}

func runSnapshotCreate(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	serverURL := fs.String("server", "", "Backend URL")
	label := fs.String("label", "", "Optional label for the snapshot")
	fs.Parse(args)

	cfg := loadConfigOrDie(*configPath, *serverURL)
	current := fetchCurrent(cfg)

	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	rev, created, diff, err := history.Create(storage.NewStore(db), current, *label)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating snapshot: %v\n", err)
		os.Exit(1)
	}

	if !created {
		fmt.Printf("No changes since snapshot #%d\n", rev)
		return
	}
	fmt.Printf("Snapshot #%d created: %d sessions\n", rev, len(current))
	if diff != nil && !diff.Empty() {
		fmt.Println()
		fmt.Print(history.FormatDiff(diff))
	}
}

func runSnapshotList(args []string) {
	fs := flag.NewFlagSet("snapshot list", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	fs.Parse(args)

	cfg := loadConfigOrDie(*configPath, "")
	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	snaps, err := storage.NewStore(db).ListSnapshots()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing snapshots: %v\n", err)
		os.Exit(1)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots found.")
		return
	}

	fmt.Printf("%-5s %8s  %-20s  %s\n", "REV", "SESSIONS", "LABEL", "CREATED")
	for _, s := range snaps {
		fmt.Printf("%5d %8d  %-20s  %s\n",
			s.Rev,
			s.SessionCount,
			s.Label,
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
}

func runSnapshotDiff(args []string) {
	fs := flag.NewFlagSet("snapshot diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	serverURL := fs.String("server", "", "Backend URL")
	fs.Parse(reorderArgs(args))

	cfg := loadConfigOrDie(*configPath, *serverURL)
	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	store := storage.NewStore(db)

	switch fs.NArg() {
	case 0:
		// Latest snapshot vs current backend state.
		result, err := history.DiffAgainstCurrent(store, 0, fetchCurrent(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(history.FormatDiff(result))

	case 1:
		rev := parseRev(fs.Arg(0))
		result, err := history.DiffAgainstCurrent(store, rev, fetchCurrent(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(history.FormatDiff(result))

	case 2:
		rev1 := parseRev(fs.Arg(0))
		rev2 := parseRev(fs.Arg(1))
		result, err := history.DiffRevisions(store, rev1, rev2)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(history.FormatDiff(result))

	default:
		fmt.Fprintln(os.Stderr, "Usage: labbook snapshot diff [rev] [rev2]")
		os.Exit(1)
	}
}

func runSnapshotDelete(args []string) {
	fs := flag.NewFlagSet("snapshot delete", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: labbook snapshot delete <rev> [--yes]")
		os.Exit(1)
	}
	rev := parseRev(fs.Arg(0))

	if !*yes {
		fmt.Printf("Delete snapshot #%d? [y/N] ", rev)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := loadConfigOrDie(*configPath, "")
	db, err := openDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.NewStore(db).DeleteSnapshot(rev); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Snapshot #%d deleted.\n", rev)
}

func parseRev(arg string) int {
	rev, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", arg)
		os.Exit(1)
	}
	return rev
}

func runClip(args []string) {
	fs := flag.NewFlagSet("clip", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	serverURL := fs.String("server", "", "Backend URL")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: labbook clip <url>")
		os.Exit(1)
	}

	cfg := loadConfigOrDie(*configPath, *serverURL)
	gw := gateway.New(cfg.Server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := clip.Run(ctx, gw, fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Clipped.")
}

func runSay(args []string) {
	fs := flag.NewFlagSet("say", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	serverURL := fs.String("server", "", "Backend URL")
	fs.Parse(reorderArgs(args))

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: labbook say <text...>")
		os.Exit(1)
	}

	cfg := loadConfigOrDie(*configPath, *serverURL)
	gw := gateway.New(cfg.Server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := gw.SubmitCommand(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if res.Applied.SessionID != 0 {
		fmt.Printf("Applied %s to session #%d\n", res.Applied.Type, res.Applied.SessionID)
	} else {
		fmt.Printf("Applied %s\n", res.Applied.Type)
	}
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
