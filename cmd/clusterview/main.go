package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/clusterview/internal/datasource"
	"github.com/vanderheijden86/clusterview/pkg/config"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/export"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/ui"
	"github.com/vanderheijden86/clusterview/pkg/version"
)

// EnvAutoClose quits the TUI after the given number of milliseconds.
const EnvAutoClose = "CLUSTERVIEW_TUI_AUTOCLOSE_MS"

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	source     string
	location   string
	key        query.Key
	timeout    time.Duration
	watch      bool
}

// isTerminal is swapped in tests so prompts never open.
var isTerminal = export.IsTerminal

func main() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	_ = debug.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "clusterview",
		Short: "Browse precomputed cluster graphs across distance thresholds",
		Long: `clusterview fetches the cluster bundle of one comparison
(base1 .* base2 ~ target1 .* target2) once and lets you step through the
nine distance thresholds without another request.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, g)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&g.configPath, "config", "", "config file (default ~/.config/clusterview/config.yaml)")
	f.StringVar(&g.source, "source", "", "bundle source: service URL, bundle file or directory, or .db file")
	f.StringVar(&g.location, "query", "", "location or query string carrying base1, base2, target1 and target2")
	f.StringVar(&g.location, "location", "", "alias of --query")
	f.StringVar(&g.key.Base1, query.ParamBase1, "", "first base entity")
	f.StringVar(&g.key.Base2, query.ParamBase2, "", "second base entity")
	f.StringVar(&g.key.Target1, query.ParamTarget1, "", "first target entity")
	f.StringVar(&g.key.Target2, query.ParamTarget2, "", "second target entity")
	f.DurationVar(&g.timeout, "timeout", 0, "per fetch timeout, e.g. 30s")
	f.BoolVar(&g.watch, "watch", false, "reload file and SQLite sources when they change")
	_ = f.MarkHidden("location")

	root.AddCommand(
		newExportCmd(g),
		newInspectCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves flags > environment > config file > defaults.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFrom(g.configPath)
		if err != nil {
			return cfg, err
		}
	} else if cfg, err = config.Load(); err != nil {
		// A broken default config file should not block the viewer.
		debug.Log("ignoring config: %v", err)
		cfg = config.DefaultConfig()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Location = g.source
	}
	if flags.Changed("timeout") {
		cfg.Source.Timeout = g.timeout
	}
	if flags.Changed("watch") {
		cfg.Source.Watch = g.watch
	}
	debug.Dump("effective config", cfg)
	return cfg, cfg.Validate()
}

// resolveKey reads the query location first, then lets the explicit entity
// flags override single fields. An empty key is prompted for on a terminal.
func (g *globalFlags) resolveKey(cmd *cobra.Command) (query.Key, error) {
	key := query.Parse(g.location)

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override(query.ParamBase1, &key.Base1, g.key.Base1)
	override(query.ParamBase2, &key.Base2, g.key.Base2)
	override(query.ParamTarget1, &key.Target1, g.key.Target1)
	override(query.ParamTarget2, &key.Target2, g.key.Target2)

	if key.IsZero() && isTerminal() {
		prompted, err := export.PromptKey(key)
		if err != nil {
			return key, fmt.Errorf("query prompt: %w", err)
		}
		key = prompted
	}
	return key, nil
}

func openSource(cfg config.Config) (datasource.Source, error) {
	src, err := datasource.Open(cfg.Source.Location,
		datasource.WithTimeout(cfg.Source.Timeout),
		datasource.WithClusterPath(cfg.Source.ClusterPath),
	)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", cfg.Source.Location, err)
	}
	return src, nil
}

func runTUI(cmd *cobra.Command, g *globalFlags) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := g.resolveKey(cmd)
	if err != nil {
		return err
	}
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	debug.Log("starting viewer: source=%s query=%s", src.Describe(), key)

	m := ui.NewModel(cmd.Context(), src, key).WithConfig(cfg)
	if err := runTUIProgram(m); err != nil {
		return fmt.Errorf("running cluster viewer: %w", err)
	}
	return nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests.
	if v := os.Getenv(EnvAutoClose); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	final, err := p.Run()
	// The final model owns the in-flight fetch; the watcher is shared.
	if fm, ok := final.(ui.Model); ok {
		fm.Stop()
	} else {
		m.Stop()
	}
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clusterview version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clusterview %s\n", version.Version)
		},
	}
}
