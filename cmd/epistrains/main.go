package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/epistrains/internal/automation"
	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
	"github.com/san-kum/epistrains/internal/experiment"
	"github.com/san-kum/epistrains/internal/export"
	"github.com/san-kum/epistrains/internal/metrics"
	"github.com/san-kum/epistrains/internal/storage"
	"github.com/san-kum/epistrains/internal/sweep"
	"github.com/san-kum/epistrains/internal/tui"
	"github.com/san-kum/epistrains/internal/viz"
)

var (
	dataDir     string
	verbose     bool
	metricsFile string
	workers     int

	// run
	runFlags  scenarioFlags
	live      bool
	frameRate int
	showPlot  bool
	noSave    bool

	// plot / export
	slots     []int
	output    string
	svgDeaths bool
	svgWidth  int
	svgHeight int
	theme     string

	// ensemble / sweep
	batchFile   string
	saveRuns    bool
	sweepFlags  scenarioFlags
	sweepParams []string
	rankBy      string

	logger   log.Logger
	promReg  = prometheus.NewRegistry()
	recorder = metrics.NewRecorder(promReg)
	registry = experiment.NewRegistry()
)

func newLogger(w io.Writer, debug bool) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(w))
	l = log.With(l, "ts", log.DefaultTimestampUTC)
	if debug {
		return level.NewFilter(l, level.AllowDebug())
	}
	return level.NewFilter(l, level.AllowInfo())
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "epistrains",
		Short:         "multi-strain compartmental epidemic models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(os.Stderr, verbose)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" {
				return nil
			}
			return prometheus.WriteToTextfile(metricsFile, promReg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".epistrains", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write solver metrics in prometheus text format")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "solve a scenario and store the run",
		Args:  cobra.NoArgs,
		RunE:  runScenario,
	}
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show progress while solving")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --live")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot compartments when done")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run compartments",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntSliceVar(&slots, "slot", nil, "compartment slots to plot (default all)")

	deathsCmd := &cobra.Command{
		Use:   "deaths [run_id]",
		Short: "plot per-sample and cumulative deaths",
		Args:  cobra.ExactArgs(1),
		RunE:  plotDeaths,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a run chart to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().BoolVar(&svgDeaths, "deaths", false, "chart deaths instead of compartments")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "width in pixels")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 480, "height in pixels")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTRAINS\tDURATION\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Fprintf(w, "%s\t%d\t%g\t%s\n", name, len(p.Config.Strains), p.Config.Duration, p.Description)
			}
			return w.Flush()
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}
	viewCmd.Flags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, "color theme: "+strings.Join(viz.ThemeNames(), ", "))

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [preset|file.yaml]...",
		Short: "solve several scenarios in parallel",
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().StringVar(&batchFile, "batch", "", "batch file listing scenarios")
	ensembleCmd.Flags().BoolVar(&saveRuns, "save", false, "store every run")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "tabulate a scenario over a grid of parameters",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepFlags.register(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil,
		`parameter grid, repeatable; e.g. "strains[0].r0=1:3:0.5" or "population.waning=0,0.01"`)
	sweepCmd.Flags().StringVar(&rankBy, "rank", "total_deaths", "metric used to report the best point")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, deathsCmd, exportJSONCmd, exportSVGCmd, presetsCmd, viewCmd, ensembleCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := runFlags.scenario(cmd)
	if err != nil {
		return err
	}
	exp, err := registry.Build(cfg)
	if err != nil {
		return err
	}

	var renderer *tui.LiveRenderer
	if live {
		sp, err := infectedSlots(exp)
		if err != nil {
			return err
		}
		renderer = tui.NewLiveRenderer(os.Stderr, exp.Duration, sp, frameRate)
		exp.Options.Observers = append(exp.Options.Observers, renderer)
		renderer.Start()
	}

	res, err := exp.Run(cmd.Context(), logger, recorder)
	if renderer != nil {
		renderer.Stop()
	}
	if err != nil {
		level.Error(logger).Log("msg", "run failed", "scenario", cfg.Name, "err", err)
		return err
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(res, cfg)
		if err != nil {
			return err
		}
		level.Info(logger).Log("msg", "run saved", "id", runID, "scenario", cfg.Name,
			"samples", res.Run.Trajectory.Len(), "elapsed", res.Elapsed)
		fmt.Println(runID)
	}

	fmt.Println(viz.SummaryTable(res.Summary))
	if showPlot {
		out, err := viz.PlotCompartments(res.Run.Trajectory, nil, viz.DefaultPlotWidth, viz.DefaultPlotHeight)
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	return nil
}

// infectedSlots returns the infection-state slots of an experiment's layout.
func infectedSlots(exp *experiment.Experiment) ([]int, error) {
	model, _, err := epidemic.Prepare(exp.Population, exp.Strains, exp.Options)
	if err != nil {
		return nil, err
	}
	return model.Space().InfectedSlots(), nil
}

func resolveRun(st *storage.Store, prefix string) (string, *storage.RunMetadata, error) {
	runID, err := st.Resolve(prefix)
	if err != nil {
		return "", nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return "", nil, err
	}
	return runID, meta, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tLAYOUT\tSTRAINS\tDURATION\tPEAK\tDEATHS")

	for _, run := range runs {
		peak, deaths := 0.0, 0.0
		if run.Summary != nil {
			peak, deaths = run.Summary.PeakPrevalence, run.Summary.TotalDeaths
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\t%.2f\t%.2f\n",
			run.ID[:min(8, len(run.ID))],
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Layout,
			run.Strains,
			run.Duration,
			peak,
			deaths,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, meta, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n\n", viz.Header.Render(meta.Name), viz.Muted.Render(runID))
	out, err := viz.PlotCompartments(tr, slots, viz.DefaultPlotWidth, viz.DefaultPlotHeight)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func plotDeaths(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, meta, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	deaths, err := st.LoadDeaths(runID)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n\n", viz.Header.Render(meta.Name), viz.Muted.Render(runID))
	fmt.Println(viz.Plot(deaths.PerSample, "deaths per sample", viz.DefaultPlotWidth, viz.DefaultPlotHeight))
	fmt.Println(viz.Separator(viz.DefaultPlotWidth))
	fmt.Println(viz.Plot(deaths.Cumulative, "cumulative deaths", viz.DefaultPlotWidth, viz.DefaultPlotHeight))
	fmt.Printf("\n%s %s\n", viz.Label.Render("total deaths"), viz.Value.Render(fmt.Sprintf("%.2f", deaths.Total())))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}

	if output == "" {
		return st.ExportJSON(os.Stdout, runID)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := st.ExportJSON(f, runID); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", output)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}

	var svg string
	if svgDeaths {
		deaths, err := st.LoadDeaths(runID)
		if err != nil {
			return err
		}
		svg, err = export.DeathsSVG(deaths, svgWidth, svgHeight)
		if err != nil {
			return err
		}
	} else {
		tr, err := st.LoadStates(runID)
		if err != nil {
			return err
		}
		svg, err = export.CompartmentsSVG(tr, svgWidth, svgHeight)
		if err != nil {
			return err
		}
	}

	path := output
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, meta, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	deaths, err := st.LoadDeaths(runID)
	if err != nil {
		level.Warn(logger).Log("msg", "no deaths recorded", "id", runID, "err", err)
		deaths = nil
	}

	p := tea.NewProgram(tui.NewBrowser(meta.Name, tr, deaths, meta.Summary).WithTheme(theme), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// ensembleConfigs resolves positional preset names and scenario files, plus
// an optional batch file.
func ensembleConfigs(args []string) ([]*config.Config, error) {
	var configs []*config.Config
	if batchFile != "" {
		batch, err := automation.LoadBatch(batchFile)
		if err != nil {
			return nil, err
		}
		cs, err := batch.Configs(filepath.Dir(batchFile))
		if err != nil {
			return nil, err
		}
		configs = append(configs, cs...)
	}
	for _, arg := range args {
		if cfg := config.GetPreset(arg); cfg != nil {
			configs = append(configs, cfg)
			continue
		}
		cfg, err := config.Load(arg)
		if err != nil {
			return nil, fmt.Errorf("%s is neither a preset nor a readable scenario: %w", arg, err)
		}
		if cfg.Name == "" {
			cfg.Name = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		}
		configs = append(configs, cfg)
	}
	if len(configs) == 0 {
		return nil, dynamo.Configf("ensemble", "no scenarios given")
	}
	return configs, nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	configs, err := ensembleConfigs(args)
	if err != nil {
		return err
	}

	ens := experiment.NewEnsemble(workers, logger, recorder)
	results, err := automation.RunBatch(cmd.Context(), configs, registry, ens)
	if err != nil {
		return err
	}

	var st *storage.Store
	if saveRuns {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRAINS\tPEAK\tPEAK TIME\tDEATHS\tFINAL IMMUNE\tELAPSED\tID")
	for i, res := range results {
		id := "-"
		if st != nil {
			if id, err = st.Save(res, configs[i]); err != nil {
				return err
			}
			id = id[:min(8, len(id))]
		}
		s := res.Summary
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.1f%%\t%s\t%s\n",
			res.Name, len(res.Run.Strains), s.PeakPrevalence, s.PeakTime, s.TotalDeaths,
			100*s.FinalImmune, res.Elapsed.Round(time.Microsecond), id)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := sweepFlags.scenario(cmd)
	if err != nil {
		return err
	}
	if len(sweepParams) == 0 {
		return dynamo.Configf("param", "at least one --param is required")
	}

	names := make([]string, len(sweepParams))
	values := make([][]float64, len(sweepParams))
	for i, p := range sweepParams {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return dynamo.Configf("param", "expected name=values, got %q", p)
		}
		vs, err := sweep.ParseValues(raw)
		if err != nil {
			return err
		}
		names[i], values[i] = name, vs
	}
	grid, err := sweep.NewGrid(names, values)
	if err != nil {
		return err
	}

	level.Info(logger).Log("msg", "sweeping", "scenario", base.Name, "points", len(grid.Points()))
	rows, err := sweep.Run(cmd.Context(), base, grid, registry, experiment.NewEnsemble(workers, logger, recorder))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tPEAK\tPEAK TIME\tDEATHS\tFINAL IMMUNE")
	for _, r := range rows {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", r.Params[name])
		}
		fmt.Fprintf(w, "%.2f\t%.2f\t%.2f\t%.1f%%\n", r.Summary.PeakPrevalence, r.Summary.PeakTime, r.Summary.TotalDeaths, 100*r.Summary.FinalImmune)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best, v, err := sweep.Best(rows, rankBy)
	if err != nil {
		return err
	}
	fmt.Printf("\nlowest %s: %s at %v\n", rankBy, viz.Value.Render(fmt.Sprintf("%.3f", v)), best.Params)
	return nil
}
