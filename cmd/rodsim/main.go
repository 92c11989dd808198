package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/softmech/rodsim/internal/analysis"
	"github.com/softmech/rodsim/internal/config"
	"github.com/softmech/rodsim/internal/experiment"
	"github.com/softmech/rodsim/internal/export"
	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/recorder"
	"github.com/softmech/rodsim/internal/store"
	"github.com/softmech/rodsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	dtFlag     float64
	timeFlag   float64
	everyFlag  int
	// Export target
	outFile string
	// Series column to plot instead of the center-of-mass speed
	column int
	// SVG render size
	svgWidth  int
	svgHeight int
)

func main() {
	envCfg, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "rodsim",
		Short: "slender body and contact dynamics lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envCfg.DataDir, "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and persist the results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	runCmd.Flags().Float64Var(&dtFlag, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&timeFlag, "time", config.DefaultDuration, "duration")
	runCmd.Flags().IntVar(&everyFlag, "every", config.DefaultRecordEvery, "record every n steps")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario with live terminal visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	liveCmd.Flags().Float64Var(&dtFlag, "dt", config.DefaultDt, "timestep")
	liveCmd.Flags().Float64Var(&timeFlag, "time", config.DefaultDuration, "duration")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&column, "column", -1, "series column to plot (default: com speed)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&outFile, "out", "", "output file (default: stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of the com speed",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render recorded trajectories to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderSVG,
	}
	svgCmd.Flags().StringVar(&outFile, "out", "", "output file (default: <run_id>.svg)")
	svgCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	svgCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	compareCmd := &cobra.Command{
		Use:   "compare [scenario] [stepper] [stepper] ...",
		Short: "run the same scenario under different steppers",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSteppers,
	}
	compareCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	compareCmd.Flags().Float64Var(&dtFlag, "dt", config.DefaultDt, "timestep")
	compareCmd.Flags().Float64Var(&timeFlag, "time", config.DefaultDuration, "duration")

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "benchmark a scenario across step sizes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	benchCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")

	rootCmd.AddCommand(runCmd, liveCmd, presetsCmd, listCmd, showCmd, plotCmd, exportCmd, analyzeCmd, svgCmd, compareCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadScenario resolves the positional argument against the preset
// table, then the filesystem. --config wins over both.
func loadScenario(args []string) (*config.Scenario, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("scenario name or --config required")
	}
	name := args[0]
	if sc := config.GetPreset(name); sc != nil {
		cp := *sc
		return &cp, nil
	}
	if _, err := os.Stat(name); err == nil {
		return config.Load(name)
	}
	return nil, fmt.Errorf("unknown scenario %q (presets: %s)", name, strings.Join(config.ListPresets(), ", "))
}

func applyOverrides(cmd *cobra.Command, sc *config.Scenario) {
	if cmd.Flags().Changed("dt") {
		sc.Dt = dtFlag
	}
	if cmd.Flags().Changed("time") {
		sc.Duration = timeFlag
	}
	if cmd.Flags().Changed("every") {
		sc.RecordEvery = everyFlag
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}
	applyOverrides(cmd, sc)

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	run, err := experiment.Assemble(sc)
	if err != nil {
		return err
	}
	for _, warning := range run.Report.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}

	fmt.Printf("running %s...\n", sc.Name)
	result, err := run.Execute(cmd.Context())
	if err != nil {
		return err
	}

	var snaps []recorder.Snapshot
	if run.Recorder != nil {
		snaps = run.Recorder.Snapshots()
	}

	runID, err := st.Save(sc.Name, sc.Stepper, sc.Dt, sc.Duration, result.Metrics, snaps)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.WallTime.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.Steps)
	fmt.Printf("samples: %d\n", len(snaps))
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}
	applyOverrides(cmd, sc)

	run, err := experiment.Assemble(sc)
	if err != nil {
		return err
	}
	return viz.Run(run)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPPER\tDT\tDURATION\tENTITIES")
	for _, name := range config.ListPresets() {
		sc := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%g\t%.1fs\t%s\n",
			name, sc.Stepper, sc.Dt, sc.Duration, describeEntities(sc))
	}
	return w.Flush()
}

func describeEntities(sc *config.Scenario) string {
	var parts []string
	if sc.Rod != nil {
		parts = append(parts, fmt.Sprintf("rod(%d)", sc.Rod.Elements))
	}
	if n := len(sc.Spheres); n == 1 {
		parts = append(parts, "sphere")
	} else if n > 1 {
		parts = append(parts, fmt.Sprintf("%d spheres", n))
	}
	if sc.Floor != nil {
		parts = append(parts, "floor")
	}
	return strings.Join(parts, ", ")
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tSTEPPER\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%g\t%s\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Stepper,
			run.Steps,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	rows, times, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(rows))

	data := comSpeeds(rows)
	caption := "center of mass speed"
	if column >= 0 {
		caption = fmt.Sprintf("series column %d", column)
		for i, row := range rows {
			data[i] = 0
			if column < len(row) {
				data[i] = row[column]
			}
		}
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	if len(times) > 0 {
		fmt.Printf("\ntime range: %.3fs to %.3fs\n", times[0], times[len(times)-1])
	}

	return nil
}

// comSpeeds extracts the center-of-mass speed from series rows. The
// columns after time are step and the three com velocity components.
func comSpeeds(rows [][]float64) []float64 {
	speeds := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) >= 4 {
			speeds[i] = math.Sqrt(row[1]*row[1] + row[2]*row[2] + row[3]*row[3])
		}
	}
	return speeds
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, times, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(rows) < 4 || times[len(times)-1] <= times[0] {
		return fmt.Errorf("not enough samples to analyze")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Scenario)

	speeds := comSpeeds(rows)
	sampleRate := float64(len(times)-1) / (times[len(times)-1] - times[0])

	mean := 0.0
	for _, v := range speeds {
		mean += v
	}
	mean /= float64(len(speeds))
	centered := make([]float64, len(speeds))
	for i, v := range speeds {
		centered[i] = v - mean
	}

	ps := analysis.PowerSpectrum(centered)
	plotData := ps
	if len(ps) > 4 {
		plotData = ps[:len(ps)/4]
	}
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (com speed)"),
	)
	fmt.Println(graph)
	fmt.Println()

	freq, _ := analysis.DominantFrequency(speeds, sampleRate)
	fmt.Printf("sample rate: %.1f hz\n", sampleRate)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	return nil
}

func renderSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, times, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to render")
	}
	if meta.Nodes < 1 {
		return fmt.Errorf("run has no recorded nodes")
	}

	frames := make([]export.Frame, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4+3*meta.Nodes {
			continue
		}
		points := make([]linalg.Vec3, meta.Nodes)
		for n := 0; n < meta.Nodes; n++ {
			points[n] = linalg.Vec3{X: row[4+3*n], Y: row[5+3*n], Z: row[6+3*n]}
		}
		frames = append(frames, export.Frame{Time: times[i], Points: points})
	}

	out := outFile
	if out == "" {
		out = runID + ".svg"
	}
	if err := export.WriteTrajectorySVG(out, frames, svgWidth, svgHeight); err != nil {
		return err
	}
	fmt.Printf("rendered %d frames to %s\n", len(frames), out)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, times, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	if outFile == "" {
		return store.ExportJSONStdout(meta, times, rows)
	}
	if err := store.ExportJSON(outFile, meta, times, rows); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, outFile)
	return nil
}

func compareSteppers(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args[:1])
	if err != nil {
		return err
	}
	applyOverrides(cmd, sc)

	names := args[1:]
	if len(names) == 0 {
		names = []string{"position-verlet", "pefrl"}
	}

	fmt.Printf("comparing steppers for %s (dt=%g, duration=%gs)\n\n", sc.Name, sc.Dt, sc.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPPER\tSTEPS\tKINETIC\tENERGY_DRIFT\tMAX_SPEED\tTIME")

	for _, name := range names {
		cp := *sc
		cp.Stepper = name
		cp.RecordEvery = 0

		run, err := experiment.Assemble(&cp)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		result, err := run.Execute(cmd.Context())
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		fmt.Fprintf(w, "%s\t%d\t%.6g\t%.3e\t%.6g\t%v\n",
			name,
			result.Steps,
			result.Metrics["kinetic_energy"],
			result.Metrics["energy_drift"],
			result.Metrics["max_speed"],
			result.WallTime.Round(time.Millisecond),
		)
	}

	return w.Flush()
}

func benchScenario(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}

	durations := []float64{0.25, 0.5, 1.0}
	dts := []float64{5e-5, 1e-4, 2e-4}

	fmt.Printf("benchmarking %s\n\n", sc.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, dur := range durations {
		for _, dt := range dts {
			cp := *sc
			cp.Dt = dt
			cp.Duration = dur
			cp.RecordEvery = 0

			run, err := experiment.Assemble(&cp)
			if err != nil {
				return err
			}
			result, err := run.Execute(cmd.Context())
			if err != nil {
				fmt.Fprintf(w, "%.2fs\t%.0e\terror: %v\n", dur, dt, err)
				continue
			}

			stepsPerSec := float64(result.Steps) / result.WallTime.Seconds()
			fmt.Fprintf(w, "%.2fs\t%.0e\t%d\t%v\t%.0f\n",
				dur, dt, result.Steps, result.WallTime.Round(time.Millisecond), stepsPerSec)
		}
	}

	return w.Flush()
}
