package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/history"
	"github.com/scanhive/scanhive/pkg/report"
	"github.com/scanhive/scanhive/pkg/scan"
	"github.com/scanhive/scanhive/pkg/ui"
)

// scanFlags collects the one-shot scan options that have no home in
// the shared config.
type scanFlags struct {
	target  string
	tools   string
	timeout int
	output  string
	format  string
	silent  bool
}

func runScan(args []string) int {
	var sf scanFlags
	cfg, _, err := parseConfig("scan", args, func(fs *flag.FlagSet) {
		fs.StringVar(&sf.target, "target", "", "Target URL to scan (required)")
		fs.StringVar(&sf.tools, "tools", "nuclei,nikto,zap", "Comma-separated scanner names")
		fs.IntVar(&sf.timeout, "timeout", 0, "Per-tool timeout in seconds (0 uses registry defaults)")
		fs.StringVar(&sf.output, "output", "", "Write the rendered report to this file")
		fs.StringVar(&sf.format, "format", "", "Report format: json, html, markdown, pdf (default json)")
		fs.BoolVar(&sf.silent, "silent", false, "Suppress progress output, print only the report")
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}
	if sf.target == "" {
		fmt.Fprintln(os.Stderr, "scan: -target is required")
		return defaults.ExitUserError
	}
	format, err := report.ParseFormat(sf.format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}
	ui.SetSilent(sf.silent)

	st, err := newStack(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}
	defer st.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := scan.Request{
		Target:     sf.target,
		Tools:      splitTools(sf.tools),
		TimeoutSec: sf.timeout,
	}

	if !sf.silent {
		ui.PrintMiniBanner()
	}

	id, err := st.engine.Start(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, finding.ErrValidation) {
			return defaults.ExitUserError
		}
		return defaults.ExitInternalError
	}

	// The subscription exists before any tool starts, so no lifecycle
	// event can be missed.
	ch, cancel, err := st.broadcaster.Subscribe(id)
	if err == nil {
		defer cancel()
		go func() {
			for ev := range ch {
				if !sf.silent {
					fmt.Fprintln(os.Stderr, ui.FormatEvent(ev))
				}
			}
		}()
	}

	if err := st.engine.Wait(ctx, id); err != nil {
		if ctx.Err() != nil {
			// Interrupted; the engine marks the scan cancelled and we
			// still report whatever completed.
			fmt.Fprintln(os.Stderr, "interrupted, cancelling scan")
			_ = st.engine.Cancel(id)
			_ = st.engine.Wait(context.Background(), id)
		} else {
			fmt.Fprintln(os.Stderr, err)
			return defaults.ExitInternalError
		}
	}

	res, err := st.engine.Get(id)
	if err != nil {
		res, err = st.store.Get(id)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}

	if !sf.silent {
		printConsoleResult(res)
	}

	if sf.output != "" || sf.silent {
		rendered, err := report.NewRenderer().Render(res, format)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return defaults.ExitInternalError
		}
		if sf.output != "" {
			if err := os.WriteFile(sf.output, rendered, 0o644); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return defaults.ExitInternalError
			}
			if !sf.silent {
				ui.PrintKV("Report", sf.output)
			}
		} else {
			os.Stdout.Write(rendered)
		}
	}

	return exitCodeFor(res)
}

// splitTools turns "nuclei, nikto,zap" into trimmed names.
func splitTools(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// printConsoleResult writes the per-tool breakdown and the summary
// block to stderr.
func printConsoleResult(res *scan.Result) {
	for _, tr := range res.ToolRuns {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, ui.FormatToolRun(tr))
		for _, f := range tr.Findings {
			fmt.Fprintln(os.Stderr, ui.FormatFinding(f))
		}
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, ui.FormatSummary(res))
}

// exitCodeFor maps a finished scan onto the documented exit codes.
func exitCodeFor(res *scan.Result) int {
	switch res.Status {
	case scan.StatusFailed:
		return defaults.ExitTargetError
	case scan.StatusCancelled:
		return defaults.ExitInternalError
	}
	if res.Summary.Total > 0 {
		return defaults.ExitFindingsFound
	}
	return defaults.ExitSuccess
}

func runReport(args []string) int {
	var (
		id     string
		format string
		output string
		list   bool
		limit  int
	)
	cfg, _, err := parseConfig("report", args, func(fs *flag.FlagSet) {
		fs.StringVar(&id, "id", "", "Scan id to render")
		fs.StringVar(&format, "format", "", "Report format: json, html, markdown, pdf (default json)")
		fs.StringVar(&output, "output", "", "Write to this file instead of stdout")
		fs.BoolVar(&list, "list", false, "List stored scans instead of rendering")
		fs.IntVar(&limit, "limit", defaults.ListLimitDefault, "Maximum scans to list")
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}

	store, err := history.NewStore(cfg.HistoryDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}

	if list {
		printHistory(store, limit)
		return defaults.ExitSuccess
	}

	if id == "" {
		fmt.Fprintln(os.Stderr, "report: -id is required (or use -list)")
		return defaults.ExitUserError
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}
	res, err := store.Get(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}
	rendered, err := report.NewRenderer().Render(res, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitInternalError
	}
	if output != "" {
		if err := os.WriteFile(output, rendered, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return defaults.ExitInternalError
		}
		return defaults.ExitSuccess
	}
	os.Stdout.Write(rendered)
	return defaults.ExitSuccess
}

func printHistory(store *history.Store, limit int) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCAN ID\tTARGET\tSTATUS\tFINDINGS\tSTARTED")
	for _, e := range store.List(limit) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.ScanID, e.Target, e.Status, e.Findings,
			e.StartedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func runTools(args []string) int {
	cfg, _, err := parseConfig("tools", args, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return defaults.ExitUserError
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tTIMEOUT\tAVAILABLE")
	for _, name := range registry.Names() {
		d, _ := registry.Get(name)
		available := "no"
		if d.Available() {
			available = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Category, d.DefaultTimeout, available)
	}
	w.Flush()
	return defaults.ExitSuccess
}
