package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/hbollon/go-edlib"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/sentrygo/internal/diagnose"
	"github.com/standardbeagle/sentrygo/internal/diagnostics"
	"github.com/standardbeagle/sentrygo/internal/engine"
	"github.com/standardbeagle/sentrygo/internal/failures"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/settings"
	"github.com/standardbeagle/sentrygo/internal/watch"
)

var version = engine.ToolVersion

func main() {
	app := &cli.App{
		Name:    "sentrygo",
		Usage:   "Whole-program static analysis for ownership-aware, Swift-like sources",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file path (.sentrygo.kdl or .yaml)"},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root directory", Value: "."},
			&cli.StringSliceFlag{Name: "include", Usage: "Include files matching glob patterns"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Exclude files matching glob patterns"},
			&cli.IntFlag{Name: "max-jobs", Usage: "Maximum concurrent analysis workers"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "strict-io", Usage: "Abort the run on any unreadable file instead of skipping it"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				diagnose.EnableDebug = "true"
				diagnose.SetOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			checkCommand(),
			ciCommand(),
			baselineCommand(),
			fixCommand(),
			explainCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sentrygo:", err)
		os.Exit(failures.ExitCode(err))
	}
}

func loadResolved(c *cli.Context) (*settings.Resolved, error) {
	doc := settings.NewDocument()
	if path := c.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, failures.NewConfigurationError("config", path, err)
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			doc, err = settings.LoadYAML(data)
		default:
			doc, err = settings.LoadKDL(string(data))
		}
		if err != nil {
			return nil, err
		}
	}
	if inc := c.StringSlice("include"); len(inc) > 0 {
		doc.Include = inc
	}
	if exc := c.StringSlice("exclude"); len(exc) > 0 {
		doc.Exclude = append(doc.Exclude, exc...)
	}
	if mj := c.Int("max-jobs"); mj > 0 {
		doc.MaxJobs = mj
	}

	profile := settings.DefaultProfile()
	if doc.Profile == "strict" {
		profile = settings.StrictProfile()
	}
	categoryOf := func(ruleID string) string {
		switch ruleID {
		case "correctness.force_unwrap", "correctness.reference_cycle":
			return "correctness"
		case "dead_code.unreachable":
			return "dead-code"
		default:
			return ""
		}
	}
	return settings.Resolve(profile, doc, categoryOf), nil
}

func runOpts(c *cli.Context, cfg *settings.Resolved) engine.Options {
	root, _ := filepath.Abs(c.String("root"))
	return engine.Options{
		Root:     root,
		Module:   filepath.Base(root),
		Config:   cfg,
		CacheDir: filepath.Join(root, ".sentrygo-cache"),
		StrictIO: c.Bool("strict-io"),
		MaxJobs:  c.Int("max-jobs"),
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Analyze the project and print diagnostics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "human", Usage: "human|json|agent"},
			&cli.StringFlag{Name: "min-severity", Value: "suggestion", Usage: "suggestion|warning|error"},
			&cli.BoolFlag{Name: "watch", Usage: "Re-run on every source change instead of exiting"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadResolved(c)
			if err != nil {
				return err
			}
			opts := runOpts(c, cfg)
			pipeline := &diagnostics.Pipeline{Config: cfg, MinSeverity: rules.Severity(c.String("min-severity"))}

			runOnce := func() rules.Severity {
				violations, err := engine.RunWithPipeline(context.Background(), opts, pipeline)
				if err != nil {
					fmt.Fprintln(os.Stderr, "sentrygo:", err)
					return rules.SeverityError
				}
				if err := diagnostics.Write(os.Stdout, diagnostics.Format(c.String("format")), violations); err != nil {
					fmt.Fprintln(os.Stderr, "sentrygo:", err)
				}
				return diagnostics.WorstSeverity(violations)
			}

			if !c.Bool("watch") {
				if diagnostics.MeetsOrExceeds(runOnce(), rules.SeverityError) {
					os.Exit(1)
				}
				return nil
			}

			w, err := watch.New(opts.Root, 200*time.Millisecond)
			if err != nil {
				return failures.NewFilesystemError("watch", opts.Root, err)
			}
			stop := make(chan struct{})
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() { <-sigCh; close(stop) }()

			runOnce()
			w.Run(stop, func() { runOnce() })
			return nil
		},
	}
}

func ciCommand() *cli.Command {
	return &cli.Command{
		Name:  "ci",
		Usage: "Analyze the project against a baseline, exiting non-zero at the fail threshold",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "baseline", Usage: "Baseline file path"},
			&cli.StringFlag{Name: "fail-on", Value: "error", Usage: "suggestion|warning|error"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "human"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadResolved(c)
			if err != nil {
				return err
			}
			var baseline *diagnostics.Baseline
			if path := c.String("baseline"); path != "" {
				if b, err := diagnostics.LoadBaseline(path); err == nil {
					baseline = b
				} else {
					fmt.Fprintln(os.Stderr, "sentrygo: warning:", err)
				}
			}
			pipeline := &diagnostics.Pipeline{Config: cfg, Baseline: baseline, MinSeverity: rules.SeveritySuggestion}
			violations, err := engine.RunWithPipeline(context.Background(), runOpts(c, cfg), pipeline)
			if err != nil {
				return err
			}
			if err := diagnostics.Write(os.Stdout, diagnostics.Format(c.String("format")), violations); err != nil {
				return err
			}
			failOn := rules.Severity(c.String("fail-on"))
			if diagnostics.MeetsOrExceeds(diagnostics.WorstSeverity(violations), failOn) {
				os.Exit(1)
			}
			return nil
		},
	}
}

func baselineCommand() *cli.Command {
	return &cli.Command{
		Name:  "baseline",
		Usage: "Write a baseline file capturing every current diagnostic",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: ".sentrygo-baseline.json", Usage: "Output baseline path"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadResolved(c)
			if err != nil {
				return err
			}
			pipeline := &diagnostics.Pipeline{Config: cfg, MinSeverity: rules.SeveritySuggestion}
			violations, err := engine.RunWithPipeline(context.Background(), runOpts(c, cfg), pipeline)
			if err != nil {
				return err
			}
			baseline := diagnostics.NewBaseline(violations)
			return diagnostics.WriteBaseline(c.String("out"), baseline)
		},
	}
}

func fixCommand() *cli.Command {
	return &cli.Command{
		Name:  "fix",
		Usage: "Apply high-confidence structured edits",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "confidence", Value: "high", Usage: "Minimum edit confidence to apply"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print what would change without writing files"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadResolved(c)
			if err != nil {
				return err
			}
			violations, _, err := engine.Run(context.Background(), runOpts(c, cfg))
			if err != nil {
				return err
			}
			return applyFixes(runOpts(c, cfg).Root, violations, rules.Confidence(c.String("confidence")), c.Bool("dry-run"))
		},
	}
}

func explainCommand() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Print the documentation record for a rule id",
		ArgsUsage: "<rule-id>",
		Action: func(c *cli.Context) error {
			ruleID := c.Args().First()
			if ruleID == "" {
				return failures.NewConfigurationError("rule_id", "", fmt.Errorf("explain requires a rule id argument"))
			}
			reg := engine.BuildRegistry()
			doc, ok := reg.Explain(ruleID)
			if !ok {
				if suggestion := closestRuleID(ruleID, reg); suggestion != "" {
					return failures.NewConfigurationError("rule_id", ruleID,
						fmt.Errorf("unknown rule, did you mean %q?", suggestion))
				}
				return failures.NewConfigurationError("rule_id", ruleID, fmt.Errorf("unknown rule"))
			}
			fmt.Printf("%s (%s)\n", doc.ID, doc.Name)
			fmt.Printf("  category:          %s\n", doc.Category)
			fmt.Printf("  default severity:  %s\n", doc.DefaultSeverity)
			fmt.Printf("  enabled by default: %v\n", doc.EnabledByDefault)
			fmt.Printf("  cross-file:        %v\n", doc.CrossFile)
			fmt.Println("  " + doc.Description)
			return nil
		},
	}
}

// closestRuleID finds the registered rule id most similar to typo under
// Jaro-Winkler similarity, for the "did you mean" hint above. Returns ""
// if nothing clears the 0.7 similarity floor.
func closestRuleID(typo string, reg *rules.Registry) string {
	best, bestScore := "", float32(0.7)
	for _, id := range reg.RuleIDs() {
		score, err := edlib.StringsSimilarity(typo, id, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}

