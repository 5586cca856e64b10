// Package main implements the retrace CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvmretrace/retrace/pkg/cache"
	"github.com/jvmretrace/retrace/pkg/config"
	"github.com/jvmretrace/retrace/pkg/mapping"
	"github.com/jvmretrace/retrace/pkg/resolver"
	"github.com/jvmretrace/retrace/pkg/retrace"
	"github.com/jvmretrace/retrace/pkg/ui"
)

var version = "0.1.0-alpha"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "retrace",
		Short:        "retrace - deobfuscate JVM stack traces with R8/ProGuard mapping files",
		Version:      version,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintRetraceHelp(version)
		},
	}
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		ui.PrintRetraceHelp(version)
	})
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a retrace.toml config file")

	rootCmd.AddCommand(traceCmd(&configPath))
	rootCmd.AddCommand(classCmd(&configPath))
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath, nil)
	}
	return config.Load(nil)
}

func traceCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "trace <mapping> <stacktrace-file>",
		Short: "Remap a stack trace file using a mapping file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(args[0], args[1], output, *configPath)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: stdout)")
	return cmd
}

func runTrace(mappingPath, tracePath, outputPath, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	styled := cfg.Output.Format == config.FormatStyled

	var out *ui.TraceOutput
	if styled {
		out = ui.NewTraceOutput()
	}
	if !cfg.Output.Quiet {
		if styled {
			out.PrintHeader(version)
			out.PrintLoadStart(mappingPath)
		} else {
			fmt.Printf("retrace %s\n", version)
			fmt.Printf("loading %s\n", mappingPath)
		}
	}

	loadStart := time.Now()
	idx, err := buildIndex(mappingPath)
	loadDuration := time.Since(loadStart)
	if err != nil {
		if !cfg.Output.Quiet {
			if styled {
				out.PrintStep(ui.Step{Name: "Load mapping", Status: ui.StepError, Duration: loadDuration})
				out.PrintSummary(false, err.Error(), ui.MappingStats{})
			} else {
				fmt.Printf("load mapping: failed: %s\n", err.Error())
			}
		}
		return err
	}
	if !cfg.Output.Quiet {
		if styled {
			out.PrintStep(ui.Step{Name: "Load mapping", Status: ui.StepSuccess, Duration: loadDuration})
		} else {
			fmt.Printf("load mapping: ok (%s)\n", loadDuration.Round(time.Microsecond))
		}
		printDiagnostics(out, styled, idx)
	}

	resolverCfg := resolver.Config{InitializeParamMapping: cfg.Resolver.InitializeParamMapping}

	resolveStart := time.Now()
	rt := retrace.New(idx, resolverCfg)
	text, err := os.ReadFile(tracePath)
	if err != nil {
		if !cfg.Output.Quiet {
			if styled {
				out.PrintStep(ui.Step{Name: "Read trace", Status: ui.StepError, Duration: time.Since(resolveStart)})
				out.PrintSummary(false, err.Error(), ui.MappingStats{})
			} else {
				fmt.Printf("read trace: failed: %s\n", err.Error())
			}
		}
		return err
	}

	rewritten := rt.RemapStackTrace(string(text))
	resolveDuration := time.Since(resolveStart)
	if !cfg.Output.Quiet {
		if styled {
			out.PrintStep(ui.Step{Name: "Remap", Status: ui.StepSuccess, Duration: resolveDuration})
		} else {
			fmt.Printf("remap: ok (%s)\n", resolveDuration.Round(time.Microsecond))
		}
	}

	if outputPath == "" || outputPath == "-" {
		fmt.Println(rewritten)
	} else {
		if err := os.WriteFile(outputPath, []byte(rewritten+"\n"), 0644); err != nil {
			if !cfg.Output.Quiet {
				if styled {
					out.PrintSummary(false, err.Error(), ui.MappingStats{})
				} else {
					fmt.Printf("write output: failed: %s\n", err.Error())
				}
			}
			return err
		}
	}

	if !cfg.Output.Quiet {
		if styled {
			out.PrintSummary(true, "", statsFor(idx))
		} else {
			stats := statsFor(idx)
			fmt.Printf("done: %d classes, %d methods, %d skipped lines, uuid %s\n",
				stats.ClassCount, stats.MemberCount, stats.SkippedLines, stats.UUID)
		}
	}
	return nil
}

// printDiagnostics surfaces the per-line parse/header diagnostics the
// tokenizer collected while building idx (spec §7) as warnings, so a
// malformed mapping line is visible to the operator rather than only
// counted in the summary's skipped-line total.
func printDiagnostics(out *ui.TraceOutput, styled bool, idx *mapping.MappingIndex) {
	for _, d := range idx.Diagnostics() {
		msg := fmt.Sprintf("line %d: %s", d.Line, d.Message)
		if styled {
			out.PrintWarning(msg)
		} else {
			fmt.Printf("warning: %s\n", msg)
		}
	}
}

func classCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "class <mapping> <obfuscated-class>",
		Short: "Resolve a single obfuscated class name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClass(args[0], args[1], *configPath)
		},
	}
}

func runClass(mappingPath, classObf, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	idx, err := buildIndex(mappingPath)
	if err != nil {
		return err
	}
	if !cfg.Output.Quiet {
		printDiagnostics(nil, false, idx)
	}

	rt := retrace.New(idx, resolver.Config{InitializeParamMapping: cfg.Resolver.InitializeParamMapping})
	original, ok := rt.RemapClass(classObf)
	if !ok {
		fmt.Println(classObf)
		return nil
	}
	fmt.Println(original)
	return nil
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Build a binary retrace cache",
	}
	cmd.AddCommand(cacheBuildCmd())
	return cmd
}

func cacheBuildCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build <mapping>",
		Short: "Serialize a mapping file to a binary cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheBuild(args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output cache file path (required)")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runCacheBuild(mappingPath, outputPath string) error {
	idx, err := buildIndex(mappingPath)
	if err != nil {
		return err
	}
	printDiagnostics(nil, false, idx)

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer f.Close()

	if err := cache.Write(f, idx); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	summary := idx.Summary()
	fmt.Printf("Wrote %s: %d classes, %d methods\n", outputPath, summary.ClassCount, summary.MethodCount)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of retrace",
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintVersionInfo(version)
		},
	}
}

func buildIndex(mappingPath string) (*mapping.MappingIndex, error) {
	f, err := os.Open(mappingPath)
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	idx, err := mapping.Build(f)
	if err != nil {
		return nil, fmt.Errorf("parsing mapping file: %w", err)
	}
	return idx, nil
}

func statsFor(idx *mapping.MappingIndex) ui.MappingStats {
	summary := idx.Summary()
	synthesized := 0
	for _, obf := range idx.ObfuscatedClassNames() {
		cls, ok := idx.Class(obf)
		if !ok {
			continue
		}
		for _, name := range cls.MemberNames() {
			for _, m := range cls.Members(name) {
				if m.AnySynthesized() {
					synthesized++
				}
			}
		}
	}

	return ui.MappingStats{
		ClassCount:       summary.ClassCount,
		MemberCount:      summary.MethodCount,
		SynthesizedCount: synthesized,
		SkippedLines:     summary.SkippedLines,
		HasLineInfo:      summary.HasLineInfo,
		UUID:             fmt.Sprintf("%x", idx.UUID()),
	}
}
