package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/TarikAI/RevoForms-sub004/config"
	"github.com/TarikAI/RevoForms-sub004/engine"
	"github.com/TarikAI/RevoForms-sub004/processor"
)

func main() {
	defPath := flag.String("definition", "form.yaml", "Path to form definition file or directory")
	check := flag.Bool("check", false, "Validate the definition and exit")
	analyze := flag.Bool("analyze", false, "Print rule analysis and exit")
	metricsListen := flag.String("metrics-listen", "", "Serve Prometheus metrics on this address")
	pollInterval := flag.Duration("poll-interval", 2*time.Second, "Interval for checking definition changes")
	flag.Parse()

	if *check {
		if err := executeCheck(*defPath); err != nil {
			fmt.Fprintf(os.Stderr, "definition invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Definition check completed successfully.")
		os.Exit(0)
	}

	if *analyze {
		cfg, err := config.Load(*defPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load definition")
		}
		os.Exit(executeAnalysis(cfg))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc, err := processor.New(ctx,
		processor.WithConfigPath(*defPath, nil),
		processor.WithPollInterval(*pollInterval),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create processor")
	}
	defer proc.Close()

	if *metricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsListen, mux); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	if err := proc.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("processor stopped with error")
	}
}

func executeCheck(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if _, err := engine.CompileConfig(cfg); err != nil {
		return err
	}
	return nil
}

func executeAnalysis(cfg *config.Config) int {
	reports, err := engine.AnalyzeRules(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "definition invalid: %v\n", err)
		return 1
	}

	if len(reports) == 0 {
		fmt.Println("No rules configured.")
		return 0
	}

	exitCode := 0
	for _, report := range reports {
		fmt.Printf("Rule %q\n", report.ID)
		if report.Name != "" {
			fmt.Printf("  Name: %s\n", report.Name)
		}
		if module := describeModule(report.Source); module != "" {
			fmt.Printf("  Module: %s\n", module)
		}
		fmt.Printf("  Trigger: %s\n", report.Trigger)
		if !report.Enabled {
			fmt.Println("  Enabled: false")
		}

		printDependencyGroup("Condition dependencies", report.Dependencies, func(dep engine.DependencyReport) bool { return dep.InConditions })
		printDependencyGroup("Expression dependencies", report.Dependencies, func(dep engine.DependencyReport) bool { return dep.InExpressions })
		printFieldList("Writes", report.Writes)
		printFieldList("Navigation targets", report.Navigations)

		if len(report.Errors) > 0 {
			exitCode = 1
			fmt.Println("  Errors:")
			for _, msg := range report.Errors {
				fmt.Printf("    - %s\n", msg)
			}
		} else {
			fmt.Println("  Status: OK")
		}

		fmt.Println()
	}

	if exitCode == 0 {
		fmt.Println("Rule analysis completed successfully.")
	} else {
		fmt.Println("Rule analysis completed with errors.")
	}
	return exitCode
}

func printFieldList(title string, fields []string) {
	fmt.Printf("  %s:\n", title)
	if len(fields) == 0 {
		fmt.Println("    <none>")
		return
	}
	for _, field := range fields {
		fmt.Printf("    - %s\n", field)
	}
}

func printDependencyGroup(title string, deps []engine.DependencyReport, filter func(engine.DependencyReport) bool) {
	fmt.Printf("  %s:\n", title)
	filtered := make([]engine.DependencyReport, 0, len(deps))
	for _, dep := range deps {
		if filter(dep) {
			filtered = append(filtered, dep)
		}
	}
	if len(filtered) == 0 {
		fmt.Println("    <none>")
		return
	}
	for _, dep := range filtered {
		typeLabel := "unknown"
		if dep.Resolved && dep.Type != "" {
			typeLabel = string(dep.Type)
		}
		notes := make([]string, 0, 2)
		if module := describeModule(dep.Source); module != "" {
			notes = append(notes, fmt.Sprintf("module %s", module))
		}
		if !dep.Resolved {
			notes = append(notes, "unresolved")
		}
		fmt.Printf("    - %s (%s)", dep.Field, typeLabel)
		if len(notes) > 0 {
			fmt.Printf(" [%s]", strings.Join(notes, ", "))
		}
		fmt.Println()
	}
}

func describeModule(ref config.ModuleReference) string {
	name := strings.TrimSpace(ref.Name)
	file := strings.TrimSpace(ref.File)
	desc := strings.TrimSpace(ref.Description)

	label := ""
	if name != "" && file != "" {
		label = fmt.Sprintf("%s (%s)", name, file)
	} else if name != "" {
		label = name
	} else if file != "" {
		label = file
	}
	if desc != "" {
		if label != "" {
			label = fmt.Sprintf("%s: %s", label, desc)
		} else {
			label = desc
		}
	}
	return label
}
