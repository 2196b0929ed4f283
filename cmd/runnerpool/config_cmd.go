package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/runnerpool/internal/config"
	"github.com/mattjoyce/runnerpool/internal/doctor"
	"github.com/mattjoyce/runnerpool/internal/webhook"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "hash":
		if hasHelpFlag(actionArgs) {
			printConfigHashHelp()
			return 0
		}
		return runConfigHash(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

// runConfigCheck exits 0 when clean, 1 on errors and 2 when only warnings
// were found.
func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	result, code, err := checkConfig(*configPath, os.Getenv(webhook.SecretEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	printValidationSummary(os.Stdout, newTheme(), *configPath, result)
	return code
}

// checkConfig loads locator and runs the doctor. Validation failures are
// returned as doctor errors rather than err.
func checkConfig(locator, secret string) (*doctor.Result, int, error) {
	cfg, err := toolLoader().Load(locator)
	if err != nil {
		var le *config.LoadError
		if !errors.As(err, &le) || !errors.Is(err, config.ErrValidation) {
			return nil, 1, err
		}
		result := &doctor.Result{}
		for _, v := range le.Violations {
			result.Errors = append(result.Errors, doctor.Issue{Category: "schema", Field: v.Path, Message: v.Message})
		}
		return result, 1, nil
	}

	result := doctor.New(cfg, secret).Validate()
	switch {
	case !result.Valid:
		return result, 1, nil
	case len(result.Warnings) > 0:
		return result, 2, nil
	default:
		return result, 0, nil
	}
}

func printValidationSummary(w io.Writer, th theme, locator string, result *doctor.Result) {
	if result == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", th.Heading.Render("Config:"), locator)

	if !result.Valid {
		fmt.Fprintln(w, th.Error.Render(fmt.Sprintf("Validation: failed (%d error(s), %d warning(s))", len(result.Errors), len(result.Warnings))))
	} else if len(result.Warnings) == 0 {
		fmt.Fprintln(w, th.OK.Render("Validation: ✓ All checks passed"))
		return
	} else {
		fmt.Fprintln(w, th.OK.Render(fmt.Sprintf("Validation: ✓ passed with %d warning(s)", len(result.Warnings))))
	}

	for _, issue := range result.Errors {
		fmt.Fprintln(w, "  "+th.Error.Render("ERROR")+" "+formatIssue(issue))
	}
	for _, issue := range result.Warnings {
		fmt.Fprintln(w, "  "+th.Warn.Render("WARN ")+" "+formatIssue(issue))
	}
}

func formatIssue(issue doctor.Issue) string {
	if issue.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", issue.Category, issue.Field, issue.Message)
	}
	return fmt.Sprintf("[%s] %s", issue.Category, issue.Message)
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := toolLoader().Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}

func runConfigHash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	configPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	digest, err := toolLoader().DigestLocator(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hash error: %v\n", err)
		return 1
	}
	fmt.Printf("%s  %s\n", newTheme().Digest.Render(digest), *configPath)
	return 0
}

func printConfigNounHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: runnerpool config <action> [flags]

Actions:
  check   Validate configuration and report advisory warnings
  show    Print the loaded configuration as YAML
  hash    Print the BLAKE3 digest of the configuration document
`)
}

func printConfigCheckHelp() {
	fmt.Print(`Usage: runnerpool config check [--config LOCATOR]

Loads and validates the configuration, then runs advisory checks.
Exit codes: 0 clean, 1 errors, 2 warnings only.
`)
}

func printConfigShowHelp() {
	fmt.Print(`Usage: runnerpool config show [--config LOCATOR]

Prints the validated configuration as YAML. Durations render as ISO-8601.
`)
}

func printConfigHashHelp() {
	fmt.Print(`Usage: runnerpool config hash [--config LOCATOR]

Prints the BLAKE3 digest of the raw document without validating it.
`)
}
