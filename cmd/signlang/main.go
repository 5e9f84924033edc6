// Command signlang translates text into a sign-language video URL from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sign-translator/internal/cli"
	"sign-translator/internal/config"
	"sign-translator/internal/diagnostics"
	"sign-translator/internal/domain"
	"sign-translator/internal/language"
	"sign-translator/internal/logging"
	"sign-translator/internal/translate"
)

const exitCancelled = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type result struct {
	JobID    string `json:"jobId"`
	Language string `json:"language"`
	VideoURL string `json:"videoUrl,omitempty"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("signlang", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	lang := fs.String("lang", "", "Sign language (tr, en, de, fr, es, ar); defaults to settings")
	timeout := fs.Duration("timeout", 0, "Overall deadline; 0 relies on the retry policy")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	diagnose := fs.Bool("diagnose", false, "Check configuration and service reachability, then exit")
	quiet := fs.Bool("quiet", false, "Do not print poll progress")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// A missing .env file is fine; configuration can come from the environment alone.
	_, _ = envLoader.Load()

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger, err := logging.NewWithWriter(stderr, env.Environment, env.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	settings, err := config.NewJSONStore(env.SettingsFile()).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load settings: %v\n", err)
		return 1
	}
	settings = config.Normalize(env.Apply(settings))
	if strings.TrimSpace(*lang) != "" {
		if !language.IsSupported(*lang) {
			fmt.Fprintf(stderr, "Unsupported language %q\n", *lang)
			return 2
		}
		settings.Language = *lang
	}

	if *diagnose {
		return printDiagnostics(ctx, settings, stdout)
	}

	text, err := readText(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	var attempts int
	engine := translate.NewEngine(settings,
		translate.WithLogger(logger),
		translate.WithNotifier(func(n translate.Notification) {
			if n.Type != translate.NotifyAttempt {
				return
			}
			attempts = n.Attempt
			if !*quiet {
				fmt.Fprintf(stderr, "polling %d/%d\n", n.Attempt, n.MaxAttempts)
			}
		}),
	)

	jobID := fmt.Sprintf("cli-%d", time.Now().UnixNano())
	video, err := engine.SubmitJob(ctx, jobID, text)

	out := result{
		JobID:    jobID,
		Language: language.Resolve(settings.Language).Code(),
		VideoURL: video.URL,
		Attempts: attempts,
	}
	if err != nil {
		out.Error = err.Error()
		out.Code = translate.Code(err)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", encErr)
			return 1
		}
	} else if err == nil {
		fmt.Fprintln(stdout, video.URL)
	} else {
		fmt.Fprintf(stderr, "Translation failed (%s): %v\n", out.Code, err)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, translate.ErrCancelled):
		return exitCancelled
	case errors.Is(err, translate.ErrInvalidInput), errors.Is(err, translate.ErrNotConfigured):
		return 2
	default:
		return 1
	}
}

// readText joins positional arguments, or reads stdin when none are given or the only one is "-".
func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given; pass it as arguments or on stdin")
	}
	return text, nil
}

func printDiagnostics(ctx context.Context, settings domain.Settings, w io.Writer) int {
	report := diagnostics.NewChecker(nil).Run(ctx, settings)
	for _, item := range report.Items {
		fmt.Fprintf(w, "%-5s %-22s %s\n", strings.ToUpper(string(item.Status)), item.Name, item.Message)
		if item.Hint != "" && item.Status != domain.DiagnosticStatusPass {
			fmt.Fprintf(w, "      %s\n", item.Hint)
		}
	}
	if report.HasFailures {
		return 1
	}
	return 0
}
