package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/granin/sample20calls/internal/config"
	"github.com/granin/sample20calls/internal/grader"
	"github.com/granin/sample20calls/internal/logging"
	"github.com/granin/sample20calls/internal/profile"
)

// Exit codes.
const (
	exitCodeFailBelow = 2 // a final grade fell below --fail-below
	exitCodeBadInput  = 3 // unreadable call directory, transcript or settings
	exitCodeAPIError  = 4 // LLM provider failure
	exitCodeBadOutput = 5 // LLM output invalid after repair
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// app is the state shared by every subcommand once flags are resolved.
type app struct {
	v       *viper.Viper
	cfg     config.Config
	profile profile.Profile
	log     *zap.Logger
	out     io.Writer
}

func (a *app) graderOptions() grader.Options {
	return grader.Options{Profile: a.profile, CallDuration: a.cfg.CallDuration}
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(1)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New(), log: zap.NewNop(), out: stdout}
	var configFile string

	root := &cobra.Command{
		Use:           "callgrade",
		Short:         "Grade contact-center call transcripts against the quality rubric",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
				return withCode(exitCodeBadInput, err)
			}
			cfg, err := config.Load(a.v, configFile)
			if err != nil {
				return withCode(exitCodeBadInput, err)
			}
			p, err := cfg.GradingProfile()
			if err != nil {
				return withCode(exitCodeBadInput, err)
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return withCode(exitCodeBadInput, err)
			}
			a.cfg, a.profile, a.log = cfg, p, logger
			a.log.Debug("settings resolved",
				zap.String("profile", p.Name),
				zap.Int("workers", cfg.Workers),
				zap.String("format", cfg.Format),
			)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML settings file")
	pf.String(config.FlagName("profile"), "standard", "built-in grading profile ("+strings.Join(profile.Names(), "|")+")")
	pf.String(config.FlagName("profile_file"), "", "YAML grading profile; overrides --profile")
	pf.Float64(config.FlagName("call_duration"), 0, "call length in seconds (0 = end of last utterance)")
	pf.String(config.FlagName("log_level"), "info", "log level: debug|info|warn|error")
	pf.String(config.FlagName("log_format"), "console", "log format: json|console")

	root.AddCommand(
		newGradeCmd(a),
		newBatchCmd(a),
		newTimingCmd(a),
		newGratitudeCmd(a),
		newContextCmd(a),
		newReviewCmd(a),
		newValidateCmd(a),
	)
	return root
}
