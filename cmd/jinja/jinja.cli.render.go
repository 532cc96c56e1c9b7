package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-jinja"
	"go.uber.org/zap"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	templateName string
	dataJSON     string
	dataFilePath string
	outputPath   string
	configPath   string
	lstrip       bool
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	data, err := loadData(cfg.dataJSON, cfg.dataFilePath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
		return ExitCodeInputError
	}

	engine, err := newEngine(cfg.configPath, cfg.lstrip)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCreateEngineFailed, err)
		return ExitCodeError
	}
	defer engine.Close()

	ctx := context.Background()
	var tmpl *jinja.Template
	if cfg.templateName != "" {
		tmpl, err = engine.GetTemplate(ctx, cfg.templateName)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCompileFailed, err)
			return compileExitCode(err)
		}
	} else {
		source, err := readInput(cfg.templatePath, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return ExitCodeInputError
		}
		tmpl, err = engine.Compile(string(source))
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCompileFailed, err)
			return ExitCodeValidationError
		}
	}

	result, err := tmpl.Render(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgRenderFailed, err)
		return ExitCodeError
	}

	if err := writeOutput(cfg.outputPath, []byte(result), stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	return ExitCodeSuccess
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := flag.NewFlagSet(CmdNameRender, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &renderConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.templateName, FlagName, "", "")
	fs.StringVar(&cfg.templateName, FlagNameShort, "", "")
	fs.StringVar(&cfg.dataJSON, FlagData, "", "")
	fs.StringVar(&cfg.dataJSON, FlagDataShort, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.BoolVar(&cfg.lstrip, FlagLstrip, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.New(ErrMsgUnexpectedArguments)
	}

	switch {
	case cfg.templatePath != "" && cfg.templateName != "":
		return nil, errors.New(ErrMsgTemplateAndName)
	case cfg.templateName != "" && cfg.configPath == "":
		return nil, errors.New(ErrMsgNameWithoutConfig)
	case cfg.templatePath == "" && cfg.templateName == "":
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	return cfg, nil
}

// newEngine builds an engine from an optional YAML config file. The --lstrip
// flag overrides the config value when set.
func newEngine(configPath string, lstrip bool) (*jinja.Engine, error) {
	var opts []jinja.Option
	if configPath != "" {
		cfg, err := jinja.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgLoadConfigFailed, err)
		}
		opts, err = cfg.Options(zap.NewNop())
		if err != nil {
			return nil, err
		}
	}
	if lstrip {
		opts = append(opts, jinja.WithLstripBlocks(true))
	}
	return jinja.New(opts...)
}

// compileExitCode distinguishes broken templates from loader failures
func compileExitCode(err error) int {
	var compileErr *jinja.CompileError
	if errors.As(err, &compileErr) {
		return ExitCodeValidationError
	}
	return ExitCodeInputError
}
