package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-jinja"
)

// tokensConfig holds parsed tokens command configuration
type tokensConfig struct {
	templatePath string
	format       string
}

type tokenOutput struct {
	Kind      string `json:"kind"`
	Value     string `json:"value,omitempty"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	TrimLeft  bool   `json:"trim_left,omitempty"`
	TrimRight bool   `json:"trim_right,omitempty"`
}

// runTokens prints the token stream. On a lexer error the tokens recognized
// before the failure are still printed.
func runTokens(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseTokensFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	source, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	tokens, lexErr := jinja.MustNew().Tokenize(string(source))

	if cfg.format == OutputFormatJSON {
		out := make([]tokenOutput, 0, len(tokens))
		for _, tok := range tokens {
			out = append(out, tokenOutput{
				Kind:      string(tok.Kind),
				Value:     tok.Value,
				Line:      tok.Position.Line,
				Column:    tok.Position.Column,
				TrimLeft:  tok.TrimLeft,
				TrimRight: tok.TrimRight,
			})
		}
		jsonBytes, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgJSONMarshalFailed, err)
			return ExitCodeError
		}
		fmt.Fprintln(stdout, string(jsonBytes))
	} else {
		for _, tok := range tokens {
			fmt.Fprintf(stdout, TokenTextFormat+FmtNewline,
				tok.Position.Line, tok.Position.Column, tok.Kind, tok.Value)
		}
	}

	if lexErr != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCompileFailed, lexErr)
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func parseTokensFlags(args []string) (*tokensConfig, error) {
	fs := flag.NewFlagSet(CmdNameTokens, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &tokensConfig{}
	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}
