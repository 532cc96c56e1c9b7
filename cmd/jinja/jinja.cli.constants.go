package main

// Command names
const (
	CmdNameRender   = "render"
	CmdNameValidate = "validate"
	CmdNameTokens   = "tokens"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagName     = "name"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagOutput   = "output"
	FlagConfig   = "config"
	FlagLstrip   = "lstrip"
	FlagFormat   = "format"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagNameShort     = "n"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagOutputShort   = "o"
	FlagConfigShort   = "c"
	FlagFormatShort   = "F"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand      = "unknown command"
	ErrMsgMissingTemplate     = "template source required"
	ErrMsgTemplateAndName     = "--template and --name are mutually exclusive"
	ErrMsgNameWithoutConfig   = "--name requires --config with a loader"
	ErrMsgInvalidFlags        = "invalid flags"
	ErrMsgInvalidData         = "invalid data"
	ErrMsgDataNotMapping      = "data must be a mapping"
	ErrMsgReadFileFailed      = "failed to read file"
	ErrMsgWriteOutputFailed   = "failed to write output"
	ErrMsgLoadConfigFailed    = "failed to load config"
	ErrMsgCreateEngineFailed  = "failed to create engine"
	ErrMsgCompileFailed       = "template compilation failed"
	ErrMsgRenderFailed        = "template rendering failed"
	ErrMsgInvalidFormat       = "invalid output format"
	ErrMsgJSONMarshalFailed   = "failed to marshal JSON"
	ErrMsgUnexpectedArguments = "unexpected arguments"
)

// Help text templates
const (
	HelpMainUsage = `go-jinja - Jinja-style template rendering CLI

Usage:
    jinja <command> [options]

Commands:
    render      Render a template with data
    validate    Compile a template and report errors
    tokens      Print the token stream of a template
    version     Show version information
    help        Show help for a command

Use "jinja help <command>" for more information about a command.`

	HelpRenderUsage = `Render a template with data

Usage:
    jinja render [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -n, --name <name>       Template name resolved through the configured loader
    -d, --data <json>       JSON data string
    -f, --data-file <file>  YAML or JSON data file
    -o, --output <file>     Output file (default: stdout)
    -c, --config <file>     YAML engine configuration
    --lstrip                Strip indentation before block tags

Examples:
    jinja render -t page.j2 -d '{"name": "Alice"}'
    jinja render -t page.j2 -f data.yaml
    cat page.j2 | jinja render -t - -d '{"items": [1, 2, 3]}'
    jinja render -c jinja.yaml -n mail/welcome -f data.json -o out.txt`

	HelpValidateUsage = `Compile a template and report errors

Usage:
    jinja validate [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    jinja validate -t page.j2
    cat page.j2 | jinja validate -t - -F json`

	HelpTokensUsage = `Print the token stream of a template

Usage:
    jinja tokens [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    jinja tokens -t page.j2
    echo '{{ a | upper }}' | jinja tokens -t - -F json`

	HelpVersionUsage = `Show version information

Usage:
    jinja version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    jinja help [command]

Commands:
    render      Show help for render command
    validate    Show help for validate command
    tokens      Show help for tokens command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "go-jinja version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
	VersionsFileName    = "versions.yaml"
)

// Validation output format templates
const (
	ValidationTextSuccess = "Template is valid"
	ValidationTextFailure = "[%s] %s at line %d, column %d"
)

// Token output format templates
const (
	TokenTextFormat = "%d:%d\t%s\t%q"
)

// CLI metadata
const (
	CLIName        = "jinja"
	CLIDescription = "Jinja-style template rendering CLI"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
)
