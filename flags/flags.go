package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_REPORTER"

var (
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   "-",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INPUT"),
		Usage:   "Path to a `go test -json` event stream, '-' reads from stdin",
	}
	Name = &cli.StringFlag{
		Name:    "name",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NAME"),
		Usage:   "Session name used for the report directory. Defaults to the last element of the module path",
	}
	ReportRoot = &cli.StringFlag{
		Name:    "report-root",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_ROOT"),
		Usage:   "Directory under which Reports/<name>/<timestamp>/ is created",
	}
	Settings = &cli.StringFlag{
		Name:    "settings",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SETTINGS"),
		Usage:   "Path to a YAML file with report title, document title and CSS",
	}
	Mode = &cli.StringFlag{
		Name:    "mode",
		Value:   "concurrent",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MODE"),
		Usage:   "How steps are matched to tests: 'sequential' records everything against the session name, 'concurrent' records per test",
	}
	ReportingOff = &cli.BoolFlag{
		Name:    "reporting-off",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTING_OFF"),
		Usage:   "Write Output.txt and mirror steps to the console instead of producing an HTML report",
	}
	AsyncFlush = &cli.BoolFlag{
		Name:    "async-flush",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ASYNC_FLUSH"),
		Usage:   "Flush report artifacts on a background goroutine instead of after every step",
	}
	ShowTable = &cli.BoolFlag{
		Name:    "show-table",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_TABLE"),
		Usage:   "Print a summary table of every test when the session closes",
	}
	OpenReport = &cli.BoolFlag{
		Name:    "open-report",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OPEN_REPORT"),
		Usage:   "Open the finished report in the desktop viewer",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "Start the healthz server while converting",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Input,
	Name,
	ReportRoot,
	Settings,
	Mode,
	ReportingOff,
	AsyncFlush,
	ShowTable,
	OpenReport,
	Serve,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
