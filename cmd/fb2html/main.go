package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"fb2html/commands"
	"fb2html/config"
	"fb2html/misc"
	"fb2html/reporter"
	"fb2html/state"
)

type appWrapper struct {
	log           *zap.Logger
	stdlogRestore func()
	prof          interface{ Stop() }
	rpt           *reporter.Report
	inCommand     bool
}

func (w *appWrapper) beforeAppRun(c *cli.Context) error {

	if c.NArg() == 0 {
		return nil
	}

	const (
		errPrefix = "\n*** ERROR ***\n\npreparing: "
		errCode   = 1
	)
	var err error

	// Process global options

	env := c.Generic(state.FlagName).(*state.LocalEnv)
	env.Debug = c.Bool("debug")

	if c.Bool("report") {
		if w.rpt, err = reporter.NewReport(); err != nil {
			return cli.Exit(fmt.Errorf("%sunable to create report: %w", errPrefix, err), errCode)
		}
		env.Rpt = w.rpt
	}

	// Prepare configuration
	fconfig := c.StringSlice("config")
	for i, name := range fconfig {
		if name != "-" {
			env.Rpt.Store(fmt.Sprintf("config-%d%s", i, filepath.Ext(name)), name)
		}
	}
	if env.Cfg, err = config.BuildConfig(fconfig...); err != nil {
		return cli.Exit(fmt.Errorf("%sunable to build configuration: %w", errPrefix, err), errCode)
	}
	if data, err := env.Cfg.GetBytes(); err == nil {
		env.Rpt.StoreData("config.json", data)
	}

	// We may want to do some profiling
	if p := c.String("cpuprofile"); len(p) > 0 {
		w.prof = profile.Start(profile.CPUProfile, profile.ProfilePath(p))
	} else if p := c.String("memprofile"); len(p) > 0 {
		w.prof = profile.Start(profile.MemProfile, profile.ProfilePath(p))
	} else if p := c.String("blkprofile"); len(p) > 0 {
		w.prof = profile.Start(profile.BlockProfile, profile.ProfilePath(p))
	} else if p := c.String("traceprofile"); len(p) > 0 {
		w.prof = profile.Start(profile.TraceProfile, profile.ProfilePath(p))
	} else if p := c.String("mutexprofile"); len(p) > 0 {
		w.prof = profile.Start(profile.MutexProfile, profile.ProfilePath(p))
	}

	return nil
}

func (w *appWrapper) beforeCommandRun(c *cli.Context) error {

	const (
		errPrefix = "\n*** ERROR ***\n\npreparing: "
		errCode   = 1
	)
	var err error

	env := c.Generic(state.FlagName).(*state.LocalEnv)

	// Prepare logs
	env.Log, err = env.Cfg.PrepareLog(env.Rpt)
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to create logs: %w", errPrefix, err), errCode)
	}

	w.log = env.Log
	w.stdlogRestore = zap.RedirectStdLog(env.Log)

	// Log errors rather then print them
	w.inCommand = true

	w.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()+" ("+runtime.Version()+") : "+misc.GetGitHash()))
	if len(c.StringSlice("config")) == 0 {
		w.log.Info("Using defaults (no configuration file)")
	}

	return nil
}

func (w *appWrapper) errorHandler(context *cli.Context, err error) {

	if !w.inCommand {
		cli.HandleExitCoder(err)
		return
	}

	if err == nil {
		return
	}

	// we are in command run, log is fully prepared
	if exitErr, ok := err.(cli.ExitCoder); ok {
		if err.Error() != "" {
			var msg string
			if _, ok := exitErr.(cli.ErrorFormatter); ok {
				msg = fmt.Sprintf("%+v\n", err)
			} else {
				msg = err.Error()
			}
			w.log.Error("Command ended with error", zap.Int("code", exitErr.ExitCode()), zap.String("error", msg))
		}
		cli.OsExiter(exitErr.ExitCode())
	}
}

func (w *appWrapper) afterCommandRun(c *cli.Context) error {
	w.inCommand = false
	return nil
}

func (w *appWrapper) afterAppRun(c *cli.Context) error {

	if w.prof != nil {
		w.prof.Stop()
	}

	if w.log != nil {

		w.log.Debug("Program ended", zap.Strings("parsed args", c.Args().Slice()))

		w.stdlogRestore()
		_ = w.log.Sync()
	}

	if w.rpt != nil {
		if err := w.rpt.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to finalize report: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Report created: %s\n", w.rpt.Name())
		}
	}
	return nil
}

func main() {

	cli.OsExiter = func(int) { /* do nothing, we want afterRun to execute */ }

	app := cli.NewApp()

	app.Name = "fb2html"
	app.Usage = "FB2 to HTML conversion engine"
	app.Version = misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash()

	var wrap appWrapper
	app.Before = wrap.beforeAppRun
	app.After = wrap.afterAppRun
	app.ExitErrHandler = wrap.errorHandler

	app.Flags = []cli.Flag{
		// only one profile could be enables at a time - this is enforced by beforeRun
		&cli.StringFlag{Name: "cpuprofile", Hidden: true, Usage: "write cpu profile to `PATH`"},
		&cli.StringFlag{Name: "memprofile", Hidden: true, Usage: "write memory profile to `PATH`"},
		&cli.StringFlag{Name: "blkprofile", Hidden: true, Usage: "write block profile to `PATH`"},
		&cli.StringFlag{Name: "traceprofile", Hidden: true, Usage: "write trace profile to `PATH`"},
		&cli.StringFlag{Name: "mutexprofile", Hidden: true, Usage: "write mutex profile to `PATH`"},

		&cli.GenericFlag{Name: state.FlagName, Hidden: true, Usage: "--internal--", Value: state.NewLocalEnv()},

		&cli.StringSliceFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML, TOML, HCL or JSON), may be repeated. if FILE is \"-\" JSON will be expected from STDIN"},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "show configuration the way it was read, before defaults are applied"},
		&cli.BoolFlag{Name: "report", Aliases: []string{"r"}, Usage: "create report archive on exit (" + reporter.ReportName + ")"},
	}

	app.Commands = []*cli.Command{
		{
			Name:   "convert",
			Usage:  "Converts FB2 file(s) to HTML",
			Action: commands.Convert,
			Before: wrap.beforeCommandRun,
			After:  wrap.afterCommandRun,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "nodirs", Usage: "when producing output do not keep input directory structure"},
				&cli.BoolFlag{Name: "ow", Usage: "continue even if destination exits, overwrite files"},
				&cli.StringFlag{Name: "force-zip-cp", Usage: "Force `ENCODING` for ALL file names in archives (see IANA.org for character set names)"},
			},
			ArgsUsage: "SOURCE [DESTINATION]",
			CustomHelpTemplate: fmt.Sprintf(`%sSOURCE:
    path to fb2 file(s) to process, following formats are supported:
        path to a file: [path]file.fb2
        path to a directory: [path]directory - recursively process all files under directory (symbolic links are not followed)
        path to archive with path inside archive to a particular fb2 file: [path]archive.zip[archive path]/file.fb2
        path to archive with path inside archive: [path]archive.zip[archive path] - recursively process all fb2 files under archive path

    When working on archive recursively only fb2 files will be considered, processing of archives inside archives is not supported.

DESTINATION:
    always a path, output file name(s) will be derived from configuration
    if absent - current working directory
`, cli.CommandHelpTemplate),
		},
		{
			Name:      "watch",
			Usage:     "Converts FB2 file to HTML every time it changes",
			Action:    commands.Watch,
			Before:    wrap.beforeCommandRun,
			After:     wrap.afterCommandRun,
			ArgsUsage: "SOURCE [DESTINATION]",
			CustomHelpTemplate: fmt.Sprintf(`%sSOURCE:
    path to fb2 file

DESTINATION:
    always a path, output is always overwritten
    if absent - current working directory

Runs until interrupted.
`, cli.CommandHelpTemplate),
		},
		{
			Name:   "rules",
			Usage:  "Prints active tag translation table",
			Action: commands.Rules,
			Before: wrap.beforeCommandRun,
			After:  wrap.afterCommandRun,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "output table as JSON"},
			},
			CustomHelpTemplate: fmt.Sprintf(`%s
Rules are listed in lookup order: rules from configuration first, built-in ones after them. First matching rule wins.
`, cli.CommandHelpTemplate),
		},
		{
			Name:      "dumpconfig",
			Usage:     "Dumps active configuration (JSON)",
			Action:    commands.DumpConfig,
			Before:    wrap.beforeCommandRun,
			After:     wrap.afterCommandRun,
			ArgsUsage: "DESTINATION",
			CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
	file name to write configuration to, if absent - STDOUT

Produces file with actual configuration values to be used by the program. To see configuration after parsing but before anything else use --debug option.
`, cli.CommandHelpTemplate),
		},
		{
			Name:      "export",
			Usage:     "Exports built-in resources for customization",
			Action:    commands.ExportResources,
			Before:    wrap.beforeCommandRun,
			After:     wrap.afterCommandRun,
			ArgsUsage: "DESTINATION",
			CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
	existing path to export resources to, must be present

Exports built-in resources (sample configuration and stylesheet template) for customization.
`, cli.CommandHelpTemplate),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if wrap.log != nil {
			_ = wrap.log.Sync()
		}
		os.Exit(1)
	}
}
