package runner

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/strongdm/cajon/internal/configstore"
	"github.com/strongdm/cajon/internal/engine"
	"github.com/strongdm/cajon/internal/reconcile"
	"github.com/strongdm/cajon/internal/termlog"
)

// streams are the standard streams a command reads and writes.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(s streams) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "cajon",
		Short: "Launch and attach to a development container described by .cajon.toml",
		Long: `cajon reads .cajon.toml (or .cajon.yaml) from the working directory,
makes sure the named container exists and runs with that configuration,
and attaches you to it. Rerunning is safe: an existing container is
started or reused, never recreated, unless --replace is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionTag(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconcileAndAttach(cmd.Context(), opts, s.errOut)
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.errOut)
	root.SetVersionTemplate("cajon {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: .cajon.toml, .cajon.yaml or .cajon.yml in the working directory)")
	flags.BoolVarP(&opts.verbose, "verbose", "V", false, "echo every runtime invocation and reconciliation step")
	root.Flags().BoolVarP(&opts.replace, "replace", "r", false, "remove an existing container and create it again")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the runtime, container name and observed container state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showStatus(cmd.Context(), opts, cmd.OutOrStdout(), s.errOut)
			},
		},
		newRmCmd(&opts, s),
		newVersionCmd(),
	)
	return root
}

func newRmCmd(opts *options, s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove"},
		Short:   "Force-remove the configured container",
		Long:    "Force-remove the configured container. Stateful containers ask for confirmation first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeContainer(cmd.Context(), *opts, s.in, cmd.OutOrStdout(), s.errOut)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask before removing a stateful container")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// Main runs the cajon CLI with args (without the program name).
func Main(ctx context.Context, args []string) error {
	return run(ctx, args, streams{in: os.Stdin, out: os.Stdout, errOut: os.Stderr})
}

func run(ctx context.Context, args []string, s streams) error {
	root := newRootCmd(s)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// ReportError writes err to w the way cajon reports fatal conditions, with a
// hint where one helps.
func ReportError(w io.Writer, err error) {
	log := termlog.New(w, false)
	log.Errorf("%v", err)

	switch {
	case errors.Is(err, engine.ErrRuntimeNotFound):
		log.Infof("Install podman or docker, or point %s at a runtime binary.", engine.RuntimeEnv)
	case errors.Is(err, configstore.ErrNoConfig):
		log.Infof("Create .cajon.toml with at least: image = \"debian\"")
	case errors.Is(err, engine.ErrMalformedState):
		log.Infof("Rerun with --replace to recreate the container.")
	case errors.Is(err, reconcile.ErrCookScriptFailed):
		log.Infof("The container was left running; fix the cook script and rerun, or use --replace to start over.")
	}
}
