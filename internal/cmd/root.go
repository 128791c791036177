package cmd

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/utkarsh5026/taskpool/internal/config"
	"github.com/utkarsh5026/taskpool/internal/logging"
	"github.com/utkarsh5026/taskpool/internal/storage"
)

// app carries everything a command needs. It is filled in before any
// subcommand runs.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
	store   *storage.Store
	dialer  storage.Dialer
	clients storage.ClientFactory
	out     io.Writer
}

// Execute runs the storageprobe command line
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree with production dependencies
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{
		dialer:  &net.Dialer{},
		clients: storage.NewClientFactory(nil),
	})
}

func newRootCmd(a *app) *cobra.Command {
	a.v = viper.New()

	root := &cobra.Command{
		Use:   "storageprobe",
		Short: "Attach Azure Storage accounts and probe them concurrently",
		Long: `storageprobe keeps a list of attached Azure Storage accounts and checks
static website hosting on many of them at once, never running more than
the configured number of requests in parallel.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/storageprobe/config.yaml)")
	flags.IntP("concurrency", "j", 0, "maximum number of requests in flight")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("store", "", "path of the attached accounts file")
	_ = a.v.BindPFlag("pool.concurrency", flags.Lookup("concurrency"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("store.path", flags.Lookup("store"))

	root.AddCommand(
		newAttachCmd(a),
		newAttachEmulatorCmd(a),
		newDetachCmd(a),
		newListCmd(a),
		newProbeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.Bind(a.v, cfgFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.logger = logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	a.store = storage.NewStore(cfg.Store.Path)

	a.logger.Debug("configuration loaded",
		"config_file", a.v.ConfigFileUsed(),
		"store", cfg.Store.Path,
		"concurrency", cfg.Pool.Concurrency,
		"failure_policy", cfg.Pool.FailurePolicy)
	return nil
}
