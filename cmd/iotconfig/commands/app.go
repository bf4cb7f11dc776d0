// Package commands implements the iotconfig command tree.
package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"

	"github.com/iotconfig/iotconfig-go/pkg/client"
	"github.com/iotconfig/iotconfig-go/pkg/config"
	"github.com/iotconfig/iotconfig-go/pkg/keypair"
	"github.com/iotconfig/iotconfig-go/pkg/log"
	"github.com/iotconfig/iotconfig-go/pkg/persistence"
	"github.com/iotconfig/iotconfig-go/pkg/version"
)

// DefaultSettingsFile is the settings file read when --config is not given.
const DefaultSettingsFile = "iotconfig.yaml"

// DialFunc opens a connection to the configuration service.
type DialFunc func(host string) (grpc.ClientConnInterface, io.Closer, error)

// App holds the state shared by all commands of one invocation.
type App struct {
	Out    io.Writer
	ErrOut io.Writer
	In     io.ReadCloser

	// Dial opens the service connection. Nil uses client.Dial.
	Dial DialFunc

	// LookupEnv reads environment overrides. Nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Clock stamps requests. Nil uses time.Now.
	Clock func() time.Time

	// Prompt reads interactive answers for env init. Nil uses readline.
	Prompt Prompter

	configPath string
	flags      globalFlags

	settings config.Settings
	logger   *zap.Logger
	file     *log.FileLogger
	capture  log.Logger
}

type globalFlags struct {
	configHost  string
	keypair     string
	logLevel    string
	protocolLog string
	retries     int
	sendSigned  bool
}

// NewApp returns an App bound to the process standard streams.
func NewApp() *App {
	return &App{Out: os.Stdout, ErrOut: os.Stderr, In: os.Stdin}
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	app := NewApp()
	if err := app.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Failure(err.Error()))
		os.Exit(1)
	}
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "iotconfig",
		Short: "IoT configuration service client",
		Long: `iotconfig manages organizations, routes, EUI pairs, devaddr ranges,
session key filters and region parameters on the IoT configuration service.

Commands that change state only print what they would send unless --commit
is given.`,
		Version:            version.Current,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetOut(a.Out)
	root.SetErr(a.ErrOut)
	root.SetIn(a.In)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", DefaultSettingsFile, "settings file (YAML)")
	pf.StringVar(&a.flags.configHost, "config-host", "", "configuration service address [env "+config.EnvConfigHost+"]")
	pf.StringVar(&a.flags.keypair, "keypair", "", "signing keypair file [env "+config.EnvKeypair+"]")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "operational log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.protocolLog, "protocol-log", "", "append every request and response to this capture file")
	pf.IntVar(&a.flags.retries, "retries", 3, "attempts for read-only calls while the service is unavailable")
	pf.BoolVar(&a.flags.sendSigned, "send-signed", false, "send the signed part of a batch when some elements fail to sign")

	root.AddCommand(
		a.envCommand(),
		a.orgCommand(),
		a.routeCommand(),
		a.skfCommand(),
		a.subnetMaskCommand(),
		a.regionParamsCommand(),
		a.captureCommand(),
	)
	return root
}

// setup resolves settings (defaults, file, environment, flags) and builds
// the loggers.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := settings.ApplyEnv(a.LookupEnv); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("config-host") {
		settings.ConfigHost = a.flags.configHost
	}
	if flags.Changed("keypair") {
		settings.Keypair = a.flags.keypair
	}
	if flags.Changed("log-level") {
		settings.LogLevel = a.flags.logLevel
	}
	if flags.Changed("protocol-log") {
		settings.ProtocolLog = a.flags.protocolLog
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	a.settings = settings

	a.logger, err = newLogger(settings.LogLevel, a.ErrOut)
	if err != nil {
		return err
	}

	loggers := []log.Logger{log.NewZapAdapter(a.logger)}
	if settings.ProtocolLog != "" {
		a.file, err = log.NewFileLogger(settings.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		loggers = append(loggers, a.file)
	}
	a.capture = log.NewMultiLogger(loggers...)
	return nil
}

func (a *App) teardown(*cobra.Command, []string) error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.file != nil {
		if n := a.file.Errors(); n > 0 {
			a.logger.Warn("protocol log dropped events", zap.Int("count", n))
		}
		return a.file.Close()
	}
	return nil
}

// session is an open connection with the clients built on it.
type session struct {
	*client.Client
	key    *keypair.Keypair
	closer io.Closer
}

func (s *session) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// connect dials the service. Signed sessions load the keypair first so a
// missing key fails before any network activity.
func (a *App) connect(signed bool) (*session, error) {
	s := &session{}
	opts := client.Options{
		Host:    a.settings.ConfigHost,
		Capture: a.capture,
		Logger:  a.logger,
		Clock:   a.Clock,
		Retry:   client.RetryPolicy{Attempts: a.flags.retries},
	}
	if a.flags.sendSigned {
		opts.BatchPolicy = client.SendSigned
	}
	if signed {
		kp, err := keypair.Load(a.settings.Keypair)
		if err != nil {
			return nil, err
		}
		s.key = kp
		opts.Signer = kp
		opts.SignerID = kp.PublicKey().String()
	}

	dial := a.Dial
	if dial == nil {
		dial = func(host string) (grpc.ClientConnInterface, io.Closer, error) {
			conn, err := client.Dial(host)
			if err != nil {
				return nil, nil, err
			}
			return conn, conn, nil
		}
	}
	conn, closer, err := dial(a.settings.ConfigHost)
	if err != nil {
		return nil, err
	}
	s.closer = closer
	s.Client = client.New(conn, opts)
	a.logger.Debug("connected",
		zap.String("host", a.settings.ConfigHost),
		zap.Bool("signed", signed),
	)
	return s, nil
}

func (a *App) routeStore() *persistence.RouteStore {
	return persistence.NewRouteStore(a.settings.RouteCache)
}

// newLogger builds the operational logger. Debug uses the development
// encoder with caller annotations.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	if level == "" {
		level = config.DefaultLogLevel
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(w))}
	if lvl.Level() == zapcore.DebugLevel {
		encCfg = zap.NewDevelopmentEncoderConfig()
		opts = append(opts, zap.Development(), zap.AddCaller())
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core, opts...), nil
}
