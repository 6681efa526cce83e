package flags

import (
	"log/slog"
	"time"

	"github.com/D4ZA1/Cryopay/api"
	"github.com/D4ZA1/Cryopay/common"
	"github.com/D4ZA1/Cryopay/config"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// LoadConfig resolves defaults, the --config file and CRYOPAY_* variables,
// then applies every flag the user set explicitly.
func LoadConfig(cCtx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(cCtx.String(ConfigFlag.Name))
	if err != nil {
		return config.Config{}, err
	}

	if cCtx.IsSet(LogJsonFlag.Name) {
		cfg.Log.JSON = cCtx.Bool(LogJsonFlag.Name)
	}
	if cCtx.IsSet(LogDebugFlag.Name) {
		cfg.Log.Debug = cCtx.Bool(LogDebugFlag.Name)
	}
	if cCtx.IsSet(LogServiceFlag.Name) {
		cfg.Log.Service = cCtx.String(LogServiceFlag.Name)
	}
	if cCtx.IsSet(ListenAddrFlag.Name) {
		cfg.Server.ListenAddr = cCtx.String(ListenAddrFlag.Name)
	}
	if cCtx.IsSet(MetricsAddrFlag.Name) {
		cfg.Server.MetricsAddr = cCtx.String(MetricsAddrFlag.Name)
	}
	if cCtx.IsSet(PprofFlag.Name) {
		cfg.Server.EnablePprof = cCtx.Bool(PprofFlag.Name)
	}
	if cCtx.IsSet(DrainSecondsFlag.Name) {
		cfg.Server.DrainDuration = time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second
	}
	if cCtx.IsSet(LedgerFlag.Name) {
		cfg.Storage.LedgerURIs = cCtx.StringSlice(LedgerFlag.Name)
	}
	if cCtx.IsSet(KeysFlag.Name) {
		cfg.Storage.KeysURI = cCtx.String(KeysFlag.Name)
	}
	if cCtx.IsSet(ArchiveFlag.Name) {
		cfg.Storage.ArchiveURI = cCtx.String(ArchiveFlag.Name)
	}
	if cCtx.IsSet(AllowNewChainFlag.Name) {
		cfg.Storage.AllowNewChain = cCtx.Bool(AllowNewChainFlag.Name)
	}
	return cfg, nil
}

func SetupLogger(cCtx *cli.Context, cfg config.LogConfig) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cfg.Debug,
		JSON:    cfg.JSON,
		Service: cfg.Service,
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cfg config.Config, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cfg.Server.ListenAddr,
		MetricsAddr:              cfg.Server.MetricsAddr,
		Log:                      logger,
		EnablePprof:              cfg.Server.EnablePprof,
		DrainDuration:            cfg.Server.DrainDuration,
		GracefulShutdownDuration: cfg.Server.GracefulShutdown,
		ReadTimeout:              cfg.Server.ReadTimeout,
		WriteTimeout:             cfg.Server.WriteTimeout,
		RateLimit:                cfg.Verifier.RateLimit,
		RateBurst:                cfg.Verifier.RateBurst,
	}
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	EnvVars: []string{"CRYOPAY_CONFIG"},
	Usage:   "path to a YAML config file",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LedgerFlag = &cli.StringSliceFlag{
	Name:  "ledger",
	Usage: "ledger store URI (memory://, file://, s3://); repeat to mirror, the first is the primary",
}
var KeysFlag = &cli.StringFlag{
	Name:  "keys",
	Usage: "key directory URI (memory://, file://, vault://)",
}
var ArchiveFlag = &cli.StringFlag{
	Name:  "archive",
	Usage: "optional ledger archive URI (ipfs://host:port)",
}
var AllowNewChainFlag = &cli.BoolFlag{
	Name:  "allow-new-chain",
	Usage: "start a new chain when the ledger tail cannot be read",
}

var LogFlags = []cli.Flag{
	ConfigFlag,
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var StorageFlags = []cli.Flag{
	LedgerFlag,
	KeysFlag,
	ArchiveFlag,
	AllowNewChainFlag,
}

var CommonFlags = append(append([]cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...), StorageFlags...)
