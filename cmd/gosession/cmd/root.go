package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/joho/godotenv"
	"github.com/phsym/console-slog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verbose = false

var (
	rootCmd = &cobra.Command{
		Use:           "gosession",
		Short:         "Client-side session lifecycle against a token identity service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			if os.Getenv("PRETTY_LOGS") != "false" {
				logger := slog.New(
					console.NewHandler(os.Stderr, &console.HandlerOptions{Level: logLevel}),
				)
				slog.SetDefault(logger)
			} else {
				slog.SetLogLoggerLevel(logLevel)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("GOSESSION")
	viper.AutomaticEnv()

	viper.SetDefault("session_timeout_seconds", int(goSession.DefaultSessionTimeout/time.Second))
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_prefix", "gosession")
	viper.SetDefault("refresh_failure_policy", "keep")
	viper.SetDefault("http_timeout_seconds", 15)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("base-url", "", "identity service base URL")
	flags.String("redis-addr", "", "Redis address holding the session")
	flags.Int("session-timeout-seconds", 0, "background timeout, 0 requires sign-in on every resume")
	viper.BindPFlag("base_url", flags.Lookup("base-url"))
	viper.BindPFlag("redis_addr", flags.Lookup("redis-addr"))
	viper.BindPFlag("session_timeout_seconds", flags.Lookup("session-timeout-seconds"))
}

// loadConfig maps viper keys onto a goSession.Config.
func loadConfig() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()
	cfg.Endpoints.BaseURL = viper.GetString("base_url")
	if p := viper.GetString("token_path"); p != "" {
		cfg.Endpoints.TokenPath = p
	}
	if p := viper.GetString("refresh_path"); p != "" {
		cfg.Endpoints.RefreshPath = p
	}
	if p := viper.GetString("register_path"); p != "" {
		cfg.Endpoints.RegisterPath = p
	}

	cfg.Session.Timeout = time.Duration(viper.GetInt("session_timeout_seconds")) * time.Second
	cfg.Session.RedisPrefix = viper.GetString("redis_prefix")
	cfg.HTTP.Timeout = time.Duration(viper.GetInt("http_timeout_seconds")) * time.Second
	cfg.HTTP.PreemptiveRefreshSkew = time.Duration(viper.GetInt("preemptive_skew_seconds")) * time.Second

	policy, err := goSession.ParseRefreshFailurePolicy(viper.GetString("refresh_failure_policy"))
	if err != nil {
		return cfg, err
	}
	cfg.HTTP.RefreshFailurePolicy = policy

	for _, w := range cfg.Lint() {
		slog.Warn("config", "code", w.Code, "message", w.Message)
	}
	return cfg, nil
}

// newClient builds a Client for one command. release closes the client and
// its Redis connection.
func newClient(opts ...func(*goSession.Builder)) (client *goSession.Client, release func(), err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: viper.GetString("redis_addr")})

	b := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(slog.Default()).
		WithTelemetrySink(goSession.LogTelemetrySink{Logger: slog.Default()})
	for _, opt := range opts {
		opt(b)
	}
	client, err = b.Build()
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return client, func() {
		client.Close()
		rdb.Close()
	}, nil
}
