package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astromechza/todoboard/pkg/config"
	"github.com/astromechza/todoboard/pkg/store"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "todoboard",
	Short: "A multi-list todo board kept in sync across every connected client",
	Long: `todoboard serves a board of named todo lists over REST and a websocket
push channel. Every change is persisted as a whole document and the new
board is pushed to every connected client.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(v.GetString("log_level"))
	},
}

func setupLogging(levelName string) error {
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// flagKeys maps viper keys onto the persistent flags that set them.
var flagKeys = map[string]string{
	"config":         "config",
	"addr":           "addr",
	"lists":          "lists",
	"log_level":      "log-level",
	"store.driver":   "store-driver",
	"store.path":     "store-path",
	"redis.addr":     "redis-addr",
	"redis.instance": "redis-instance",
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a todoboard.yml file")
	flags.String("addr", "", "the address to listen on (default :5000)")
	flags.Int("lists", 0, "number of lists on a new board (default 20)")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("store-driver", "", "file, sqlite or redis")
	flags.String("store-path", "", "json file or sqlite database path")
	flags.String("redis-addr", "", "redis address; enables the cross-process relay")
	flags.String("redis-instance", "", "namespace for redis keys and channels")

	for key, flag := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	v.SetEnvPrefix("TODOBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("port", "PORT"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd, watchCmd, historyCmd)
	rootCmd.AddCommand(mutationCmds()...)
}

// loadConfig layers the config file, environment and flags, in that order.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return cfg, err
	}
	if port := v.GetString("port"); port != "" {
		cfg.Addr = ":" + port
	}
	if v.IsSet("addr") {
		cfg.Addr = v.GetString("addr")
	}
	if v.IsSet("lists") {
		cfg.Lists = v.GetInt("lists")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("store.driver") {
		cfg.Store.Driver = v.GetString("store.driver")
	}
	if v.IsSet("store.path") {
		cfg.Store.Path = v.GetString("store.path")
	}
	if v.IsSet("redis.addr") {
		cfg.Redis.Addr = v.GetString("redis.addr")
	}
	if v.IsSet("redis.instance") {
		cfg.Redis.Instance = v.GetString("redis.instance")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func redisOptions(cfg config.Config) *redis.Options {
	return &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func storeOptions(cfg config.Config) store.Options {
	opts := store.Options{
		Driver:       cfg.Store.Driver,
		Path:         cfg.Store.Path,
		Lists:        cfg.Lists,
		InstanceName: cfg.Redis.Instance,
	}
	if cfg.Redis.Addr != "" {
		opts.Redis = redisOptions(cfg)
	}
	return opts
}
