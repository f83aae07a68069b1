// Command listenup-profiles inspects and migrates the player's stored profiles.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/kv"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/store"
)

type globalFlags struct {
	driver    string
	path      string
	redisAddr string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags globalFlags
	var profiles *store.ProfileStore
	var area kv.Store

	root := &cobra.Command{
		Use:           "listenup-profiles",
		Short:         "Inspect and migrate ListenUp player profiles",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := storageConfig(flags)
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: logger.ParseLevel("warn"), Writer: cmd.ErrOrStderr()})
			area, err = kv.Open(cmd.Context(), cfg, log.Logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			profiles = store.NewProfileStore(area, log.Logger)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if area == nil {
				return nil
			}
			return area.Close()
		},
	}

	root.PersistentFlags().StringVar(&flags.driver, "storage", "", "storage driver (badger, sqlite, redis, memory)")
	root.PersistentFlags().StringVar(&flags.path, "storage-path", "", "badger directory or sqlite file")
	root.PersistentFlags().StringVar(&flags.redisAddr, "redis-addr", "", "redis address")

	get := func() *store.ProfileStore { return profiles }
	root.AddCommand(
		listCmd(get),
		showCmd(get),
		exportCmd(get),
		importCmd(get),
	)
	root.SetContext(context.Background())
	return root
}

// storageConfig resolves storage settings the way the player does, with flags taking precedence.
func storageConfig(flags globalFlags) (config.StorageConfig, error) {
	var args []string
	if flags.driver != "" {
		args = append(args, "-storage", flags.driver)
	}
	if flags.path != "" {
		args = append(args, "-storage-path", flags.path)
	}
	if flags.redisAddr != "" {
		args = append(args, "-redis-addr", flags.redisAddr)
	}

	cfg, err := config.Load(args)
	if err != nil {
		return config.StorageConfig{}, err
	}
	return cfg.Storage, nil
}
