package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dictation/internal/app"
	"dictation/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dictation",
	Short: "Push-to-talk dictation",
	Long: `Hold the hotkey to record, release it to transcribe. The transcript is
typed into the focused window, or pasted when typing is refused.`,
	SilenceUsage: true,
	RunE:         runDictation,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the hotkey listener and tray (default)",
	Args:  cobra.NoArgs,
	RunE:  runDictation,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ~/.dictation/config.json)")
	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDictation(cmd *cobra.Command, args []string) error {
	store, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cfg := store.Snapshot()
	dir := filepath.Dir(store.Path())
	loadEnv(dir)

	logger, closer, err := app.NewLogger(cfg.LogLevel, dir)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, app.Options{
		Store:  store,
		APIKey: config.APIKey(viper.New(), cmd.Flags(), cfg),
		AppDir: dir,
		Logger: logger,
	})
}

// settingsPath returns --config or the default location.
func settingsPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// loadSettings reads the settings file, creating it with defaults on first
// use, and applies command-line overrides without persisting them.
func loadSettings(cmd *cobra.Command) (*config.Store, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, err
	}
	if created {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote default settings to %s\n", path)
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	store := config.NewStore(path, cfg)
	if err := store.Override(func(c *config.Config) error {
		return config.ApplyFlags(c, cmd.Flags())
	}); err != nil {
		return nil, err
	}
	return store, nil
}

// loadEnv loads .env from the working directory and the app directory.
// Variables already set in the environment win.
func loadEnv(appDir string) {
	for _, p := range []string{".env", filepath.Join(appDir, ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", p, err)
		}
	}
}

func apiKeyFor(cmd *cobra.Command, cfg config.Config) (string, error) {
	key := config.APIKey(viper.New(), cmd.Flags(), cfg)
	if key == "" {
		return "", errors.New("no API key: set " + cfg.APIKeyEnv + " or pass --api-key")
	}
	return key, nil
}
