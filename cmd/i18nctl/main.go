// i18nctl runs the translation pipeline from a terminal: sync and detect
// content changes, translate ad-hoc text and inspect or retry jobs.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/content-i18n/internal/app"
	"github.com/cuongbtq/content-i18n/internal/config"
	"github.com/cuongbtq/content-i18n/shared/logger"
)

const (
	colorReset  = "\033[0;0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
)

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// cli carries what PersistentPreRunE builds for the subcommands
type cli struct {
	configPath string
	jsonOutput bool

	log  *logger.Logger
	deps *app.App
}

func newRootCmd(c *cli) *cobra.Command {
	defaultConfigPath := os.Getenv("I18NCTL_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/i18nctl/config.yaml"
	}

	root := &cobra.Command{
		Use:   "i18nctl",
		Short: "Operate the content translation pipeline",
		Long: `i18nctl operates the content translation pipeline.

It connects to the same database and broker as the services, so jobs queued
here are picked up by running workers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", defaultConfigPath, "Path to configuration file")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newSyncCmd(c),
		newDetectCmd(c),
		newTranslateCmd(c),
		newLanguagesCmd(c),
		newRetryCmd(c),
	)

	return root
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateCLIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// stdout is reserved for command output
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	c.log, err = app.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.deps, err = app.New(ctx, cfg, c.log.Logger)
	return err
}

func (c *cli) close() {
	if c.deps != nil {
		c.deps.Close()
	}
	if c.log != nil {
		_ = c.log.Close()
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println("Failed to read .env file:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	stop()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}
