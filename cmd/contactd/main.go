// Command contactd atende o formulário de contato do site: limita envios por
// cliente, valida os campos e avisa a caixa de contato por e-mail.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/internal/config"
	"github.com/Gilmore369/tesis-profesorg/internal/logging"
)

var (
	configPath string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "contactd",
	Short: "Contact form intake service",
	Long: `contactd recebe o POST do formulário de contato, aplica o limite por
cliente, valida e sanitiza os campos e envia a consulta por SMTP.

Sem subcomando equivale a "contactd serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Load, validate and print the effective configuration (passwords masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := cfg.Redacted().YAML()
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Log notifications instead of sending e-mail")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

// loadConfig lê arquivo/.env/ambiente, aplica as flags e valida.
func loadConfig() (config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dryRun {
		cfg.Mail.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := serve(cmd.Context(), cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
