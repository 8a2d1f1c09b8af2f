package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debforge/internal/app"
	"debforge/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "DEBFORGE"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.Error().Msg(errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "debforge",
		Short:         "Debian source package assembler and patch bundle builder",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	cmd.PersistentFlags().String("mirror-base", "", "Download mirror base URL")
	cmd.PersistentFlags().String("strategy", string(types.FetchStrategyMirrorFirst), "Fetch strategy (mirror_first, upstream_first, mirror_only, upstream_only)")
	cmd.PersistentFlags().String("distribution", app.DefaultDistribution, "Changelog distribution")
	cmd.PersistentFlags().String("release-notes", app.DefaultReleaseNotes, "Changelog entry text")
	cmd.PersistentFlags().String("build-type", app.DefaultBuildType, "Build flavor")
	cmd.PersistentFlags().Int("retries", 0, "Download retry count (0 uses the default)")
	cmd.PersistentFlags().String("signing-key", "", "Armored signing key path")
	cmd.PersistentFlags().String("package-archive-url", "", "Pre-staged source package archive base URL")
	cmd.PersistentFlags().String("artifact-mirror-dir", "", "Directory holding built deb artifacts")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("mirror_base", cmd.PersistentFlags().Lookup("mirror-base"))
	_ = viper.BindPFlag("strategy", cmd.PersistentFlags().Lookup("strategy"))
	_ = viper.BindPFlag("distribution", cmd.PersistentFlags().Lookup("distribution"))
	_ = viper.BindPFlag("release_notes", cmd.PersistentFlags().Lookup("release-notes"))
	_ = viper.BindPFlag("build_type", cmd.PersistentFlags().Lookup("build-type"))
	_ = viper.BindPFlag("retries", cmd.PersistentFlags().Lookup("retries"))
	_ = viper.BindPFlag("signing_key", cmd.PersistentFlags().Lookup("signing-key"))
	_ = viper.BindPFlag("package_archive_url", cmd.PersistentFlags().Lookup("package-archive-url"))
	_ = viper.BindPFlag("artifact_mirror_dir", cmd.PersistentFlags().Lookup("artifact-mirror-dir"))

	cmd.AddCommand(newDownloadCommand())
	cmd.AddCommand(newPackageCommand())
	cmd.AddCommand(newChecksumCommand())
	cmd.AddCommand(newPatchCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("debforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/debforge")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func newAppService() (app.Service, error) {
	return app.NewService(app.Config{
		MirrorBase:           viper.GetString("mirror_base"),
		Strategy:             types.FetchStrategy(viper.GetString("strategy")),
		Distribution:         viper.GetString("distribution"),
		ReleaseNotes:         viper.GetString("release_notes"),
		BuildType:            viper.GetString("build_type"),
		Retries:              viper.GetInt("retries"),
		RetryDelayMs:         viper.GetInt("retry_delay_ms"),
		ConnectTimeoutSec:    viper.GetInt("connect_timeout_sec"),
		SigningKey:           viper.GetString("signing_key"),
		SigningKeyPassphrase: viper.GetString("signing_key_passphrase"),
		PackageArchiveURL:    viper.GetString("package_archive_url"),
		ArtifactMirrorDir:    viper.GetString("artifact_mirror_dir"),
	})
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition:
		return 3
	case errbuilder.CodeNotFound:
		return 4
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
