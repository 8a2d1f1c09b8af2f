package app

import (
	"debforge/internal/adapters"
	"debforge/internal/core"
	"debforge/internal/ports"
	"debforge/internal/types"
)

// Config carries the settings the pipelines need. The CLI populates it
// from flags, environment, and the config file.
type Config struct {
	// MirrorBase is the download-mirror base URL. Required unless the
	// fetch strategy is upstream_only.
	MirrorBase string

	// Strategy selects the download order between mirror and upstream.
	Strategy types.FetchStrategy

	// Distribution names the changelog target suite.
	Distribution string

	// ReleaseNotes is the changelog entry text for assembled packages.
	ReleaseNotes string

	// BuildType tags the build flavor substituted into the debian
	// folder ("std" leaves the token empty).
	BuildType string

	Retries           int
	RetryDelayMs      int
	ConnectTimeoutSec int

	// SigningKey is the armored private key used for bundle signatures.
	// Empty or missing means a development key is generated instead.
	SigningKey           string
	SigningKeyPassphrase string

	// PackageArchiveURL is the base URL pre-staged source-package
	// descriptions are fetched from when the local copy is stale.
	PackageArchiveURL string

	// ArtifactMirrorDir holds the built .deb artifacts that patch
	// bundles are assembled from.
	ArtifactMirrorDir string
}

const (
	DefaultDistribution = "bullseye"
	DefaultBuildType    = "std"
	DefaultReleaseNotes = "Automated build"
)

// Service bundles the ports the pipelines run against. Tests swap
// individual ports for fakes; production wiring comes from NewService.
type Service struct {
	Metadata ports.MetadataLoader
	Recipe   ports.RecipeLoader
	Runner   ports.CommandRunner
	Fetcher  ports.RemoteFetcher
	Archive  ports.Archive
	Git      ports.Git
	Dsc      ports.DscReader
	Signer   ports.Signer

	// Artifacts is nil until a bundle operation needs it; patch builds
	// require ArtifactMirrorDir, package builds do not.
	Artifacts ports.ArtifactFetcher

	Patches  core.PatchApplier
	Revision core.RevisionCounter

	Cfg Config
}

func NewService(cfg Config) (Service, error) {
	if cfg.Distribution == "" {
		cfg.Distribution = DefaultDistribution
	}
	if cfg.BuildType == "" {
		cfg.BuildType = DefaultBuildType
	}
	if cfg.ReleaseNotes == "" {
		cfg.ReleaseNotes = DefaultReleaseNotes
	}
	if cfg.Strategy == "" {
		cfg.Strategy = types.FetchStrategyMirrorFirst
	}

	runner := adapters.NewCommandRunnerAdapter()
	fetcher, err := adapters.NewHTTPFetchAdapter(cfg.MirrorBase, cfg.Strategy, cfg.Retries, cfg.RetryDelayMs, cfg.ConnectTimeoutSec)
	if err != nil {
		return Service{}, err
	}
	git := adapters.NewGitCLIAdapter(runner)

	svc := Service{
		Metadata: adapters.NewMetaFileAdapter(),
		Recipe:   adapters.NewRecipeXMLAdapter(),
		Runner:   runner,
		Fetcher:  fetcher,
		Archive:  adapters.NewTarArchiveAdapter(),
		Git:      git,
		Dsc:      adapters.NewDscFileAdapter(),
		Signer:   adapters.NewOpenPGPSigner(cfg.SigningKey, cfg.SigningKeyPassphrase),
		Patches:  core.NewPatchApplier(runner),
		Revision: core.NewRevisionCounter(git),
		Cfg:      cfg,
	}
	if cfg.ArtifactMirrorDir != "" {
		artifacts, err := adapters.NewArtifactMirrorAdapter(cfg.ArtifactMirrorDir)
		if err != nil {
			return Service{}, err
		}
		svc.Artifacts = artifacts
	}
	return svc, nil
}
