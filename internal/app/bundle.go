package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/core"
	"debforge/internal/shared"
	"debforge/internal/types"
)

const (
	metadataTarName  = "metadata.tar"
	softwareTarName  = "software.tar"
	signatureName    = "signature"
	signatureV2Name  = "signature.v2"
	descriptorName   = "metadata.xml"
	softwarePkgName  = "software"
	embeddedDataName = "data.tar.xz"
)

// BuildBundle assembles a patch bundle from a recipe: the required
// binary artifacts packed as software.tar, the generated descriptor as
// metadata.tar, the lifecycle scripts under their canonical names, and
// the two signature files, all packed into one bundle tarball.
func (s Service) BuildBundle(ctx context.Context, req BundleRequest) (BundleResult, error) {
	if s.Artifacts == nil {
		return BundleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no artifact mirror directory is configured")
	}
	recipe, err := s.Recipe.Load(req.RecipePath)
	if err != nil {
		return BundleResult{}, err
	}
	patchName := req.FileName
	if patchName == "" {
		patchName = recipe.ID + ".patch"
	}
	log.Info().Str("patch", recipe.ID).Msg("building patch bundle")

	workDir, err := os.MkdirTemp("", "patch_")
	if err != nil {
		return BundleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create bundle working directory").
			WithCause(err)
	}
	defer os.RemoveAll(workDir)

	debs, err := s.stageArtifacts(ctx, recipe, workDir)
	if err != nil {
		return BundleResult{}, err
	}

	desc := types.BundleDescriptor{
		ID:             recipe.ID,
		Summary:        recipe.Summary,
		Description:    recipe.Description,
		RebootRequired: recipe.RebootRequired,
		Debs:           debs,
	}
	scripts, err := s.stageScripts(ctx, recipe, req.RecipePath, workDir, debs, &desc)
	if err != nil {
		return BundleResult{}, err
	}

	if err := s.Recipe.WriteDescriptor(desc, filepath.Join(workDir, descriptorName)); err != nil {
		return BundleResult{}, err
	}
	if err := s.Archive.Create(filepath.Join(workDir, metadataTarName), workDir, []string{descriptorName}); err != nil {
		return BundleResult{}, err
	}
	if err := os.Remove(filepath.Join(workDir, descriptorName)); err != nil {
		return BundleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to drop packed descriptor").
			WithCause(err)
	}

	needsResign, err := s.signBundle(workDir, scripts)
	if err != nil {
		return BundleResult{}, err
	}

	members, err := shared.ListRegularFiles(workDir)
	if err != nil {
		return BundleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot list bundle members").
			WithCause(err)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return BundleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create output directory %s", req.OutputDir)).
			WithCause(err)
	}
	bundlePath := filepath.Join(req.OutputDir, patchName)
	if err := s.Archive.Create(bundlePath, workDir, members); err != nil {
		return BundleResult{}, err
	}
	log.Info().Str("bundle", bundlePath).Bool("needs_formal_resign", needsResign).Msg("patch bundle built")
	return BundleResult{BundlePath: bundlePath, NeedsFormalResign: needsResign, Debs: debs}, nil
}

// stageArtifacts collects the recipe's binary artifacts and packs them
// as software.tar. A recipe naming a package with no artifacts fails;
// an empty artifact set is a recipe error too.
func (s Service) stageArtifacts(ctx context.Context, recipe types.PatchRecipe, workDir string) ([]string, error) {
	dlDir := filepath.Join(workDir, "downloads")
	if err := os.MkdirAll(dlDir, 0o755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create artifact staging directory").
			WithCause(err)
	}
	packages := append(append([]string{}, recipe.Packages...), recipe.BinaryPackages...)
	debs, err := s.Artifacts.FetchArtifacts(ctx, packages, dlDir)
	if err != nil {
		return nil, err
	}
	if len(debs) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("recipe %s resolves to no artifacts", recipe.ID))
	}
	if err := s.Archive.Create(filepath.Join(workDir, softwareTarName), dlDir, debs); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dlDir); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to drop artifact staging directory").
			WithCause(err)
	}
	return debs, nil
}

// stageScripts copies the recipe's lifecycle scripts into the working
// directory under their canonical names and, for bundles carrying the
// software package, extracts its embedded upgrade scripts. Returns the
// lifecycle script names; the embedded scripts ride in the bundle but
// are not part of the signed member set.
func (s Service) stageScripts(ctx context.Context, recipe types.PatchRecipe, recipePath string, workDir string, debs []string, desc *types.BundleDescriptor) ([]string, error) {
	recipeDir := filepath.Dir(recipePath)
	var staged []string

	if recipe.PreInstall != "" {
		name := types.ScriptFileNames[types.ScriptTypePreInstall]
		if err := stageScript(recipe.PreInstall, recipeDir, workDir, name); err != nil {
			return nil, err
		}
		desc.PreInstall = name
		staged = append(staged, name)
	}
	if recipe.PostInstall != "" {
		name := types.ScriptFileNames[types.ScriptTypePostInstall]
		if err := stageScript(recipe.PostInstall, recipeDir, workDir, name); err != nil {
			return nil, err
		}
		desc.PostInstall = name
		staged = append(staged, name)
	}
	if len(staged) == 0 && recipe.RebootRequired == "N" {
		log.Warn().Str("patch", recipe.ID).Msg("no lifecycle scripts and no reboot; the patch applies without any action")
	}

	if containsString(recipe.Packages, softwarePkgName) {
		if _, err := s.extractEmbeddedScripts(ctx, workDir, debs); err != nil {
			return nil, err
		}
	}
	return staged, nil
}

func stageScript(declared string, recipeDir string, workDir string, name string) error {
	src := shared.ExpandPath(declared, recipeDir)
	if _, err := os.Stat(src); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("lifecycle script not found: %s", src)).
			WithCause(err)
	}
	return shared.CopyFile(src, filepath.Join(workDir, name))
}

// extractEmbeddedScripts pulls deploy-precheck and upgrade_utils.py
// out of the software package's data archive so upgrades can run them
// before the payload is installed.
func (s Service) extractEmbeddedScripts(ctx context.Context, workDir string, debs []string) ([]string, error) {
	var softwareDeb string
	for _, deb := range debs {
		if strings.HasPrefix(deb, softwarePkgName+"_") {
			softwareDeb = deb
			break
		}
	}
	if softwareDeb == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("software package artifact is missing from the staged set")
	}

	debDir, err := os.MkdirTemp("", "deb_")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create extraction directory").
			WithCause(err)
	}
	defer os.RemoveAll(debDir)

	// The artifact was packed into software.tar already, so unpack a
	// fresh copy to dig the data archive out of.
	if _, err := s.Archive.ExtractBySuffix(filepath.Join(workDir, softwareTarName), debDir, []string{softwareDeb}); err != nil {
		return nil, err
	}
	if _, err := s.Runner.Run(ctx, debDir, "ar", "-x", softwareDeb); err != nil {
		return nil, err
	}

	wanted := []string{
		types.ScriptFileNames[types.ScriptTypeDeployPrecheck],
		types.ScriptFileNames[types.ScriptTypeUpgradeUtils],
	}
	paths, err := s.Archive.ExtractBySuffix(filepath.Join(debDir, embeddedDataName), debDir, wanted)
	if err != nil {
		return nil, err
	}
	var staged []string
	for _, path := range paths {
		name := filepath.Base(path)
		if err := shared.CopyFile(path, filepath.Join(workDir, name)); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to stage embedded script %s", name)).
				WithCause(err)
		}
		log.Info().Str("script", name).Msg("staged embedded upgrade script")
		staged = append(staged, name)
	}
	return staged, nil
}

// signBundle writes the aggregate digest and the detached signature
// over the bundle's signed members: the two inner tarballs plus the
// lifecycle scripts, in that order. Embedded upgrade scripts are not
// covered.
func (s Service) signBundle(workDir string, scripts []string) (bool, error) {
	members := []string{
		filepath.Join(workDir, metadataTarName),
		filepath.Join(workDir, softwareTarName),
	}
	for _, name := range scripts {
		members = append(members, filepath.Join(workDir, name))
	}

	aggregate, err := core.AggregateSignature(members)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(filepath.Join(workDir, signatureName), []byte(aggregate), 0o644); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write aggregate signature").
			WithCause(err)
	}

	devFallback, err := s.Signer.SignDetached(members, filepath.Join(workDir, signatureV2Name))
	if err != nil {
		return false, err
	}
	if devFallback {
		log.Warn().Msg("bundle signed with a development key and must be formally re-signed before release")
	}
	return devFallback, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
