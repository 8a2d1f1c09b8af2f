package ports

import "debforge/internal/types"

// MetadataLoader loads and validates a package metadata document.
type MetadataLoader interface {
	Load(path string) (types.PackageMetadata, error)
}

// RecipeLoader loads a patch recipe and emits generated bundle
// descriptors.
type RecipeLoader interface {
	Load(path string) (types.PatchRecipe, error)
	WriteDescriptor(desc types.BundleDescriptor, path string) error
}
