package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/core"
	"debforge/internal/ports"
	"debforge/internal/types"
)

// RecipeXMLAdapter loads patch recipe documents and writes the
// generated bundle descriptor.
type RecipeXMLAdapter struct{}

func NewRecipeXMLAdapter() RecipeXMLAdapter {
	return RecipeXMLAdapter{}
}

func (a RecipeXMLAdapter) Load(path string) (types.PatchRecipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PatchRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("recipe file not found: %s", path)).
			WithCause(err)
	}
	var recipe types.PatchRecipe
	if err := xml.Unmarshal(data, &recipe); err != nil {
		return types.PatchRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse recipe xml: %s", path)).
			WithCause(err)
	}
	if recipe.RebootRequired == "" {
		recipe.RebootRequired = "N"
	}
	if err := core.ValidateRecipe(context.Background(), recipe); err != nil {
		return types.PatchRecipe{}, err
	}
	return recipe, nil
}

func (a RecipeXMLAdapter) WriteDescriptor(desc types.BundleDescriptor, path string) error {
	data, err := xml.MarshalIndent(desc, "", "  ")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal bundle descriptor").
			WithCause(err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write descriptor %s", path)).
			WithCause(err)
	}
	return nil
}

var _ ports.RecipeLoader = RecipeXMLAdapter{}
