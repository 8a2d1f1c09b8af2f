package types

import "encoding/xml"

// PatchRecipe is the declarative input for one patch bundle, loaded
// from a recipe XML document.
type PatchRecipe struct {
	XMLName xml.Name `xml:"patch_recipe"`

	// ID names the patch; the bundle file defaults to "<ID>.patch".
	ID          string `xml:"patch_id"`
	Summary     string `xml:"summary"`
	Description string `xml:"description"`

	// Packages are project-built source packages whose binary artifacts
	// the bundle must carry.
	Packages []string `xml:"packages>package"`

	// BinaryPackages are externally built artifacts required in
	// addition to the project's own.
	BinaryPackages []string `xml:"binary_packages>package"`

	// PreInstall and PostInstall are lifecycle script paths, copied
	// into the bundle under their canonical names.
	PreInstall  string `xml:"pre_install,omitempty"`
	PostInstall string `xml:"post_install,omitempty"`

	// RebootRequired is "Y" or "N".
	RebootRequired string `xml:"reboot_required"`
}

// BundleDescriptor is the generated metadata.xml packed into a bundle's
// metadata.tar. Debs lists every artifact stored in software.tar, in
// the order they were packed.
type BundleDescriptor struct {
	XMLName xml.Name `xml:"patch"`

	ID             string   `xml:"id"`
	Summary        string   `xml:"summary"`
	Description    string   `xml:"description"`
	RebootRequired string   `xml:"reboot_required"`
	PreInstall     string   `xml:"pre_install,omitempty"`
	PostInstall    string   `xml:"post_install,omitempty"`
	Debs           []string `xml:"debs>deb"`
}
