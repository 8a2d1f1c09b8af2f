package types

// Version is a debian version string split into its components.
// Full reassembles as "[epoch:]upstream[-revision]".
type Version struct {
	Epoch    string
	Upstream string
	Revision string
	Full     string
}

// NoEpoch returns the version string with any epoch stripped, the form
// used in source-package file names.
func (v Version) NoEpoch() string {
	if v.Epoch == "" {
		return v.Full
	}
	return v.Full[len(v.Epoch)+1:]
}
