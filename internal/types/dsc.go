package types

// Dsc is the parsed subset of a source-package description file needed
// to harvest and validate package members.
type Dsc struct {
	Source  string
	Version string
	Members []DscMember
}

// DscMember is one file listed by a description's Files or
// Checksums-Sha256 stanza.
type DscMember struct {
	Name   string
	Size   string
	MD5    string
	SHA256 string
}
