package ports

// Signer produces a detached signature over an ordered set of files.
type Signer interface {
	// SignDetached writes a detached signature over files to outPath.
	// The returned flag reports that no formal key was available and a
	// development key was substituted; callers surface it rather than
	// treating it as a failure.
	SignDetached(files []string, outPath string) (devFallback bool, err error)
}
