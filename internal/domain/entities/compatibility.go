package entities

// Compatibility check outcomes.
const (
	CompatibilityUnknown      = ""
	CompatibilityCompatible   = "compatible"
	CompatibilityIncompatible = "incompatible"
	CompatibilitySkipped      = "skipped"
)

// CompatibilityResult is the outcome of comparing a package's local library
// surface against its last published snapshot.
type CompatibilityResult struct {
	Outcome string
	Details string // Tool output explaining an incompatibility
}

// IsChecked reports whether a checker actually ran for the package.
func (r CompatibilityResult) IsChecked() bool {
	return r.Outcome == CompatibilityCompatible || r.Outcome == CompatibilityIncompatible
}
