package detection

import (
	"strings"

	"github.com/bl4ck0w1/stacklynx/internal/signatures"
	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// Detector classifies a fetched page into the category taxonomy by evaluating
// the signature table over raw header and body text. It holds no mutable
// state after construction and is safe for concurrent use.
type Detector struct {
	rules *signatures.RuleSet
}

func NewDetector(rules *signatures.RuleSet) *Detector {
	if rules == nil {
		rules = signatures.Default()
	}
	return &Detector{rules: rules}
}

// Detect evaluates every signature against its declared scope and returns the
// per-category technology sets. Empty inputs yield an all-empty profile,
// never an error. Results are independent of evaluation order: the profile is
// the deduplicated union of all matching signatures, with the override list
// applied once after the base pass.
func (d *Detector) Detect(headers, body string) models.TechProfile {
	profile := models.NewTechProfile()

	loweredHeaders := strings.ToLower(headers)
	loweredBody := strings.ToLower(body)

	for _, sig := range d.rules.Signatures() {
		if sig.Matches(loweredHeaders, loweredBody) {
			profile.Add(sig.Category, sig.Technology)
		}
	}

	for _, override := range d.rules.Overrides() {
		override.Apply(profile, loweredHeaders, loweredBody)
	}

	return profile
}
