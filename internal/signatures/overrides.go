package signatures

import (
	"strings"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// Override redirects a base-pass detection to another category when a more
// specific condition holds. Categories are otherwise independent; this list
// is the single documented exception, applied after the base pass instead of
// being buried in per-category conditionals.
type Override struct {
	Category   models.Category
	Technology string
	Condition  func(headers, body string) bool
	RedirectTo models.Category
	RedirectAs string
}

// Apply rewrites the profile in place. Inputs are the lowercased scope texts
// the base pass already matched against.
func (o Override) Apply(profile models.TechProfile, headers, body string) {
	if !profile.Has(o.Category, o.Technology) {
		return
	}
	if !o.Condition(headers, body) {
		return
	}
	profile.Remove(o.Category, o.Technology)
	profile.Add(o.RedirectTo, o.RedirectAs)
}

func builtinOverrides() []Override {
	return []Override{
		// New Relic's loader script is a performance product, but the Browser
		// agent markers mean real-user monitoring is what is actually running.
		{
			Category:   models.CategoryPerformance,
			Technology: "New Relic",
			Condition: func(headers, body string) bool {
				return strings.Contains(body, "nreum") || strings.Contains(body, "nr-data.net")
			},
			RedirectTo: models.CategoryRUM,
			RedirectAs: "New Relic Browser",
		},
	}
}
