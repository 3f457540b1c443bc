package signatures

import (
	"testing"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

func TestBuiltinTableIsValid(t *testing.T) {
	rs := Default()
	if err := rs.Validate(); err != nil {
		t.Fatalf("builtin table failed validation: %v", err)
	}
	if len(rs.Signatures()) < 50 {
		t.Errorf("builtin table suspiciously small: %d signatures", len(rs.Signatures()))
	}
}

func TestBuiltinCoversEveryCategory(t *testing.T) {
	stats := Default().Stats()
	for _, category := range models.Categories() {
		if stats[category] == 0 {
			t.Errorf("category %s has no signatures", category)
		}
	}
}

func TestSignatureMatchesScopes(t *testing.T) {
	headers := "http/1.1 200 ok\r\nserver: nginx/1.24.0\r\n"
	body := `<html><script src="/wp-content/themes/x/app.js"></script></html>`

	tests := []struct {
		name    string
		sig     Signature
		headers string
		body    string
		want    bool
	}{
		{
			name: "headers scope hits headers",
			sig:  Signature{Source: SourceHeaders, Substrings: []string{"server: nginx"}},
			headers: headers, body: body, want: true,
		},
		{
			name: "headers scope ignores body",
			sig:  Signature{Source: SourceHeaders, Substrings: []string{"wp-content"}},
			headers: headers, body: body, want: false,
		},
		{
			name: "body scope hits body",
			sig:  Signature{Source: SourceBody, Substrings: []string{"wp-content"}},
			headers: headers, body: body, want: true,
		},
		{
			name: "body scope ignores headers",
			sig:  Signature{Source: SourceBody, Substrings: []string{"server: nginx"}},
			headers: headers, body: body, want: false,
		},
		{
			name: "any scope hits either",
			sig:  Signature{Source: SourceAny, Substrings: []string{"server: nginx"}},
			headers: headers, body: body, want: true,
		},
		{
			name: "no match anywhere",
			sig:  Signature{Source: SourceAny, Substrings: []string{"x-drupal-cache"}},
			headers: headers, body: body, want: false,
		},
		{
			name: "empty scope text never matches",
			sig:  Signature{Source: SourceAny, Substrings: []string{""}},
			headers: "", body: "", want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sig.Matches(tc.headers, tc.body); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateRejectsMalformedSignatures(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
	}{
		{"unknown category", Signature{Category: "databases", Technology: "X", Source: SourceAny, Substrings: []string{"x"}}},
		{"empty technology", Signature{Category: models.CategoryCMS, Source: SourceAny, Substrings: []string{"x"}}},
		{"invalid source", Signature{Category: models.CategoryCMS, Technology: "X", Source: "header", Substrings: []string{"x"}}},
		{"no predicate", Signature{Category: models.CategoryCMS, Technology: "X", Source: SourceAny}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs := NewRuleSet([]Signature{tc.sig})
			if err := rs.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestOverrideApplyRedirectsOnlyWhenConditionHolds(t *testing.T) {
	override := builtinOverrides()[0]

	t.Run("condition holds", func(t *testing.T) {
		profile := models.NewTechProfile()
		profile.Add(models.CategoryPerformance, "New Relic")

		override.Apply(profile, "", `<script>window.nreum={}</script>`)

		if profile.Has(models.CategoryPerformance, "New Relic") {
			t.Error("New Relic should have been removed from performance")
		}
		if !profile.Has(models.CategoryRUM, "New Relic Browser") {
			t.Error("New Relic Browser should have been added to rum")
		}
	})

	t.Run("condition does not hold", func(t *testing.T) {
		profile := models.NewTechProfile()
		profile.Add(models.CategoryPerformance, "New Relic")

		override.Apply(profile, "", `<script src="js-agent.newrelic.com/a.js"></script>`)

		if !profile.Has(models.CategoryPerformance, "New Relic") {
			t.Error("New Relic should have stayed in performance")
		}
		if profile.Has(models.CategoryRUM, "New Relic Browser") {
			t.Error("rum should be untouched")
		}
	})

	t.Run("base detection absent", func(t *testing.T) {
		profile := models.NewTechProfile()
		override.Apply(profile, "", "nreum")
		if profile.Has(models.CategoryRUM, "New Relic Browser") {
			t.Error("override must not fire without the base detection")
		}
	})
}
