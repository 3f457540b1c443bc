package detection

import (
	"strings"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// SecurityHeaderChecklist is the fixed set of response headers whose absence
// is reported. Order is the report order.
var SecurityHeaderChecklist = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
	"Permissions-Policy",
}

// WellKnownFiles is the fixed probe set the fetch collaborator checks against
// the page origin. The checker itself performs no network I/O.
var WellKnownFiles = []string{
	"robots.txt",
	"sitemap.xml",
	"favicon.ico",
	"humans.txt",
	".well-known/security.txt",
}

type metaTagCheck struct {
	name       string
	substrings []string
}

var metaTagChecklist = []metaTagCheck{
	{"viewport", []string{`name="viewport"`, `name='viewport'`}},
	{"meta-description", []string{`name="description"`, `name='description'`}},
	{"canonical", []string{`rel="canonical"`, `rel='canonical'`}},
	{"open-graph", []string{`property="og:`, `property='og:`}},
	{"twitter-card", []string{`name="twitter:`, `name='twitter:`}},
	{"theme-color", []string{`name="theme-color"`, `name='theme-color'`}},
}

// MetaTagChecklist returns the names of the meta-tag checks in report order.
func MetaTagChecklist() []string {
	out := make([]string, len(metaTagChecklist))
	for i, c := range metaTagChecklist {
		out[i] = c.name
	}
	return out
}

// CheckMissing interprets header text, body text, and externally supplied
// file-existence probe results into the three missing-item sets. All three
// sets are always returned; empty means nothing missing, not unchecked.
func CheckMissing(headers, body string, fileProbes map[string]bool) models.MissingReport {
	report := models.NewMissingReport()

	loweredHeaders := strings.ToLower(headers)
	for _, header := range SecurityHeaderChecklist {
		if !strings.Contains(loweredHeaders, strings.ToLower(header)+":") {
			report.Security = append(report.Security, header)
		}
	}

	for _, file := range WellKnownFiles {
		if !fileProbes[file] {
			report.Files = append(report.Files, file)
		}
	}

	loweredBody := strings.ToLower(body)
	for _, check := range metaTagChecklist {
		found := false
		for _, sub := range check.substrings {
			if strings.Contains(loweredBody, sub) {
				found = true
				break
			}
		}
		if !found {
			report.MetaTags = append(report.MetaTags, check.name)
		}
	}

	return report
}
