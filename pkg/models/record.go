package models

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryCMS                  Category = "cms"
	CategoryWebFrameworks        Category = "web_frameworks"
	CategoryProgrammingLanguages Category = "programming_languages"
	CategoryJSFrameworks         Category = "javascript_frameworks"
	CategoryJSLibraries          Category = "javascript_libraries"
	CategoryUIFrameworks         Category = "ui_frameworks"
	CategoryAnalytics            Category = "analytics"
	CategoryTagManagers          Category = "tag_managers"
	CategoryCDN                  Category = "cdn"
	CategoryCaching              Category = "caching"
	CategoryReverseProxies       Category = "reverse_proxies"
	CategoryFontScripts          Category = "font_scripts"
	CategorySecurity             Category = "security"
	CategoryCookieCompliance     Category = "cookie_compliance"
	CategoryRUM                  Category = "rum"
	CategoryPerformance          Category = "performance"
	CategoryHosting              Category = "hosting"
	CategoryMiscellaneous        Category = "miscellaneous"
)

var categoryOrder = []Category{
	CategoryCMS,
	CategoryWebFrameworks,
	CategoryProgrammingLanguages,
	CategoryJSFrameworks,
	CategoryJSLibraries,
	CategoryUIFrameworks,
	CategoryAnalytics,
	CategoryTagManagers,
	CategoryCDN,
	CategoryCaching,
	CategoryReverseProxies,
	CategoryFontScripts,
	CategorySecurity,
	CategoryCookieCompliance,
	CategoryRUM,
	CategoryPerformance,
	CategoryHosting,
	CategoryMiscellaneous,
}

// Categories returns the closed taxonomy in its fixed report order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

func (c Category) IsValid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// TechProfile maps every category to the set of technologies detected for one
// page. All categories are always present; slices carry insertion order but
// are semantically unordered sets.
type TechProfile map[Category][]string

func NewTechProfile() TechProfile {
	p := make(TechProfile, len(categoryOrder))
	for _, c := range categoryOrder {
		p[c] = []string{}
	}
	return p
}

// Add appends a technology to a category unless it is already present.
func (p TechProfile) Add(category Category, technology string) {
	for _, existing := range p[category] {
		if strings.EqualFold(existing, technology) {
			return
		}
	}
	p[category] = append(p[category], technology)
}

func (p TechProfile) Has(category Category, technology string) bool {
	for _, existing := range p[category] {
		if strings.EqualFold(existing, technology) {
			return true
		}
	}
	return false
}

// Remove drops a technology from a category if present.
func (p TechProfile) Remove(category Category, technology string) {
	for i, existing := range p[category] {
		if strings.EqualFold(existing, technology) {
			p[category] = append(p[category][:i], p[category][i+1:]...)
			return
		}
	}
}

func (p TechProfile) Total() int {
	n := 0
	for _, techs := range p {
		n += len(techs)
	}
	return n
}

type MissingReport struct {
	Security []string `json:"security" yaml:"security"`
	Files    []string `json:"files" yaml:"files"`
	MetaTags []string `json:"meta_tags" yaml:"meta_tags"`
}

// NewMissingReport returns a report whose sets are empty but present, so that
// "nothing missing" is distinguishable from "not checked".
func NewMissingReport() MissingReport {
	return MissingReport{
		Security: []string{},
		Files:    []string{},
		MetaTags: []string{},
	}
}

func (m MissingReport) Total() int {
	return len(m.Security) + len(m.Files) + len(m.MetaTags)
}

type PageMeta struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Responsive  bool   `json:"responsive" yaml:"responsive"`
	HTTPVersion string `json:"http_version" yaml:"http_version"`
	SSLEnabled  bool   `json:"ssl_enabled" yaml:"ssl_enabled"`
}

// SiteRecord is the unit of analysis output and the unit the aggregator
// consumes. It is immutable after construction and identified by URL; two
// records for the same URL analyzed at different times are both valid.
type SiteRecord struct {
	URL          string        `json:"url" yaml:"url"`
	AnalyzedAt   time.Time     `json:"analyzed_at" yaml:"analyzed_at"`
	Technologies TechProfile   `json:"technologies" yaml:"technologies"`
	Meta         PageMeta      `json:"meta" yaml:"meta"`
	Missing      MissingReport `json:"missing" yaml:"missing"`
	ContentHash  string        `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	Degraded     bool          `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

func (r *SiteRecord) Validate() error {
	var problems []string

	if r.URL == "" {
		problems = append(problems, "url is required")
	}
	if r.AnalyzedAt.IsZero() {
		problems = append(problems, "analyzed_at is required")
	}
	if r.Technologies == nil {
		problems = append(problems, "technologies map is required")
	} else {
		for _, c := range categoryOrder {
			if _, ok := r.Technologies[c]; !ok {
				problems = append(problems, fmt.Sprintf("technologies missing category: %s", c))
			}
		}
		for c := range r.Technologies {
			if !c.IsValid() {
				problems = append(problems, fmt.Sprintf("unknown category: %s", c))
			}
		}
	}
	if r.Missing.Security == nil || r.Missing.Files == nil || r.Missing.MetaTags == nil {
		problems = append(problems, "missing report sets must be present, possibly empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("site record validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// EscapeQuotes escapes embedded double quotes so extracted title/description
// text can be embedded in quoted output formats without corrupting them.
func EscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
