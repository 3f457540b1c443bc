package signatures

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

type Source string

const (
	SourceHeaders Source = "headers"
	SourceBody    Source = "body"
	SourceAny     Source = "any"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceHeaders, SourceBody, SourceAny:
		return true
	}
	return false
}

// Signature decides the presence of one technology from response text. A
// signature matches when any of its substrings occurs in the declared scope,
// or when its pattern matches. Matching is case-insensitive: the engine
// lowercases scope text once and substrings are stored lowercase.
type Signature struct {
	Category   models.Category
	Technology string
	Source     Source
	Substrings []string
	Pattern    *regexp.Regexp
}

// Matches expects headers and body already lowercased.
func (s Signature) Matches(headers, body string) bool {
	var scopes []string
	switch s.Source {
	case SourceHeaders:
		scopes = []string{headers}
	case SourceBody:
		scopes = []string{body}
	default:
		scopes = []string{headers, body}
	}

	for _, scope := range scopes {
		if scope == "" {
			continue
		}
		for _, sub := range s.Substrings {
			if strings.Contains(scope, sub) {
				return true
			}
		}
		if s.Pattern != nil && s.Pattern.MatchString(scope) {
			return true
		}
	}
	return false
}

// RuleSet is an immutable ordered table of signatures plus the category
// override rules applied after the base pass. Built once at process start.
type RuleSet struct {
	signatures []Signature
	overrides  []Override
}

func NewRuleSet(sigs []Signature) *RuleSet {
	return &RuleSet{
		signatures: sigs,
		overrides:  builtinOverrides(),
	}
}

// Default returns the rule set built from the builtin table only.
func Default() *RuleSet {
	return NewRuleSet(Builtin())
}

func (rs *RuleSet) Signatures() []Signature {
	out := make([]Signature, len(rs.signatures))
	copy(out, rs.signatures)
	return out
}

func (rs *RuleSet) Overrides() []Override {
	out := make([]Override, len(rs.overrides))
	copy(out, rs.overrides)
	return out
}

// Stats returns the number of signatures per category.
func (rs *RuleSet) Stats() map[models.Category]int {
	stats := make(map[models.Category]int, len(models.Categories()))
	for _, c := range models.Categories() {
		stats[c] = 0
	}
	for _, sig := range rs.signatures {
		stats[sig.Category]++
	}
	return stats
}

// Validate rejects malformed tables: unknown categories, empty names,
// predicate-less signatures.
func (rs *RuleSet) Validate() error {
	for i, sig := range rs.signatures {
		if !sig.Category.IsValid() {
			return fmt.Errorf("signature %d (%s): unknown category %q", i, sig.Technology, sig.Category)
		}
		if sig.Technology == "" {
			return fmt.Errorf("signature %d: empty technology name", i)
		}
		if !sig.Source.IsValid() {
			return fmt.Errorf("signature %d (%s): invalid source %q", i, sig.Technology, sig.Source)
		}
		if len(sig.Substrings) == 0 && sig.Pattern == nil {
			return fmt.Errorf("signature %d (%s): no predicate", i, sig.Technology)
		}
	}
	return nil
}

func sub(cat models.Category, tech string, src Source, needles ...string) Signature {
	lowered := make([]string, len(needles))
	for i, n := range needles {
		lowered[i] = strings.ToLower(n)
	}
	return Signature{Category: cat, Technology: tech, Source: src, Substrings: lowered}
}

func pat(cat models.Category, tech string, src Source, expr string) Signature {
	return Signature{Category: cat, Technology: tech, Source: src, Pattern: regexp.MustCompile("(?i)" + expr)}
}

// Builtin returns the built-in signature table. The order within a category
// is insignificant: detection output is a deduplicated set. A technology may
// appear under two categories through distinct signatures (Cloudflare sits
// under both cdn and security).
func Builtin() []Signature {
	return []Signature{
		// cms
		sub(models.CategoryCMS, "WordPress", SourceBody, "wp-content", "wp-includes", "/wp-json/"),
		sub(models.CategoryCMS, "Joomla", SourceBody, "/media/jui/", "joomla"),
		sub(models.CategoryCMS, "Drupal", SourceAny, "drupal", "x-drupal-cache", "/sites/default/files"),
		sub(models.CategoryCMS, "Shopify", SourceAny, "cdn.shopify.com", "x-shopify-stage"),
		sub(models.CategoryCMS, "Wix", SourceAny, "wix.com", "x-wix-request-id"),
		sub(models.CategoryCMS, "Squarespace", SourceAny, "squarespace.com", "squarespace"),
		sub(models.CategoryCMS, "Ghost", SourceBody, "ghost.org", "content=\"ghost"),
		sub(models.CategoryCMS, "Magento", SourceAny, "mage/cookies", "x-magento"),
		sub(models.CategoryCMS, "TYPO3", SourceBody, "typo3"),

		// web_frameworks
		sub(models.CategoryWebFrameworks, "Ruby on Rails", SourceHeaders, "x-runtime", "_rails_session"),
		sub(models.CategoryWebFrameworks, "Django", SourceAny, "csrfmiddlewaretoken", "django"),
		sub(models.CategoryWebFrameworks, "Laravel", SourceAny, "laravel_session", "laravel"),
		sub(models.CategoryWebFrameworks, "Express", SourceHeaders, "x-powered-by: express"),
		sub(models.CategoryWebFrameworks, "ASP.NET", SourceAny, "x-aspnet-version", "asp.net", "__viewstate"),
		sub(models.CategoryWebFrameworks, "Spring", SourceHeaders, "x-application-context", "jsessionid"),
		sub(models.CategoryWebFrameworks, "Flask", SourceHeaders, "server: werkzeug"),
		sub(models.CategoryWebFrameworks, "Next.js", SourceAny, "__next_data__", "x-powered-by: next.js", "/_next/"),
		sub(models.CategoryWebFrameworks, "Nuxt.js", SourceBody, "__nuxt", "/_nuxt/"),
		sub(models.CategoryWebFrameworks, "Gatsby", SourceBody, "___gatsby"),

		// programming_languages
		sub(models.CategoryProgrammingLanguages, "PHP", SourceAny, "x-powered-by: php", "phpsessid", ".php"),
		sub(models.CategoryProgrammingLanguages, "Ruby", SourceHeaders, "x-runtime", "phusion passenger"),
		sub(models.CategoryProgrammingLanguages, "Python", SourceHeaders, "server: gunicorn", "server: werkzeug", "server: uvicorn"),
		sub(models.CategoryProgrammingLanguages, "Java", SourceAny, "jsessionid", ".jsp"),
		sub(models.CategoryProgrammingLanguages, "Node.js", SourceHeaders, "x-powered-by: express", "x-powered-by: next.js"),
		sub(models.CategoryProgrammingLanguages, "Go", SourceHeaders, "server: caddy"),

		// javascript_frameworks
		sub(models.CategoryJSFrameworks, "React", SourceBody, "data-reactroot", "react-dom", "__next_data__"),
		sub(models.CategoryJSFrameworks, "Angular", SourceBody, "ng-version", "ng-app"),
		sub(models.CategoryJSFrameworks, "Vue.js", SourceBody, "data-v-", "vue.js", "vue.min.js", "__nuxt"),
		sub(models.CategoryJSFrameworks, "Svelte", SourceBody, "svelte-"),
		sub(models.CategoryJSFrameworks, "Ember.js", SourceBody, "ember-application", "ember.js"),
		sub(models.CategoryJSFrameworks, "Alpine.js", SourceBody, "x-data=", "alpine.js", "alpinejs"),

		// javascript_libraries
		pat(models.CategoryJSLibraries, "jQuery", SourceBody, `jquery[.-]`),
		sub(models.CategoryJSLibraries, "Lodash", SourceBody, "lodash.min.js", "lodash.js"),
		sub(models.CategoryJSLibraries, "Moment.js", SourceBody, "moment.min.js", "moment.js"),
		sub(models.CategoryJSLibraries, "Axios", SourceBody, "axios.min.js", "axios/dist"),
		sub(models.CategoryJSLibraries, "GSAP", SourceBody, "gsap.min.js", "tweenmax"),
		sub(models.CategoryJSLibraries, "D3.js", SourceBody, "d3.min.js", "d3.v"),

		// ui_frameworks
		pat(models.CategoryUIFrameworks, "Bootstrap", SourceBody, `bootstrap(\.min)?\.(css|js)`),
		sub(models.CategoryUIFrameworks, "Tailwind CSS", SourceBody, "tailwindcss", "tailwind.css"),
		sub(models.CategoryUIFrameworks, "Foundation", SourceBody, "foundation.min.css", "foundation.css"),
		sub(models.CategoryUIFrameworks, "Bulma", SourceBody, "bulma.min.css", "bulma.css"),
		sub(models.CategoryUIFrameworks, "Materialize", SourceBody, "materialize.min.css"),

		// analytics
		sub(models.CategoryAnalytics, "Google Analytics", SourceBody, "google-analytics.com", "gtag(", "ga.js", "analytics.js"),
		sub(models.CategoryAnalytics, "Matomo", SourceBody, "matomo.js", "piwik.js"),
		sub(models.CategoryAnalytics, "Hotjar", SourceBody, "hotjar.com", "hjsv"),
		sub(models.CategoryAnalytics, "Plausible", SourceBody, "plausible.io/js"),
		sub(models.CategoryAnalytics, "Fathom", SourceBody, "usefathom.com"),
		sub(models.CategoryAnalytics, "Segment", SourceBody, "cdn.segment.com"),
		sub(models.CategoryAnalytics, "Mixpanel", SourceBody, "mixpanel.com", "mixpanel.init"),

		// tag_managers
		sub(models.CategoryTagManagers, "Google Tag Manager", SourceBody, "googletagmanager.com", "gtm.start"),
		sub(models.CategoryTagManagers, "Tealium", SourceBody, "tags.tiqcdn.com"),
		sub(models.CategoryTagManagers, "Adobe Launch", SourceBody, "assets.adobedtm.com"),

		// cdn
		sub(models.CategoryCDN, "Cloudflare", SourceHeaders, "cf-ray", "server: cloudflare"),
		sub(models.CategoryCDN, "CloudFront", SourceHeaders, "x-amz-cf-id", "via: 1.1 cloudfront"),
		sub(models.CategoryCDN, "Akamai", SourceHeaders, "x-akamai", "akamaighost"),
		sub(models.CategoryCDN, "Fastly", SourceHeaders, "x-served-by: cache", "x-fastly"),
		sub(models.CategoryCDN, "jsDelivr", SourceBody, "cdn.jsdelivr.net"),
		sub(models.CategoryCDN, "cdnjs", SourceBody, "cdnjs.cloudflare.com"),
		sub(models.CategoryCDN, "unpkg", SourceBody, "unpkg.com"),
		sub(models.CategoryCDN, "KeyCDN", SourceHeaders, "server: keycdn"),

		// caching
		sub(models.CategoryCaching, "Varnish", SourceHeaders, "x-varnish", "via: 1.1 varnish"),
		sub(models.CategoryCaching, "Nginx", SourceHeaders, "x-cache-status"),
		sub(models.CategoryCaching, "WP Rocket", SourceBody, "wp-rocket"),
		sub(models.CategoryCaching, "W3 Total Cache", SourceBody, "w3 total cache", "w3tc"),
		sub(models.CategoryCaching, "LiteSpeed Cache", SourceHeaders, "x-litespeed-cache"),
		sub(models.CategoryCaching, "Redis Object Cache", SourceBody, "redis object cache"),

		// reverse_proxies
		sub(models.CategoryReverseProxies, "Nginx", SourceHeaders, "server: nginx"),
		sub(models.CategoryReverseProxies, "Apache", SourceHeaders, "server: apache"),
		sub(models.CategoryReverseProxies, "HAProxy", SourceHeaders, "server: haproxy"),
		sub(models.CategoryReverseProxies, "Envoy", SourceHeaders, "server: envoy", "x-envoy"),
		sub(models.CategoryReverseProxies, "LiteSpeed", SourceHeaders, "server: litespeed"),
		sub(models.CategoryReverseProxies, "Microsoft IIS", SourceHeaders, "server: microsoft-iis"),
		sub(models.CategoryReverseProxies, "Caddy", SourceHeaders, "server: caddy"),
		sub(models.CategoryReverseProxies, "Traefik", SourceHeaders, "server: traefik"),

		// font_scripts
		sub(models.CategoryFontScripts, "Google Fonts", SourceBody, "fonts.googleapis.com", "fonts.gstatic.com"),
		sub(models.CategoryFontScripts, "Adobe Fonts", SourceBody, "use.typekit.net"),
		sub(models.CategoryFontScripts, "Font Awesome", SourceBody, "font-awesome", "fontawesome"),

		// security
		sub(models.CategorySecurity, "Cloudflare", SourceHeaders, "cf-ray", "__cfduid", "cf-cache-status"),
		sub(models.CategorySecurity, "Sucuri", SourceHeaders, "x-sucuri"),
		sub(models.CategorySecurity, "Imperva", SourceHeaders, "x-iinfo", "incap_ses"),
		sub(models.CategorySecurity, "reCAPTCHA", SourceBody, "www.google.com/recaptcha", "grecaptcha"),
		sub(models.CategorySecurity, "hCaptcha", SourceBody, "hcaptcha.com"),

		// cookie_compliance
		sub(models.CategoryCookieCompliance, "OneTrust", SourceBody, "cdn.cookielaw.org", "onetrust"),
		sub(models.CategoryCookieCompliance, "Cookiebot", SourceBody, "consent.cookiebot.com", "cookiebot"),
		sub(models.CategoryCookieCompliance, "CookieYes", SourceBody, "cookieyes.com"),
		sub(models.CategoryCookieCompliance, "Osano", SourceBody, "cmp.osano.com"),
		sub(models.CategoryCookieCompliance, "Didomi", SourceBody, "sdk.privacy-center.org", "didomi"),

		// rum
		sub(models.CategoryRUM, "Datadog RUM", SourceBody, "datadog-rum", "dd_rum"),
		sub(models.CategoryRUM, "Sentry", SourceBody, "browser.sentry-cdn.com", "sentry.init"),
		sub(models.CategoryRUM, "SpeedCurve LUX", SourceBody, "cdn.speedcurve.com", "lux.js"),

		// performance
		sub(models.CategoryPerformance, "New Relic", SourceBody, "newrelic", "js-agent.newrelic.com"),
		sub(models.CategoryPerformance, "Pingdom", SourceBody, "rum-static.pingdom.net"),
		sub(models.CategoryPerformance, "Cloudflare Insights", SourceBody, "static.cloudflareinsights.com"),

		// hosting
		sub(models.CategoryHosting, "Netlify", SourceHeaders, "server: netlify", "x-nf-request-id"),
		sub(models.CategoryHosting, "Vercel", SourceHeaders, "server: vercel", "x-vercel-id"),
		sub(models.CategoryHosting, "GitHub Pages", SourceHeaders, "server: github.com", "x-github-request-id"),
		sub(models.CategoryHosting, "Heroku", SourceHeaders, "via: 1.1 vegur"),
		sub(models.CategoryHosting, "Amazon Web Services", SourceHeaders, "server: amazons3", "x-amz-request-id"),
		sub(models.CategoryHosting, "Microsoft Azure", SourceHeaders, "x-azure-ref"),
		sub(models.CategoryHosting, "Google Cloud", SourceHeaders, "server: google frontend", "via: 1.1 google"),

		// miscellaneous
		sub(models.CategoryMiscellaneous, "webpack", SourceBody, "webpackjsonp", "webpack_require"),
		sub(models.CategoryMiscellaneous, "Vite", SourceBody, "/@vite/", "vite/dist"),
		sub(models.CategoryMiscellaneous, "PWA", SourceBody, "manifest.json", "serviceworker.register", "navigator.serviceworker"),
		sub(models.CategoryMiscellaneous, "AMP", SourceBody, "amp-boilerplate", "cdn.ampproject.org"),
		pat(models.CategoryMiscellaneous, "Open Graph", SourceBody, `property="og:`),
	}
}
