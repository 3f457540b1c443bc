package signatures

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// Extension files may add signatures but never mutate the rule set after
// process start. Supported schema versions are gated with a semver
// constraint so future breaking formats are rejected instead of
// misinterpreted.
var supportedSchema = func() *semver.Constraints {
	c, err := semver.NewConstraint(">=1.0.0, <2.0.0")
	if err != nil {
		panic(err)
	}
	return c
}()

type extensionFile struct {
	SchemaVersion string               `yaml:"schema_version"`
	Signatures    []extensionSignature `yaml:"signatures"`
}

type extensionSignature struct {
	Category   string   `yaml:"category"`
	Technology string   `yaml:"technology"`
	Source     string   `yaml:"source"`
	Substrings []string `yaml:"substrings"`
	Pattern    string   `yaml:"pattern"`
}

// Load builds a rule set from the builtin table plus any extension files.
func Load(paths []string, logger *logrus.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = logrus.New()
	}

	sigs := Builtin()
	for _, path := range paths {
		extra, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load signature file %s: %w", path, err)
		}
		logger.WithFields(logrus.Fields{"file": path, "signatures": len(extra)}).Debug("Loaded signature extensions")
		sigs = append(sigs, extra...)
	}

	rs := NewRuleSet(sigs)
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func loadFile(path string) ([]Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file extensionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	version, err := semver.NewVersion(strings.TrimSpace(file.SchemaVersion))
	if err != nil {
		return nil, fmt.Errorf("invalid schema_version %q: %w", file.SchemaVersion, err)
	}
	if !supportedSchema.Check(version) {
		return nil, fmt.Errorf("unsupported schema_version %s (want %s)", version, supportedSchema)
	}

	sigs := make([]Signature, 0, len(file.Signatures))
	for i, raw := range file.Signatures {
		sig, err := raw.compile()
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func (e extensionSignature) compile() (Signature, error) {
	category := models.Category(strings.ToLower(strings.TrimSpace(e.Category)))
	if !category.IsValid() {
		return Signature{}, fmt.Errorf("unknown category: %s", e.Category)
	}
	if strings.TrimSpace(e.Technology) == "" {
		return Signature{}, fmt.Errorf("technology name is required")
	}

	source := Source(strings.ToLower(strings.TrimSpace(e.Source)))
	if source == "" {
		source = SourceAny
	}
	if !source.IsValid() {
		return Signature{}, fmt.Errorf("invalid source: %s", e.Source)
	}

	sig := Signature{
		Category:   category,
		Technology: strings.TrimSpace(e.Technology),
		Source:     source,
	}
	for _, s := range e.Substrings {
		if s = strings.TrimSpace(s); s != "" {
			sig.Substrings = append(sig.Substrings, strings.ToLower(s))
		}
	}
	if e.Pattern != "" {
		compiled, err := regexp.Compile("(?i)" + e.Pattern)
		if err != nil {
			return Signature{}, fmt.Errorf("invalid pattern: %w", err)
		}
		sig.Pattern = compiled
	}
	if len(sig.Substrings) == 0 && sig.Pattern == nil {
		return Signature{}, fmt.Errorf("signature needs substrings or a pattern")
	}
	return sig, nil
}
