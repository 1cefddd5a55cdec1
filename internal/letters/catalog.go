package letters

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

const maxCatalogSize = 1024 * 1024 // 1MB

// ErrInvalidCatalog wraps catalog validation failures.
var ErrInvalidCatalog = errors.New("invalid letter catalog")

// Letter is one piece of unlockable writing content.
type Letter struct {
	ID     string   `json:"id" yaml:"id" toml:"id"`
	Title  string   `json:"title" yaml:"title" toml:"title"`
	Prompt string   `json:"prompt,omitempty" yaml:"prompt,omitempty" toml:"prompt"`
	Rules  []string `json:"rules" yaml:"rules" toml:"rules"`
}

// catalogFile is the on-disk layout.
type catalogFile struct {
	Letters []Letter `yaml:"letters" toml:"letters"`
}

// Catalog is an immutable index from rule id to letter ids.
type Catalog struct {
	letters []Letter
	byRule  map[string][]string
}

// NewCatalog validates letters and indexes them by rule. Letter order is
// preserved in the unlock lists.
func NewCatalog(letters []Letter) (*Catalog, error) {
	var errs []error
	seen := make(map[string]bool, len(letters))
	for i, l := range letters {
		if l.ID == "" {
			errs = append(errs, fmt.Errorf("letters[%d]: id is required", i))
			continue
		}
		if seen[l.ID] {
			errs = append(errs, fmt.Errorf("letters[%d]: duplicate id %q", i, l.ID))
		}
		seen[l.ID] = true
		if len(l.Rules) == 0 {
			errs = append(errs, fmt.Errorf("letters[%d]: %q unlocks no rules", i, l.ID))
		}
		for _, r := range l.Rules {
			if strings.TrimSpace(r) == "" {
				errs = append(errs, fmt.Errorf("letters[%d]: empty rule id", i))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}

	c := &Catalog{
		letters: make([]Letter, len(letters)),
		byRule:  make(map[string][]string),
	}
	for i, l := range letters {
		l.Rules = append([]string(nil), l.Rules...)
		c.letters[i] = l
		for _, r := range l.Rules {
			c.byRule[r] = append(c.byRule[r], l.ID)
		}
	}
	return c, nil
}

// Letters returns the catalog entries.
func (c *Catalog) Letters() []Letter {
	out := make([]Letter, len(c.letters))
	copy(out, c.letters)
	return out
}

// Letter looks up a letter by id.
func (c *Catalog) Letter(id string) (Letter, bool) {
	for _, l := range c.letters {
		if l.ID == id {
			return l, true
		}
	}
	return Letter{}, false
}

// ForRule returns the letter ids unlocked by ruleID.
func (c *Catalog) ForRule(ruleID string) []string {
	return append([]string{}, c.byRule[ruleID]...)
}

// Attach returns copies of in with Unlocks set from the catalog. The input
// slice and its patterns are not modified.
func (c *Catalog) Attach(in []patterns.Pattern) []patterns.Pattern {
	out := make([]patterns.Pattern, len(in))
	for i, p := range in {
		p.Unlocks = c.ForRule(p.RuleID)
		out[i] = p
	}
	return out
}

// LoadCatalog reads a catalog file. The format follows the extension:
// .yaml/.yml or .toml.
func LoadCatalog(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}
	if info.Size() > maxCatalogSize {
		return nil, fmt.Errorf("catalog file too large: %d bytes (max %d)", info.Size(), maxCatalogSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file catalogFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: %s: unknown keys %v", ErrInvalidCatalog, path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported catalog extension %q", ErrInvalidCatalog, ext)
	}

	return NewCatalog(file.Letters)
}

// DefaultCatalog returns the built-in catalog covering every default rule.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultLetters)
	if err != nil {
		panic(fmt.Sprintf("default letter catalog: %v", err))
	}
	return c
}

var defaultLetters = []Letter{
	{
		ID:     "letter-absent-father",
		Title:  "To the father who was not there",
		Prompt: "Write to your father, or his father, about the places where he was missing.",
		Rules:  []string{patterns.RulePaternalAbsence},
	},
	{
		ID:     "letter-unfinished-goodbye",
		Title:  "An unfinished goodbye",
		Prompt: "Write to one of the men who died young about what the family lost with him.",
		Rules:  []string{patterns.RuleEarlyDeath},
	},
	{
		ID:     "letter-unspoken",
		Title:  "What was never said",
		Prompt: "Write to the family member who kept a secret, naming what you now know.",
		Rules:  []string{patterns.RuleSecrets},
	},
	{
		ID:     "letter-lost-child",
		Title:  "For the child who is not on the tree",
		Prompt: "Give a place in the family to a child who was lost or never spoken of.",
		Rules:  []string{patterns.RuleSecrets},
	},
	{
		ID:     "letter-broken-vows",
		Title:  "On promises that ended",
		Prompt: "Write to the couples before you about what their separations taught you.",
		Rules:  []string{patterns.RuleDivorce, patterns.RuleMigration},
	},
	{
		ID:     "letter-left-behind",
		Title:  "To the place we left",
		Prompt: "Write to the home your family left behind and to those who stayed.",
		Rules:  []string{patterns.RuleMigration},
	},
	{
		ID:     "letter-breaking-the-cycle",
		Title:  "Breaking the cycle",
		Prompt: "Write to the next generation about what you choose to carry forward and what you set down.",
		Rules:  []string{patterns.RuleGenerational, patterns.RulePaternalAbsence, patterns.RuleDivorce},
	},
}
