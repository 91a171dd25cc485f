package document

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterPattern matches a leading YAML block delimited by --- lines.
var frontmatterPattern = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n?`)

// h1Pattern finds the first level-1 heading.
var h1Pattern = regexp.MustCompile(`(?m)^#\s+(.+?)\s*#*\s*$`)

// frontmatter holds the metadata keys a note may declare.
type frontmatter struct {
	Title       string   `yaml:"title"`
	Tags        tagList  `yaml:"tags"`
	URL         string   `yaml:"url"`
	Description string   `yaml:"description"`
}

// tagList accepts either a YAML sequence or a comma-separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = splitTags(s)
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*t = list
	return nil
}

func splitTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitFrontmatter separates YAML frontmatter from the body. Malformed
// frontmatter is left in the body untouched.
func splitFrontmatter(content string) (frontmatter, string) {
	var fm frontmatter
	loc := frontmatterPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return fm, content
	}
	if err := yaml.Unmarshal([]byte(content[loc[2]:loc[3]]), &fm); err != nil {
		return frontmatter{}, content
	}
	return fm, content[loc[1]:]
}

// firstHeading returns the text of the first H1, or "".
func firstHeading(body string) string {
	if m := h1Pattern.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
