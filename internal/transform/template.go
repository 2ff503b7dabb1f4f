package transform

import (
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)
	headingRe     = regexp.MustCompile(`^(#{1,6})(\s|$)`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// Render substitutes {{name}} placeholders with values from vars. Names are
// matched exactly, then ignoring case. Unknown names render as "".
func Render(template string, vars map[string]string) string {
	folded := make(map[string]string, len(vars))
	for k, v := range vars {
		folded[strings.ToLower(k)] = v
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return folded[strings.ToLower(name)]
	})
}

func headingLevel(line string) int {
	m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0
	}
	return len(m[1])
}

// ElideEmptySections removes markdown headings that have no body: a heading
// followed only by blank lines and then by a heading of the same or a higher
// level, or by the end of the text. The pass repeats until nothing changes,
// so a parent whose subsections all vanished goes too. Blank line runs are
// collapsed and the result is trimmed.
func ElideEmptySections(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for {
		kept := lines[:0:0]
		changed := false
		for i, line := range lines {
			level := headingLevel(line)
			if level > 0 && sectionIsEmpty(lines, i, level) {
				changed = true
				continue
			}
			kept = append(kept, line)
		}
		lines = kept
		if !changed {
			break
		}
	}

	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out := strings.Join(lines, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func sectionIsEmpty(lines []string, at, level int) bool {
	for j := at + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		next := headingLevel(lines[j])
		return next > 0 && next <= level
	}
	return true
}

// RenderTemplate renders template with vars and elides empty sections. An
// empty result is reported as absent.
func RenderTemplate(template string, vars map[string]string) (string, bool) {
	out := ElideEmptySections(Render(template, vars))
	return out, out != ""
}
