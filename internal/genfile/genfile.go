// Package genfile implements the Instruction File Parser (spec.md §4.F):
// loading a `.gen` agent file into a set of named variables and a set of
// labeled Instructions, and interpolating those variables back into each
// instruction's prompt text. Grounded on original_source/src/genfile.h
// (comment stripping, variable-block extraction, directive parsing) and
// original_source/src/core.cpp's render_template/escape_json (variable
// interpolation), re-expressed with Go's regexp package in place of
// std::regex, and adapted to the teacher's template-handling idiom found
// in pkg/instruction/template.go (a string-keyed substitution pass over a
// prompt body).
package genfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mentals-ai/mentals/internal/errs"
)

// Defaults applied when a directive is absent from an instruction section.
const (
	DefaultInputPrompt = "Content in a plain text to send to the function."
	DefaultTemperature = 0.1
	DefaultKeepContext = true
	DefaultMaxContext  = 0
)

// Instruction is one `# label` section of a `.gen` file, after directive
// extraction (spec.md §3 Instruction).
type Instruction struct {
	Label       string
	Prompt      string
	InputPrompt string
	Temperature float64
	Use         []string
	KeepContext bool
	MaxContext  int
}

var (
	commentLinePrefix = "///"

	sectionHeaderRe = regexp.MustCompile(`(?m)^# (\w+)[ \t]*\r?\n`)

	directiveInputRe       = regexp.MustCompile(`^##\s*input:\s*(.+?)\s*$`)
	directiveUseRe         = regexp.MustCompile(`(?i)^##\s*use:\s*(.*)$`)
	directiveKeepContextRe = regexp.MustCompile(`^##\s*keep_context:\s*(true|false)\s*$`)
	directiveMaxContextRe  = regexp.MustCompile(`^##\s*max_context:\s*(\d+)\s*$`)

	trailingNewlinesRe = regexp.MustCompile(`[\r\n]+$`)

	placeholderTemplate = "{{%s}}"
)

// Parse loads a `.gen` file from disk and returns its variable bindings
// and labeled instructions, with directives resolved to their Go-typed
// fields but prompts NOT yet interpolated (call Render for that).
func Parse(path string) (map[string]string, map[string]Instruction, error) {
	if strings.ToLower(filepath.Ext(path)) != ".gen" {
		return nil, nil, errs.NewParseError(path, "only .gen files are supported", nil)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errs.NewParseError(path, "reading file", err)
	}

	content := removeCommentLines(string(raw))

	variables, content := parseVariableSections(content)
	instructions := parseInstructions(content)

	return variables, instructions, nil
}

// Render interpolates variables (plus a synthetic "input" entry, per
// original_source/src/main.cpp) into every instruction's prompt, in
// place, returning a new map so the parsed Instruction set stays
// reusable across runs with different input.
func Render(instructions map[string]Instruction, variables map[string]string, input string) map[string]Instruction {
	all := make(map[string]string, len(variables)+1)
	for k, v := range variables {
		all[k] = v
	}
	all["input"] = input

	out := make(map[string]Instruction, len(instructions))
	for label, instr := range instructions {
		instr.Prompt = renderTemplate(instr.Prompt, all)
		out[label] = instr
	}
	return out
}

// RenderTemplate exposes the {{var}} substitution pass used by Render so
// other components needing the same JSON-escaping template rendering
// (the Agent Executor's system-prompt template, spec.md §4.I
// Update-State) don't duplicate it.
func RenderTemplate(templateStr string, values map[string]string) string {
	return renderTemplate(templateStr, values)
}

// renderTemplate substitutes every {{key}} occurrence in templateStr with
// the JSON-escaped value from values, for every key present. Unresolved
// placeholders (key not present in values) are left in place, matching
// original_source/src/core.cpp's render_template (no error on miss).
func renderTemplate(templateStr string, values map[string]string) string {
	result := templateStr
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic substitution order

	for _, k := range keys {
		key := fmt.Sprintf(placeholderTemplate, k)
		value := escapeJSON(values[k])
		result = strings.ReplaceAll(result, key, value)
	}
	return result
}

// escapeJSON escapes a string for safe embedding inside a JSON string
// literal, matching original_source/src/core.cpp's escape_json.
func escapeJSON(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '/':
			b.WriteString(`\/`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// removeCommentLines drops every line beginning with "///".
func removeCommentLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if !strings.HasPrefix(line, commentLinePrefix) {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// parseVariableSections extracts every `{{name}}...{{/name}}` block,
// trims leading/trailing newlines from its body, removes the block from
// the content, and returns the accumulated variable map plus the
// remaining content (trailing newlines stripped).
func parseVariableSections(content string) (map[string]string, string) {
	variables := make(map[string]string)

	for {
		start, end, name, body, ok := findNextVarSection(content)
		if !ok {
			break
		}
		variables[name] = strings.Trim(body, "\r\n")
		content = content[:start] + content[end:]
	}

	content = trailingNewlinesRe.ReplaceAllString(content, "")
	return variables, content
}

// findNextVarSection locates the first `{{name}}...{{/name}}` block in
// content. A block's opening and closing tags must each occupy a whole
// line by themselves: genfile.h's own regex matches `{{name}}` anywhere,
// including an inline interpolation usage like `prompt {{name}} text`,
// which would then pair with the first `{{/name}}` found anywhere later
// in the file and delete everything in between. Requiring the delimiter
// lines to stand alone is this parser's resolution of that ambiguity.
func findNextVarSection(content string) (start, end int, name, body string, ok bool) {
	lines := strings.Split(content, "\n")

	openLineRe := regexp.MustCompile(`^\{\{(\w+)\}\}\s*$`)
	for i, line := range lines {
		m := openLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		varName := m[1]
		closeLine := "{{/" + varName + "}}"
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimRight(lines[j], "\r") == closeLine {
				bodyLines := lines[i+1 : j]
				lineStart := lineOffset(lines, i)
				lineEnd := lineOffset(lines, j) + len(lines[j])
				if lineEnd < len(content) {
					lineEnd++ // consume the trailing newline of the close-tag line
				}
				return lineStart, lineEnd, varName, strings.Join(bodyLines, "\n"), true
			}
		}
	}
	return 0, 0, "", "", false
}

// lineOffset returns the byte offset of the start of lines[idx] within
// the original strings.Join(lines, "\n") text.
func lineOffset(lines []string, idx int) int {
	offset := 0
	for i := 0; i < idx; i++ {
		offset += len(lines[i]) + 1
	}
	return offset
}

// parseInstructions splits content into `# label` sections and parses
// each section's directives, matching genfile.h's parse_instructions.
func parseInstructions(content string) map[string]Instruction {
	instructions := make(map[string]Instruction)

	headerLocs := sectionHeaderRe.FindAllStringSubmatchIndex(content, -1)
	if len(headerLocs) == 0 {
		return instructions
	}

	for i, loc := range headerLocs {
		label := content[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := len(content)
		if i+1 < len(headerLocs) {
			bodyEnd = headerLocs[i+1][0]
		}
		prompt := strings.TrimSuffix(content[bodyStart:bodyEnd], "\n")

		inputPrompt := DefaultInputPrompt
		prompt, inputPrompt = parseDirectiveInput(prompt, inputPrompt)
		use, prompt := parseDirectiveUse(prompt)
		keepContext, prompt := parseDirectiveKeepContext(prompt)
		maxContext, prompt := parseDirectiveMaxContext(prompt)

		instructions[label] = Instruction{
			Label:       label,
			Prompt:      prompt,
			InputPrompt: inputPrompt,
			Temperature: DefaultTemperature,
			Use:         use,
			KeepContext: keepContext,
			MaxContext:  maxContext,
		}
	}
	return instructions
}

func parseDirectiveInput(text, defaultInput string) (string, string) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	extracted := defaultInput
	for _, line := range lines {
		if m := directiveInputRe.FindStringSubmatch(line); m != nil {
			extracted = m[1]
		} else {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), extracted
}

// parseDirectiveUse extracts a `## use: a, b` directive, supporting
// continuation lines (any line starting with whitespace, or blank,
// immediately following the directive, is folded into the name list).
func parseDirectiveUse(text string) ([]string, string) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var names []string

	inUse := false
	var useSection strings.Builder

	flush := func() {
		if useSection.Len() == 0 {
			return
		}
		for _, part := range strings.Split(useSection.String(), ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		useSection.Reset()
	}

	for _, line := range lines {
		if inUse {
			if line == "" || strings.TrimLeft(line, " ") == "" || strings.HasPrefix(line, " ") {
				useSection.WriteString(" " + line)
				continue
			}
			flush()
			inUse = false
			out = append(out, line)
			continue
		}
		if m := directiveUseRe.FindStringSubmatch(line); m != nil {
			inUse = true
			useSection.WriteString(m[1])
			continue
		}
		out = append(out, line)
	}
	flush()

	return names, strings.Join(out, "\n")
}

func parseDirectiveKeepContext(text string) (bool, string) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	keepContext := DefaultKeepContext
	for _, line := range lines {
		if m := directiveKeepContextRe.FindStringSubmatch(line); m != nil {
			keepContext = m[1] == "true"
		} else {
			out = append(out, line)
		}
	}
	return keepContext, strings.Join(out, "\n")
}

func parseDirectiveMaxContext(text string) (int, string) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	maxContext := DefaultMaxContext
	for _, line := range lines {
		if m := directiveMaxContextRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				maxContext = n
			}
		} else {
			out = append(out, line)
		}
	}
	return maxContext, strings.Join(out, "\n")
}
