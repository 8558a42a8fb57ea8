// Package executor implements the Agent Executor (spec.md §4.I): a
// recursive interpreter over a dynamic call stack of Instructions. It
// composes a system prompt, invokes the LLM, parses a JSON tool call
// from the response, dispatches it (native tool, nested instruction, or
// reasoning step), manages per-instruction working memory with FIFO
// truncation, and implements the `<<RETURN>>` stop-token protocol.
// Grounded on original_source/src/central_executive.cpp (execute/
// parse_content/stop/update_state) and original_source/src/core.cpp's
// extract_json_blocks/get_first_instruction/is_json_object/stop_token
// text helpers, re-expressed with Go's regexp/encoding/json in place of
// std::regex/nlohmann::json.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/mentals-ai/mentals/internal/codeexec"
	"github.com/mentals-ai/mentals/internal/convcontext"
	"github.com/mentals-ai/mentals/internal/fewshot"
	"github.com/mentals-ai/mentals/internal/genfile"
	"github.com/mentals-ai/mentals/internal/llmclient"
	"github.com/mentals-ai/mentals/internal/tools"
	"github.com/mentals-ai/mentals/internal/toolregistry"
)

const (
	stopToken = "<<RETURN>>"
	callToken = "<<CALL>>"
)

// Param is one named, described parameter of a catalogue entry.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogueEntry describes one callable name (native tool or user
// instruction) as it appears in agent_instructions/native_instructions
// (spec.md §4.I).
type CatalogueEntry struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  []Param `json:"parameters"`
}

// Usage accumulates token counts reported by the LLM across a run.
type Usage struct {
	CompletionTokens int
	TotalTokens      int
}

// Executor is the Agent Executor (spec.md §4.I).
type Executor struct {
	instructions        map[string]genfile.Instruction
	nativeInstructions  []CatalogueEntry
	agentInstructions   []CatalogueEntry
	workingContexts     map[string]*convcontext.Context
	workingMemory       *convcontext.Context
	callStack           []genfile.Instruction
	state               map[string]string
	shortTermMemory     *ShortTermMemory
	usage               Usage
	nlop                int
	needsPython         bool

	llm                  llmclient.Client
	registry             *toolregistry.Registry
	summarizer           *fewshot.Summarizer
	codeExecutor         *codeexec.Executor
	systemPromptTemplate string
	wordLimit            int
}

// New constructs an Executor. systemPromptTemplate is rendered against
// executor_state on every instruction switch (Update-State, spec.md
// §4.I); wordLimit is the Few-shot Summarizer's word limit for the
// agent_instructions catalogue.
func New(llm llmclient.Client, registry *toolregistry.Registry, summarizer *fewshot.Summarizer, systemPromptTemplate string, wordLimit int) *Executor {
	return &Executor{
		instructions:         make(map[string]genfile.Instruction),
		workingContexts:      make(map[string]*convcontext.Context),
		state:                make(map[string]string),
		shortTermMemory:      &ShortTermMemory{},
		llm:                  llm,
		registry:             registry,
		summarizer:           summarizer,
		systemPromptTemplate: systemPromptTemplate,
		wordLimit:            wordLimit,
	}
}

// Usage returns the run's accumulated token usage (SPEC_FULL.md's
// queryable usage/nlop accessors).
func (e *Executor) Usage() Usage { return e.usage }

// NLOPCount returns the number of natural-language operation steps
// executed so far in the current (or most recent) run.
func (e *Executor) NLOPCount() int { return e.nlop }

// Remember implements tools.MemoryStore for the memory tool handler.
func (e *Executor) Remember(keyword, description, content string) {
	e.shortTermMemory.Remember(keyword, description, content)
}

// RunPythonCode implements tools.PythonRunner for the
// execute_python_script tool handler.
func (e *Executor) RunPythonCode(ctx context.Context, code, dependencies string) string {
	if e.codeExecutor == nil {
		return "Python executable not found."
	}
	return e.codeExecutor.RunPythonCode(ctx, code, dependencies)
}

type nativeToolsFile struct {
	Instruction []nativeToolTOML `toml:"instruction"`
}

type nativeToolTOML struct {
	Name        string      `toml:"name"`
	Description string      `toml:"description"`
	Parameters  []paramTOML `toml:"parameters"`
}

type paramTOML struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// InitNativeTools loads the native tools catalogue (spec.md §6's
// native_tools.toml) and registers the built-in tool handlers against
// the executor's handle.
func (e *Executor) InitNativeTools(path string) error {
	var doc nativeToolsFile
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("executor: parse native tools file %s: %w", path, err)
	}

	entries := make([]CatalogueEntry, 0, len(doc.Instruction))
	for _, raw := range doc.Instruction {
		params := make([]Param, 0, len(raw.Parameters))
		for _, p := range raw.Parameters {
			params = append(params, Param{Name: p.Name, Description: p.Description})
		}
		entries = append(entries, CatalogueEntry{Name: raw.Name, Description: raw.Description, Parameters: params})
	}
	e.nativeInstructions = entries

	tools.RegisterBuiltins(e.registry, e, e)
	return nil
}

// InitAgent stores instructions, builds agent_instructions (summarizing
// over-long prompts per spec.md §4.J), validates I4 (every `use` label
// resolves to a native tool or another instruction), and creates the
// sandboxed Python environment if any instruction's `use` list includes
// execute_python_script.
func (e *Executor) InitAgent(ctx context.Context, instructions map[string]genfile.Instruction) error {
	e.instructions = instructions

	labels := make([]string, 0, len(instructions))
	for label := range instructions {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	agentInstructions := make([]CatalogueEntry, 0, len(instructions))
	for _, label := range labels {
		instr := instructions[label]
		description := instr.Prompt
		if e.summarizer != nil {
			summarized, err := e.summarizer.Summarize(ctx, instr.Prompt, e.wordLimit)
			if err != nil {
				return fmt.Errorf("executor: summarize instruction %q: %w", label, err)
			}
			description = summarized
		}
		agentInstructions = append(agentInstructions, CatalogueEntry{
			Name:        label,
			Description: description,
			Parameters:  []Param{{Name: "input", Description: instr.InputPrompt}},
		})
	}
	e.agentInstructions = agentInstructions

	for _, label := range labels {
		instr := instructions[label]
		for _, used := range instr.Use {
			if _, ok := e.resolveCatalogueEntry(used); !ok {
				return fmt.Errorf("executor: instruction %q: use %q resolves to neither an instruction nor a native tool", label, used)
			}
			if used == "execute_python_script" {
				e.needsPython = true
			}
		}
	}

	if e.needsPython && e.codeExecutor == nil {
		e.codeExecutor = codeexec.New()
		_ = e.codeExecutor.CreateVirtualEnvironment(ctx)
	}
	return nil
}

func (e *Executor) resolveCatalogueEntry(name string) (CatalogueEntry, bool) {
	for _, entry := range e.agentInstructions {
		if entry.Name == name {
			return entry, true
		}
	}
	for _, entry := range e.nativeInstructions {
		if entry.Name == name {
			return entry, true
		}
	}
	return CatalogueEntry{}, false
}

// Run resets per-run counters, seeds working memory with priorContext (or
// a fresh Context if nil), pushes entryLabel, appends input as a user
// message, and drives execute() to completion, returning
// executor_state["output"].
func (e *Executor) Run(ctx context.Context, entryLabel, input string, priorContext *convcontext.Context) (string, error) {
	entry, ok := e.instructions[entryLabel]
	if !ok {
		return "", fmt.Errorf("executor: unknown entry instruction %q", entryLabel)
	}

	e.nlop = 0
	e.usage = Usage{}
	e.callStack = e.callStack[:0]
	e.workingContexts = make(map[string]*convcontext.Context)
	e.state["return"] = "false"

	if priorContext != nil {
		e.workingMemory = priorContext
	} else {
		e.workingMemory = convcontext.New()
	}

	if err := e.updateState(entry); err != nil {
		return "", err
	}
	e.callStack = append(e.callStack, entry)

	if input != "" {
		e.workingMemory.Append(convcontext.RoleUser, "", input)
	}
	e.workingContexts[entryLabel] = e.workingMemory

	if err := e.execute(ctx); err != nil {
		return "", err
	}
	return e.state["output"], nil
}

// execute runs one NLOP step and recurses until executor_state["return"]
// is "true" (spec.md §4.I).
func (e *Executor) execute(ctx context.Context) error {
	if e.state["return"] == "true" {
		return nil
	}

	instr, ok := e.instructions[e.state["instruction_name"]]
	if !ok {
		return fmt.Errorf("executor: unknown current instruction %q", e.state["instruction_name"])
	}

	if instr.MaxContext > 0 {
		e.workingMemory.Truncate(instr.MaxContext)
	}

	resp, err := e.llm.ChatCompletion(ctx, e.workingMemory.Messages(), instr.Temperature)
	if err != nil {
		// Transport error: terminating run with empty output (spec.md §7).
		e.state["output"] = ""
		e.state["return"] = "true"
		return nil
	}

	e.usage.CompletionTokens += resp.CompletionTokens
	e.usage.TotalTokens += resp.TotalTokens
	e.nlop++

	if resp.Content != "" {
		if err := e.parseContent(ctx, resp.Content); err != nil {
			return err
		}
	}

	return e.execute(ctx)
}

var fencedJSONBlockRe = regexp.MustCompile("(?s)```json\\n(\\{.*?\\})\\n```")

func extractFencedJSONBlocks(content string) []string {
	return fencedJSONBlockRe.FindAllString(content, -1)
}

func eraseAfterSubstring(text, substr string) string {
	idx := strings.Index(text, substr)
	if idx == -1 {
		return text
	}
	return text[:idx+len(substr)]
}

// paramsOf returns obj["parameters"] when present (the call's nested
// parameter object), otherwise obj itself, matching
// central_executive.cpp's parse_content unwrapping of call_object.
func paramsOf(obj map[string]any) map[string]any {
	if p, ok := obj["parameters"].(map[string]any); ok {
		return p
	}
	return obj
}

// parse_content classifies one LLM response's content (spec.md §4.I).
func (e *Executor) parseContent(ctx context.Context, content string) error {
	var obj map[string]any
	var block string

	for _, candidate := range extractFencedJSONBlocks(content) {
		m := fencedJSONBlockRe.FindStringSubmatch(candidate)
		if len(m) < 2 {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(m[1]), &parsed); err != nil {
			continue
		}
		if _, hasName := parsed["name"]; hasName {
			obj, block = parsed, candidate
			break
		}
	}

	truncated := content
	if block != "" {
		truncated = eraseAfterSubstring(content, block)
	}
	e.state["output"] = truncated

	switch {
	case obj != nil:
		name, _ := obj["name"].(string)
		params := paramsOf(obj)

		switch {
		case e.registry.Has(name):
			tc := e.registry.NewToolCall(name, params)
			result := e.registry.Call(e, tc)
			e.workingMemory.Append(convcontext.RoleAssistant, "",
				fmt.Sprintf("%s\n\nReturn from instruction: '%s' with response: %s", truncated, name, result))
			curr, ok := e.instructions[e.state["instruction_name"]]
			if !ok {
				return fmt.Errorf("executor: unknown current instruction %q", e.state["instruction_name"])
			}
			if err := e.updateState(curr); err != nil {
				return err
			}

		case e.isInstruction(name):
			next := e.instructions[name]
			curLabel := e.state["instruction_name"]

			e.workingMemory.Append(convcontext.RoleAssistant, "", truncated)
			if curLabel != name {
				e.callStack = append(e.callStack, next)
			}

			if existing, ok := e.workingContexts[next.Label]; ok {
				e.workingMemory = existing
			} else {
				e.workingMemory = convcontext.New()
				e.workingContexts[next.Label] = e.workingMemory
			}

			if err := e.updateState(next); err != nil {
				return err
			}

			if inputVal, ok := params["input"].(string); ok && inputVal != "null" {
				e.workingMemory.Append(convcontext.RoleUser, "", inputVal)
			}

		default:
			enriched, err := e.enrichJSONAnswer(ctx, truncated)
			if err != nil {
				return err
			}
			e.workingMemory.Append(convcontext.RoleAssistant, "", enriched)
			e.state["output"] = enriched
		}

	default:
		e.workingMemory.Append(convcontext.RoleAssistant, "", truncated)
	}

	// Stop-token detection operates on the truncated content, matching
	// central_executive.cpp's parse_content (content is reassigned to its
	// truncated form before stop_token(content) runs).
	if strings.Contains(truncated, stopToken) {
		return e.stop(strings.ReplaceAll(truncated, stopToken, ""))
	}
	return nil
}

func (e *Executor) isInstruction(name string) bool {
	_, ok := e.instructions[name]
	return ok
}

// stop implements the stop-token return protocol (spec.md §4.I).
func (e *Executor) stop(content string) error {
	if len(e.callStack) > 1 {
		curr := e.callStack[len(e.callStack)-1]
		if !curr.KeepContext {
			delete(e.workingContexts, curr.Label)
		}
		e.callStack = e.callStack[:len(e.callStack)-1]
		prev := e.callStack[len(e.callStack)-1]

		if prevCtx, ok := e.workingContexts[prev.Label]; ok {
			e.workingMemory = prevCtx
			marker, hadMarker := e.workingMemory.PopLast()
			markerText := ""
			if hadMarker {
				markerText = marker.Content
			}
			e.workingMemory.Append(convcontext.RoleAssistant, "",
				fmt.Sprintf("%s\n\nReturn from instruction: '%s' with response: %s", markerText, curr.Label, content))
		}
		return e.updateState(prev)
	}

	e.state["output"] = content
	e.state["return"] = "true"
	return nil
}

// enrichJSONAnswer turns an unrecognized JSON tool call into a
// human-readable answer via a single fixed-system-prompt LLM call,
// matching original_source/src/llm.h's enrich_json_answer.
func (e *Executor) enrichJSONAnswer(ctx context.Context, content string) (string, error) {
	messages := []convcontext.Message{
		{
			Role: convcontext.RoleSystem,
			Content: "Enrich json object to readable answer.\n" +
				"Do not output any additional reasoning other than the enriched result.\n" +
				"Below is json content to enrich:\n\n" + content,
		},
	}
	resp, err := e.llm.ChatCompletion(ctx, messages, 0.5)
	if err != nil {
		return "", fmt.Errorf("executor: enrich json answer: %w", err)
	}
	return resp.Content, nil
}

// updateState is Update-State(I) (spec.md §4.I): refreshes
// executor_state for instruction instr and re-renders the current
// working memory's system prompt.
func (e *Executor) updateState(instr genfile.Instruction) error {
	e.state["instruction_name"] = instr.Label
	e.state["instruction"] = instr.Prompt
	e.state["short_term_memory"] = e.shortTermMemory.Serialize()

	active := make([]CatalogueEntry, 0, len(instr.Use))
	for _, name := range instr.Use {
		entry, ok := e.resolveCatalogueEntry(name)
		if !ok {
			return fmt.Errorf("executor: instruction %q: use %q not found", instr.Label, name)
		}
		active = append(active, entry)
	}

	var fewShot strings.Builder
	for _, entry := range active {
		fewShot.WriteString("```json\n{\n\t\"name\": \"" + entry.Name + "\"")
		for _, p := range entry.Parameters {
			fewShot.WriteString(",\n\t\"" + p.Name + "\": \"" + p.Description + "\"")
		}
		fewShot.WriteString("\n}\n```" + callToken + "\n\n")
	}
	e.state["instruction_call_few_shot"] = fewShot.String()

	activeJSON, err := json.MarshalIndent(active, "", "  ")
	if err != nil {
		return fmt.Errorf("executor: marshal active instructions: %w", err)
	}
	e.state["instructions"] = string(activeJSON)

	e.workingMemory.SetSystem(genfile.RenderTemplate(e.systemPromptTemplate, e.state))
	return nil
}

// ShortTermMemory is the JSON blob tool handlers mutate through the
// `memory` tool (spec.md §4.K): a keyword-keyed list where a write
// replaces any prior entry with the same keyword, then appends.
type ShortTermMemory struct {
	mu      sync.Mutex
	entries []MemoryEntry
}

// MemoryEntry is one remembered fact.
type MemoryEntry struct {
	Keyword     string `json:"keyword"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// Remember replaces any existing entry with the same keyword, then
// appends the new one.
func (m *ShortTermMemory) Remember(keyword, description, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := make([]MemoryEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		if entry.Keyword != keyword {
			filtered = append(filtered, entry)
		}
	}
	m.entries = append(filtered, MemoryEntry{Keyword: keyword, Description: description, Content: content})
}

// Serialize returns the short-term memory as a JSON array, for
// executor_state["short_term_memory"].
func (m *ShortTermMemory) Serialize() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(m.entries)
	if err != nil {
		return "[]"
	}
	return string(data)
}
