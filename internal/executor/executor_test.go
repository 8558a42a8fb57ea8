package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentals-ai/mentals/internal/convcontext"
	"github.com/mentals-ai/mentals/internal/genfile"
	"github.com/mentals-ai/mentals/internal/llmclient"
	"github.com/mentals-ai/mentals/internal/toolregistry"
)

type scriptedLLM struct {
	responses []llmclient.ChatResponse
	calls     int
	temps     []float64
}

func (s *scriptedLLM) ChatCompletion(ctx context.Context, messages []convcontext.Message, temperature float64) (llmclient.ChatResponse, error) {
	s.temps = append(s.temps, temperature)
	if s.calls >= len(s.responses) {
		return llmclient.ChatResponse{}, fmt.Errorf("scriptedLLM: no more responses (call %d)", s.calls+1)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) SetProvider(endpoint, apiKey string) {}
func (s *scriptedLLM) SetModel(name string)                {}
func (s *scriptedLLM) Model() string                       { return "stub" }

func newTestExecutor(llm *scriptedLLM, registry *toolregistry.Registry) *Executor {
	return New(llm, registry, nil, "SYSTEM for {{instruction_name}}", 50)
}

func TestRunDispatchesNativeToolThenReturnsFromRoot(t *testing.T) {
	registry := toolregistry.New()
	registry.Register("echo", func(handle toolregistry.Handle, params map[string]any) (string, error) {
		return fmt.Sprintf("echoed:%v", params["text"]), nil
	})

	llm := &scriptedLLM{responses: []llmclient.ChatResponse{
		{Content: "```json\n{\"name\": \"echo\", \"parameters\": {\"text\": \"hi\"}}\n```"},
		{Content: "All done <<RETURN>>"},
	}}

	e := newTestExecutor(llm, registry)
	e.nativeInstructions = []CatalogueEntry{{Name: "echo", Description: "echoes text", Parameters: []Param{{Name: "text", Description: "text to echo"}}}}

	root := genfile.Instruction{Label: "root", Prompt: "root prompt", Temperature: 0.1, Use: []string{"echo"}, KeepContext: true}
	require.NoError(t, e.InitAgent(context.Background(), map[string]genfile.Instruction{"root": root}))

	output, err := e.Run(context.Background(), "root", "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "All done ", output)
	assert.Equal(t, []float64{0.1, 0.1}, llm.temps)

	rootCtx := e.workingContexts["root"]
	msgs := rootCtx.Messages()
	require.NotEmpty(t, msgs)
	var sawToolReturn bool
	for _, m := range msgs {
		if strings.Contains(m.Content, "Return from instruction: 'echo' with response: echoed:hi") {
			sawToolReturn = true
		}
	}
	assert.True(t, sawToolReturn)
}

func TestRunPushesAndReturnsFromNestedInstruction(t *testing.T) {
	registry := toolregistry.New()

	llm := &scriptedLLM{responses: []llmclient.ChatResponse{
		{Content: "```json\n{\"name\": \"helper\", \"parameters\": {\"input\": \"task\"}}\n```"},
		{Content: "Helper result <<RETURN>>"},
		{Content: "Root done <<RETURN>>"},
	}}

	e := newTestExecutor(llm, registry)

	root := genfile.Instruction{Label: "root", Prompt: "root prompt", Temperature: 0.1, Use: []string{"helper"}, KeepContext: true}
	helper := genfile.Instruction{Label: "helper", Prompt: "helper prompt", InputPrompt: "a task", Temperature: 0.2, KeepContext: true}

	require.NoError(t, e.InitAgent(context.Background(), map[string]genfile.Instruction{"root": root, "helper": helper}))

	output, err := e.Run(context.Background(), "root", "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "Root done ", output)
	assert.Equal(t, []float64{0.1, 0.2, 0.1}, llm.temps)

	rootMsgs := e.workingContexts["root"].Messages()
	var sawReturn bool
	for _, m := range rootMsgs {
		if strings.Contains(m.Content, "Return from instruction: 'helper' with response: Helper result ") {
			sawReturn = true
		}
	}
	assert.True(t, sawReturn)

	helperMsgs := e.workingContexts["helper"].Messages()
	var sawInput bool
	for _, m := range helperMsgs {
		if m.Role == convcontext.RoleUser && m.Content == "task" {
			sawInput = true
		}
	}
	assert.True(t, sawInput)
}

func TestRunFallsBackToReasoningStepForUnknownName(t *testing.T) {
	registry := toolregistry.New()

	llm := &scriptedLLM{responses: []llmclient.ChatResponse{
		{Content: "```json\n{\"name\": \"mystery_tool\", \"parameters\": {}}\n```"},
		{Content: "This mystery tool produces nothing interesting."},
		{Content: "Wrapping up <<RETURN>>"},
	}}

	e := newTestExecutor(llm, registry)
	root := genfile.Instruction{Label: "root", Prompt: "root prompt", Temperature: 0.1, KeepContext: true}
	require.NoError(t, e.InitAgent(context.Background(), map[string]genfile.Instruction{"root": root}))

	output, err := e.Run(context.Background(), "root", "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "Wrapping up ", output)
	// the enrich call runs at temperature 0.5, sandwiched between the two root NLOP calls at 0.1
	assert.Equal(t, []float64{0.1, 0.5, 0.1}, llm.temps)
}

func TestRunStripsStopTokenFromRootOutput(t *testing.T) {
	registry := toolregistry.New()
	llm := &scriptedLLM{responses: []llmclient.ChatResponse{
		{Content: "Hello.<<RETURN>>"},
	}}

	e := newTestExecutor(llm, registry)
	root := genfile.Instruction{Label: "root", Prompt: "root prompt", Temperature: 0.1, KeepContext: true}
	require.NoError(t, e.InitAgent(context.Background(), map[string]genfile.Instruction{"root": root}))

	output, err := e.Run(context.Background(), "root", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello.", output)
}

func TestRunWithUnknownEntryLabelReturnsError(t *testing.T) {
	e := newTestExecutor(&scriptedLLM{}, toolregistry.New())
	require.NoError(t, e.InitAgent(context.Background(), map[string]genfile.Instruction{}))
	_, err := e.Run(context.Background(), "missing", "go", nil)
	assert.Error(t, err)
}

func TestInitAgentRejectsUnresolvedUseLabel(t *testing.T) {
	e := newTestExecutor(&scriptedLLM{}, toolregistry.New())
	root := genfile.Instruction{Label: "root", Prompt: "root prompt", Use: []string{"does_not_exist"}}
	err := e.InitAgent(context.Background(), map[string]genfile.Instruction{"root": root})
	assert.Error(t, err)
}

func TestTransportErrorTerminatesRunWithEmptyOutput(t *testing.T) {
	registry := toolregistry.New()
	llm := &scriptedLLM{} // no responses scripted: first call errors
	e := newTestExecutor(llm, registry)
	root := genfile.Instruction{Label: "root", Prompt: "root prompt", Temperature: 0.1, KeepContext: true}
	require.NoError(t, e.InitAgent(context.Background(), map[string]genfile.Instruction{"root": root}))

	output, err := e.Run(context.Background(), "root", "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "", output)
}

func TestShortTermMemoryRememberReplacesSameKeyword(t *testing.T) {
	mem := &ShortTermMemory{}
	mem.Remember("k", "d1", "c1")
	mem.Remember("other", "d2", "c2")
	mem.Remember("k", "d3", "c3")

	serialized := mem.Serialize()
	assert.Contains(t, serialized, `"content":"c3"`)
	assert.NotContains(t, serialized, `"content":"c1"`)
	assert.Contains(t, serialized, `"content":"c2"`)
}
