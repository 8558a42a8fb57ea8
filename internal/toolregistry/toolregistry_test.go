package toolregistry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallDispatchesToRegisteredHandler(t *testing.T) {
	r := New()
	r.Register("echo", func(handle Handle, params map[string]any) (string, error) {
		return fmt.Sprintf("echo:%v", params["text"]), nil
	})

	tc := r.NewToolCall("echo", map[string]any{"text": "hi"})
	result := r.Call(nil, tc)
	assert.Equal(t, "echo:hi", result)
	assert.Equal(t, "echo:hi", tc.Result)
}

func TestCallWithUnknownNameReturnsEmptyNotError(t *testing.T) {
	r := New()
	tc := r.NewToolCall("missing", nil)
	result := r.Call(nil, tc)
	assert.Empty(t, result)
	assert.NoError(t, tc.Err)
}

func TestNewToolCallAssignsMonotonicIDs(t *testing.T) {
	r := New()
	a := r.NewToolCall("a", nil)
	b := r.NewToolCall("b", nil)
	c := r.NewToolCall("c", nil)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, b.ID+1, c.ID)
}

func TestAsyncBatchCallPreservesSubmissionOrderAndIDs(t *testing.T) {
	r := New()
	r.Register("square", func(handle Handle, params map[string]any) (string, error) {
		n := params["n"].(int)
		return fmt.Sprintf("%d", n*n), nil
	})

	batch := make([]*ToolCall, 0, 20)
	for i := 0; i < 20; i++ {
		batch = append(batch, r.NewToolCall("square", map[string]any{"n": i}))
	}

	results := r.AsyncBatchCall(nil, batch)
	require.Len(t, results, 20)
	for i, tc := range results {
		assert.Equal(t, batch[i].ID, tc.ID)
		assert.Equal(t, fmt.Sprintf("%d", i*i), tc.Result)
	}

	strs := AsyncResults(results)
	require.Len(t, strs, 20)
	assert.Equal(t, "0", strs[0])
	assert.Equal(t, "361", strs[19])
}

func TestRegisterReplacesExistingHandler(t *testing.T) {
	r := New()
	r.Register("x", func(handle Handle, params map[string]any) (string, error) { return "first", nil })
	r.Register("x", func(handle Handle, params map[string]any) (string, error) { return "second", nil })

	tc := r.NewToolCall("x", nil)
	assert.Equal(t, "second", r.Call(nil, tc))
}
