// Package convcontext implements the Context Store (spec.md §4.G): an
// append-only per-instruction message log with stable message IDs,
// substring search, role filtering, and JSON (de)serialization. Grounded
// on context/conversation.go's ConversationHistory, narrowed to the
// message-log operations the Agent Executor actually needs for its
// per-instruction working memory (§3 ConversationContext).
package convcontext

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Message roles, matching spec.md §3.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is the atomic unit of a Context. Identity is ContentID;
// equality is structural (spec.md §3).
type Message struct {
	ContentID string `json:"content_id"`
	CreatedAt int64  `json:"created_at"` // ms since epoch
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// Equal reports structural equality between two messages.
func (m Message) Equal(other Message) bool {
	return m.ContentID == other.ContentID &&
		m.CreatedAt == other.CreatedAt &&
		m.Name == other.Name &&
		m.Role == other.Role &&
		m.Content == other.Content
}

// newContentID hashes timestamp||random and keeps the first 8 hex digits,
// per spec.md §3's Message.content_id rule and I2's uniqueness guarantee.
func newContentID(createdAt int64) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d%d", createdAt, rand.Int63())))
	return hex.EncodeToString(sum[:])[:8]
}

// Context is an ordered, append-only sequence of Messages (I1: every
// Message belongs to exactly one Context).
type Context struct {
	mu       sync.RWMutex
	messages []Message
}

// New creates an empty Context.
func New() *Context {
	return &Context{messages: make([]Message, 0)}
}

// Append adds a message with role/name/content, assigning CreatedAt and a
// fresh ContentID, and returns the stored Message.
func (c *Context) Append(role, name, content string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	createdAt := time.Now().UnixMilli()
	msg := Message{
		ContentID: newContentID(createdAt),
		CreatedAt: createdAt,
		Name:      name,
		Role:      role,
		Content:   content,
	}
	c.messages = append(c.messages, msg)
	return msg
}

// AppendMessage appends a fully-formed Message verbatim (used when
// restoring a Context from a serialized form, or relaying a message
// between contexts on a nested call).
func (c *Context) AppendMessage(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// DeleteByID removes the message with the given content_id, if present.
func (c *Context) DeleteByID(contentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.messages {
		if m.ContentID == contentID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateByID replaces the content of the message with the given
// content_id, if present.
func (c *Context) UpdateByID(contentID, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.messages {
		if m.ContentID == contentID {
			c.messages[i].Content = content
			return true
		}
	}
	return false
}

// PopLast removes and returns the last message, if any.
func (c *Context) PopLast() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.messages) == 0 {
		return Message{}, false
	}
	last := c.messages[len(c.messages)-1]
	c.messages = c.messages[:len(c.messages)-1]
	return last, true
}

// Last returns the last message without removing it.
func (c *Context) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of the ordered message slice.
func (c *Context) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the Context.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Search performs a literal substring search over message content.
func (c *Context) Search(substr string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Message
	for _, m := range c.messages {
		if strings.Contains(m.Content, substr) {
			out = append(out, m)
		}
	}
	return out
}

// FilterByRole returns all messages with an exact role match.
func (c *Context) FilterByRole(role string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Message
	for _, m := range c.messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// SetSystem replaces the Context's system-role message with content,
// inserting it as the first message if none exists yet. The Agent
// Executor's Update-State (spec.md §4.I) calls this once per instruction
// switch to refresh the working memory's system prompt.
func (c *Context) SetSystem(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.messages {
		if m.Role == RoleSystem {
			c.messages[i].Content = content
			return
		}
	}

	createdAt := time.Now().UnixMilli()
	msg := Message{
		ContentID: newContentID(createdAt),
		CreatedAt: createdAt,
		Role:      RoleSystem,
		Content:   content,
	}
	c.messages = append([]Message{msg}, c.messages...)
}

// Truncate keeps only the most recent n messages (FIFO truncation used by
// the Agent Executor's max_context directive, spec.md §4.I step 3). n<=0
// is a no-op (unbounded).
func (c *Context) Truncate(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.messages) > n {
		c.messages = c.messages[len(c.messages)-n:]
	}
}

// Concat appends right's messages after left's messages, preserving order,
// and returns a new Context (left-to-right concatenation).
func Concat(left, right *Context) *Context {
	out := New()
	out.messages = append(out.messages, left.Messages()...)
	out.messages = append(out.messages, right.Messages()...)
	return out
}

// MarshalJSON serializes the Context as a JSON array of messages.
func (c *Context) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.messages)
}

// UnmarshalJSON restores a Context from a JSON array of messages.
func (c *Context) UnmarshalJSON(data []byte) error {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = msgs
	return nil
}
