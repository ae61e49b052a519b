// Package classifier decides whether a free-text chat message should be
// interpreted as a task creation or as a plain conversational message.
// Classification is pure and deterministic: ordered pattern matching first,
// then a short-declarative-sentence heuristic, then a canned reply.
package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionReply  Action = "reply"
)

// Result is a tagged union: Title is set for "create", Text for "reply".
type Result struct {
	Action Action `json:"action"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
}

// DefaultReply is returned when a message is neither a task pattern nor a
// short declarative statement.
const DefaultReply = "Hello! I can help you organize your tasks. Just tell me what you need to do, and I'll add it to your list."

// Patterns that indicate task creation, first match wins.
var taskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:remind me to|add task|create task|new task|todo|task:)\s*(.+)`),
	regexp.MustCompile(`(?i)^(?:add|create|new|todo:)\s+(.+)`),
	regexp.MustCompile(`(?i)^(.+?)\s+(?:as a task|to my list|to tasks)$`),
}

var (
	prefixRe = regexp.MustCompile(`(?i)^(?:remind me to|add task|create task|new task|todo|task:)\s*`)
	suffixRe = regexp.MustCompile(`(?i)\s+(?:as a task|to my list|to tasks)$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

var greetings = []string{
	"hello",
	"hi",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
	"greetings",
	"howdy",
}

var interrogativeOpeners = []string{
	"what",
	"how",
	"why",
	"when",
	"where",
	"who",
	"can you",
	"could you",
	"would you",
}

// Classify maps a message to exactly one Result variant.
func Classify(message string) Result {
	normalized := strings.ToLower(strings.TrimSpace(message))

	for _, pattern := range taskPatterns {
		m := pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		title := cleanTitle(m[1])
		if title != "" {
			return Result{Action: ActionCreate, Title: title}
		}
		// empty after cleaning: fall through to the heuristic, not
		// straight to create
	}

	// Short, direct, non-question, non-greeting statements are treated as
	// tasks. Title keeps the original casing here.
	if n := utf8.RuneCountInString(normalized); n > 3 && n < 100 &&
		!strings.Contains(normalized, "?") &&
		!isGreeting(normalized) &&
		!isQuestion(normalized) {

		title := cleanTitle(message)
		if title != "" && utf8.RuneCountInString(title) < 200 {
			return Result{Action: ActionCreate, Title: title}
		}
	}

	return Result{Action: ActionReply, Text: DefaultReply}
}

func cleanTitle(title string) string {
	s := strings.TrimSpace(title)
	s = prefixRe.ReplaceAllString(s, "")
	s = suffixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return spaceRe.ReplaceAllString(s, " ")
}

func isGreeting(message string) bool {
	for _, g := range greetings {
		if strings.HasPrefix(message, g) {
			return true
		}
	}
	return false
}

func isQuestion(message string) bool {
	if strings.Contains(message, "?") {
		return true
	}
	for _, opener := range interrogativeOpeners {
		if strings.HasPrefix(message, opener) {
			return true
		}
	}
	return false
}
