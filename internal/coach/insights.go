package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/nholloway/solace-agent/internal/llm"
)

const insightsPromptFormat = `Based on the following conversation between a user and their life coach, generate 3 thought-provoking reflection questions.
These questions should be personalized, insightful, and encourage deep thinking about the discussed topics.
Avoid formulaic expressions and create spontaneous, meaningful questions.

User: %s

Coach: %s

Generate 3 reflection questions:`

// generateInsights makes a second LLM call to produce up to three
// reflection questions. Failures degrade to an empty list; a broken
// insights call must never spoil the main reply.
func (c *Coach) generateInsights(ctx context.Context, userText, reply string) []string {
	prompt := fmt.Sprintf(insightsPromptFormat, userText, reply)

	response, err := c.llm.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, c.opts)
	if err != nil {
		c.logger.Warn("insights generation failed", "error", err)
		return nil
	}

	return parseQuestions(response)
}

// parseQuestions pulls individual questions out of a numbered or
// bulleted model response. Lines without a question mark, or too short
// to be meaningful, are dropped.
func parseQuestions(response string) []string {
	var questions []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case len(line) > 2 && line[0] >= '1' && line[0] <= '9' && (line[1] == '.' || line[1] == ')'):
			line = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*"):
			line = strings.TrimSpace(line[1:])
		}

		if len(line) > 10 && strings.Contains(line, "?") {
			questions = append(questions, line)
		}
		if len(questions) == 3 {
			break
		}
	}
	return questions
}
