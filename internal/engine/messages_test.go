package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitle(t *testing.T) {
	at50 := strings.Repeat("a", 50)
	assert.Equal(t, at50, truncateTitle(at50))

	at51 := strings.Repeat("a", 51)
	got := truncateTitle(at51)
	assert.Equal(t, strings.Repeat("a", 47)+"…", got)
	assert.Len(t, []rune(got), 48)

	// Truncation counts characters, not bytes.
	wide := strings.Repeat("ü", 51)
	assert.Equal(t, strings.Repeat("ü", 47)+"…", truncateTitle(wide))
}

func TestCommitMessageGrammar(t *testing.T) {
	assert.Equal(t, "Add task #3: fix the parser", commitAdd(3, "fix the parser"))
	assert.Equal(t, "Update task #3: fix the parser", commitUpdate(3, "fix the parser"))
	assert.Equal(t, "Complete task #3: fix the parser", commitComplete(3, "fix the parser"))
	assert.Equal(t, "Complete story #10: rollout (with 2 tasks)", commitCompleteStory(10, "rollout", 2))
	assert.Equal(t, "Reopen task #3: fix the parser", commitReopen(3, "fix the parser"))
	assert.Equal(t, "Delete task #42: implement feature X", commitDelete(42, "implement feature X"))
}
