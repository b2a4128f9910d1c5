package engine

import "fmt"

// truncateTitle caps a title at 50 characters for commit messages. Longer
// titles are cut to 47 characters plus an ellipsis.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 50 {
		return title
	}
	return string(runes[:47]) + "…"
}

func commitAdd(id int, title string) string {
	return fmt.Sprintf("Add task #%d: %s", id, truncateTitle(title))
}

func commitUpdate(id int, title string) string {
	return fmt.Sprintf("Update task #%d: %s", id, truncateTitle(title))
}

func commitComplete(id int, title string) string {
	return fmt.Sprintf("Complete task #%d: %s", id, truncateTitle(title))
}

func commitCompleteStory(id int, title string, children int) string {
	return fmt.Sprintf("Complete story #%d: %s (with %d tasks)", id, truncateTitle(title), children)
}

func commitReopen(id int, title string) string {
	return fmt.Sprintf("Reopen task #%d: %s", id, truncateTitle(title))
}

func commitDelete(id int, title string) string {
	return fmt.Sprintf("Delete task #%d: %s", id, truncateTitle(title))
}
