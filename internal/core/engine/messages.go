package engine

import (
	"errors"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// Message is a user-visible notification.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UserMessage maps an orchestrator error to the notification shown to the user.
func UserMessage(err error) Message {
	switch {
	case err == nil:
		return Message{}
	case errors.Is(err, ErrEmptyQuery):
		return Message{Title: "Enter a search query", Description: "Please enter a name, username, or profile URL to search."}
	case errors.Is(err, ErrNoCredits):
		return Message{Title: "No credits remaining", Description: "Please upgrade your plan to continue searching."}
	case errors.Is(err, ErrNoSession):
		return Message{Title: "Sign in required", Description: "Please sign in to run a search."}
	case errors.Is(err, ErrCreditDecrement):
		if errors.Is(err, core.ErrNoCredits) {
			return Message{Title: "No credits remaining", Description: "Please upgrade your plan to continue searching."}
		}
		return Message{Title: "Search failed", Description: "Could not deduct a search credit. Please try again."}
	case errors.Is(err, ErrRecordCreate):
		return Message{Title: "Search failed", Description: "Could not start the search. Please try again."}
	case errors.Is(err, ErrRateLimited):
		return Message{Title: "Search failed", Description: "Rate limit exceeded. Please try again later."}
	case errors.Is(err, ErrResultsPersist):
		return Message{Title: "Results not saved", Description: "The search completed but its results could not be saved."}
	default:
		return Message{Title: "Search failed", Description: "An error occurred while searching."}
	}
}
