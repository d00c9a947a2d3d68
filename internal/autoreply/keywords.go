package autoreply

import "strings"

// Keyword sets are matched as lower-case substrings of the inbound text.
// Treat them as read-only.
var (
	ObjectionKeywords = []string{
		"not sure", "maybe", "later", "expensive", "can't", "cant",
		"don't know", "dont know", "think about",
	}

	AffirmativeKeywords = []string{
		"yes", "yeah", "interested", "sounds", "ready", "tell me more",
	}

	CheckoutKeywords = []string{
		"price", "cost", "how much", "link", "buy", "where", "send",
	}

	PurchaseKeywords = []string{
		"bought", "paid", "done", "completed", "purchased", "got it",
	}
)

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
