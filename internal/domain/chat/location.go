package chat

import (
	"regexp"
	"strings"
)

// Ordered patterns for weather intents; the first match wins. The spellings
// tolerate common typos such as "wether" and "weathr".
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`wea?the?r\s+(?:in|for|at)\s+([a-z\s]+?)(?:\?|!|$|\.)`),
	regexp.MustCompile(`(?:what'?s|what is|how'?s|how is)\s+(?:the\s+)?wea?the?r\s+(?:in|at|for)\s+([a-z\s]+?)(?:\?|!|$|\.)`),
	regexp.MustCompile(`(?:tell me|show me|get)\s+(?:the\s+)?wea?the?r\s+(?:in|for|at)\s+([a-z\s]+?)(?:\?|!|$|\.)`),
	regexp.MustCompile(`(?:in|at|for)\s+([a-z\s]+?)\s+wea?the?r`),
	regexp.MustCompile(`^([a-z\s]+?)\s+wea?the?r$`),
	regexp.MustCompile(`weather:\s*([a-z\s]+)`),
}

// knownCities is the fallback when no pattern matches.
var knownCities = []string{
	"paris", "london", "tokyo", "new york", "sydney",
	"berlin", "moscow", "beijing", "mumbai", "dubai",
}

// stopWords filters captured groups that are grammar, not places.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "was": {}, "are": {}, "my": {}, "your": {},
}

// ExtractLocation pulls a location out of free text, returning "" when the
// message carries no weather cue. The result is lower-cased and trimmed.
func ExtractLocation(input string) string {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return ""
	}

	for _, pattern := range locationPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		location := strings.TrimSpace(match[1])
		if _, stop := stopWords[location]; stop || len(location) < 2 {
			continue
		}
		return location
	}

	for _, city := range knownCities {
		if strings.Contains(text, city) {
			return city
		}
	}

	return ""
}
