package transcript

import "strings"

var connectors = map[string]struct{}{
	"e":     {},
	"então": {},
}

// Normalize collapses whitespace runs to one space and puts a comma before
// every standalone connector word that follows another word. A connector
// opening the text gets no comma, so "e depois" stays "e depois" rather than
// ", e depois", and the result never starts with a comma. Applying it twice
// gives the same result.
func Normalize(text string) string {
	return strings.Join(InsertConnectorCommas(strings.Fields(text)), " ")
}

// InsertConnectorCommas appends a comma to the token preceding each connector,
// unless that token already ends with one. A leading connector has no
// preceding token and is left alone; no bare comma token is emitted for it.
func InsertConnectorCommas(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if n := len(out); n > 0 && isConnector(tok) && !strings.HasSuffix(out[n-1], ",") {
			out[n-1] += ","
		}
		out = append(out, tok)
	}
	return out
}

func isConnector(tok string) bool {
	_, ok := connectors[strings.ToLower(strings.TrimRight(tok, ".,;:!?"))]
	return ok
}
