package core

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FindPlayers returns the players whose name or nickname fuzzily matches
// query, closest first. An empty query returns the whole roster.
func FindPlayers(data AppData, query string) []Player {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]Player(nil), data.Players...)
	}

	targets := make([]string, len(data.Players))
	for i, p := range data.Players {
		targets[i] = strings.TrimSpace(p.DisplayName() + " " + p.Nickname)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	out := make([]Player, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, data.Players[r.OriginalIndex])
	}
	return out
}
