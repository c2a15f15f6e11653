package app

import (
	"sort"

	"lan-quiz-service/internal/domain"
)

// buildLeaderboard orders participants by score, highest first. Equal scores keep join order.
func buildLeaderboard(participants []domain.Participant) []domain.LeaderboardEntry {
	ordered := append([]domain.Participant(nil), participants...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].JoinSeq < ordered[j].JoinSeq
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	for _, p := range ordered {
		entries = append(entries, domain.LeaderboardEntry{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
		})
	}
	return entries
}

func buildRoster(participants []domain.Participant) domain.RosterPayload {
	entries := make([]domain.RosterEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.RosterEntry{
			ID:       p.ID,
			Name:     p.Name,
			JoinedAt: p.JoinedAt,
			Score:    p.Score,
		})
	}
	return domain.RosterPayload{Participants: entries}
}
