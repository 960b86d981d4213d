package services

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/storage"
)

// memStore is an in-memory database. runInTx snapshots it and restores the snapshot
// when the transaction body fails.
type memStore struct {
	tournaments map[string]models.Tournament
	rounds      map[string][]models.Round
	players     map[string]models.Player

	applyErr error
}

func newMemStore(players ...models.Player) *memStore {
	s := &memStore{
		tournaments: map[string]models.Tournament{},
		rounds:      map[string][]models.Round{},
		players:     map[string]models.Player{},
	}
	for _, p := range players {
		s.players[p.ID] = p
	}
	return s
}

func cloneRounds(rounds []models.Round) []models.Round {
	out := make([]models.Round, len(rounds))
	for i, r := range rounds {
		out[i] = r.Clone()
	}
	return out
}

func (s *memStore) runInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tournaments := maps.Clone(s.tournaments)
	players := maps.Clone(s.players)
	rounds := make(map[string][]models.Round, len(s.rounds))
	for id, rs := range s.rounds {
		rounds[id] = cloneRounds(rs)
	}

	if err := fn(nil); err != nil {
		s.tournaments, s.players, s.rounds = tournaments, players, rounds
		return err
	}
	return nil
}

type memTournamentRepo struct{ s *memStore }

func (r memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	if _, ok := r.s.tournaments[t.ID]; ok {
		return repositories.ErrTournamentConflict
	}
	stored := t.Clone()
	stored.Rounds = nil
	r.s.tournaments[t.ID] = stored
	return nil
}

func (r memTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Tournament, error) {
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (r memTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0)
	for _, id := range slices.Sorted(maps.Keys(r.s.tournaments)) {
		t := r.s.tournaments[id]
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

func (r memTournamentRepo) Update(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	if _, ok := r.s.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	stored := t.Clone()
	stored.Rounds = nil
	r.s.tournaments[t.ID] = stored
	return nil
}

type memRoundRepo struct{ s *memStore }

func (r memRoundRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) ([]models.Round, error) {
	return cloneRounds(r.s.rounds[tournamentID]), nil
}

// ReplaceForTournament enforces the matches primary key across tournaments.
func (r memRoundRepo) ReplaceForTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string, rounds []models.Round) error {
	for otherID, other := range r.s.rounds {
		if otherID == tournamentID {
			continue
		}
		for _, or := range other {
			for _, om := range or.Matches {
				for _, nr := range rounds {
					if nr.MatchByID(om.ID) != nil {
						return repositories.ErrRoundConflict
					}
				}
			}
		}
	}
	r.s.rounds[tournamentID] = cloneRounds(rounds)
	return nil
}

type memPlayerRepo struct{ s *memStore }

func (r memPlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Player) error {
	if _, ok := r.s.players[p.ID]; ok {
		return repositories.ErrPlayerConflict
	}
	r.s.players[p.ID] = *p
	return nil
}

func (r memPlayerRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Player, error) {
	p, ok := r.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &p, nil
}

func (r memPlayerRepo) GetByIDs(_ context.Context, _ repositories.SQLExecutor, ids []string) ([]models.Player, error) {
	out := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.players[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memPlayerRepo) List(_ context.Context, limit, offset int) ([]models.Player, error) {
	all := slices.SortedFunc(maps.Values(r.s.players), func(a, b models.Player) int {
		if a.Rating != b.Rating {
			return b.Rating - a.Rating
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if offset >= len(all) {
		return []models.Player{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r memPlayerRepo) ApplyRatingUpdates(_ context.Context, _ repositories.SQLExecutor, updates []models.PlayerRatingUpdate, at time.Time) error {
	if r.s.applyErr != nil {
		return r.s.applyErr
	}
	for _, u := range updates {
		p := r.s.players[u.PlayerID]
		p.ID = u.PlayerID
		if p.Name == "" {
			p.Name = u.Name
		}
		p.Rating = u.Rating
		p.TournamentsPlayed = u.TournamentsPlayed
		p.Wins, p.Losses, p.Draws = u.Wins, u.Losses, u.Draws
		p.UpdatedAt = at
		r.s.players[u.PlayerID] = p
	}
	return nil
}

type recordedEvent struct {
	TournamentID string
	Type         string
	Payload      any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) BroadcastEvent(tournamentID, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

type recordingArchiver struct {
	archives []storage.TournamentArchive
	err      error
}

func (a *recordingArchiver) ArchiveTournament(_ context.Context, archive storage.TournamentArchive) (*storage.UploadResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.archives = append(a.archives, archive)
	key := storage.ArchiveKey("tournaments", archive.Tournament.ID)
	return &storage.UploadResult{Key: key, Location: "mem://" + key}, nil
}
