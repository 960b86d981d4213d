package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/Dosada05/swiss-tournament/models"
)

const archiveContentType = "application/json"

// TournamentArchive is the document written when a tournament is confirmed.
type TournamentArchive struct {
	Tournament models.Tournament       `json:"tournament"`
	Standings  []models.StandingsEntry `json:"standings"`
	Ratings    models.RatingAdjustment `json:"ratings"`
	ArchivedAt time.Time               `json:"archived_at"`
}

type ResultsArchiver interface {
	ArchiveTournament(ctx context.Context, archive TournamentArchive) (*UploadResult, error)
}

type resultsArchiver struct {
	uploader FileUploader
	prefix   string
}

// NewResultsArchiver stores archives under prefix/<tournament id>/results.json.
func NewResultsArchiver(uploader FileUploader, prefix string) (ResultsArchiver, error) {
	if uploader == nil {
		return nil, errors.New("results archiver requires an uploader")
	}
	if prefix == "" {
		prefix = "tournaments"
	}
	return &resultsArchiver{uploader: uploader, prefix: prefix}, nil
}

func ArchiveKey(prefix, tournamentID string) string {
	return path.Join(prefix, tournamentID, "results.json")
}

func (a *resultsArchiver) ArchiveTournament(ctx context.Context, archive TournamentArchive) (*UploadResult, error) {
	if archive.Tournament.ID == "" {
		return nil, errors.New("cannot archive a tournament without id")
	}
	if archive.ArchivedAt.IsZero() {
		archive.ArchivedAt = time.Now().UTC()
	}

	body, err := json.Marshal(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive for tournament %s: %w", archive.Tournament.ID, err)
	}

	key := ArchiveKey(a.prefix, archive.Tournament.ID)
	result, err := a.uploader.Upload(ctx, key, archiveContentType, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to archive tournament %s: %w", archive.Tournament.ID, err)
	}
	return result, nil
}
