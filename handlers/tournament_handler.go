package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
	}
}

type pairingInput struct {
	ID             string  `json:"id,omitempty"`
	Participant1ID string  `json:"participant1_id"`
	Participant2ID *string `json:"participant2_id,omitempty"`
}

type pairingsRequest struct {
	Matches []pairingInput `json:"matches"`
}

func (p pairingsRequest) toMatches() []models.Match {
	matches := make([]models.Match, 0, len(p.Matches))
	for _, in := range p.Matches {
		matches = append(matches, models.Match{
			ID:             in.ID,
			Participant1ID: in.Participant1ID,
			Participant2ID: in.Participant2ID,
		})
	}
	return matches
}

type participantRequest struct {
	ParticipantID string `json:"participant_id"`
}

type matchResultRequest struct {
	Result models.MatchResult `json:"result"`
}

type roundView struct {
	models.Round
	Name string `json:"name"`
}

type tournamentView struct {
	*models.Tournament
	Rounds []roundView `json:"rounds"`
}

// newTournamentView adds display names to rounds ("Round 2", "Semifinal", "Final").
func newTournamentView(t *models.Tournament) tournamentView {
	rounds := make([]roundView, 0, len(t.Rounds))
	for _, r := range t.Rounds {
		rounds = append(rounds, roundView{Round: r, Name: brackets.RoundName(t, r.Number)})
	}
	return tournamentView{Tournament: t, Rounds: rounds}
}

func (h *TournamentHandler) respondTournament(w http.ResponseWriter, r *http.Request, status int, t *models.Tournament) {
	if err := writeJSON(w, status, jsonResponse{"tournament": newTournamentView(t)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateHandler godoc
// @Summary Создать турнир
// @Tags tournaments
// @Accept json
// @Produce json
// @Param input body services.CreateTournamentInput true "Турнир"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string "Игрок не найден"
// @Router /tournaments [post]
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusCreated, tournament)
}

// GetByIDHandler godoc
// @Summary Турнир со всеми турами
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// ListHandler godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param status query string false "draft | active | completed | confirmed"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments [get]
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListTournamentsFilter

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		if !status.IsValid() {
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
		filter.Status = &status
	}
	limit, offset, err := paginationParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if limit == 0 {
		limit = 20 // Значение по умолчанию
	}
	filter.Limit, filter.Offset = limit, offset

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler godoc
// @Summary Таблица: очки, Бухгольц, Бухгольц-2, усечённый Бухгольц
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param include_dropped query bool false "Показывать выбывших"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/standings [get]
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	includeDropped := false
	if raw := r.URL.Query().Get("include_dropped"); raw != "" {
		includeDropped, err = strconv.ParseBool(raw)
		if err != nil {
			badRequestResponse(w, r, errors.New("invalid include_dropped query parameter"))
			return
		}
	}

	standings, err := h.tournamentService.GetStandings(r.Context(), id, includeDropped)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PreviewPairingsHandler godoc
// @Summary Жеребьёвка следующего тура без сохранения
// @Tags rounds
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/pairings/preview [get]
func (h *TournamentHandler) PreviewPairingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.tournamentService.PreviewPairing(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateRoundHandler godoc
// @Summary Создать следующий тур
// @Description Без тела запроса пары генерируются автоматически.
// @Tags rounds
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body pairingsRequest false "Ручные пары"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /tournaments/{tournamentID}/rounds [post]
func (h *TournamentHandler) CreateRoundHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input pairingsRequest
	if err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateRound(r.Context(), id, input.toMatches())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusCreated, tournament)
}

// DeleteLastRoundHandler godoc
// @Summary Удалить текущий тур
// @Tags rounds
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/rounds/last [delete]
func (h *TournamentHandler) DeleteLastRoundHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.DeleteLastRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// ReplacePairingsHandler godoc
// @Summary Заменить пары открытого тура
// @Tags rounds
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param roundID path string true "Round ID"
// @Param input body pairingsRequest true "Пары"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /tournaments/{tournamentID}/rounds/{roundID}/matches [put]
func (h *TournamentHandler) ReplacePairingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input pairingsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.ReplacePairings(r.Context(), id, roundID, input.toMatches())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// RecordResultHandler godoc
// @Summary Записать результат матча
// @Description result: win1, win2, draw или пустая строка для сброса.
// @Tags rounds
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param roundID path string true "Round ID"
// @Param matchID path string true "Match ID"
// @Param input body matchResultRequest true "Результат"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/rounds/{roundID}/matches/{matchID}/result [put]
func (h *TournamentHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input matchResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.RecordMatchResult(r.Context(), id, roundID, matchID, input.Result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// FinishHandler godoc
// @Summary Завершить турнир
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/finish [post]
func (h *TournamentHandler) FinishHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.FinishTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// ConfirmHandler godoc
// @Summary Подтвердить турнир и пересчитать рейтинги
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/confirm [post]
func (h *TournamentHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.tournamentService.ConfirmTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	resp := jsonResponse{
		"tournament": newTournamentView(result.Tournament),
		"ratings":    result.Adjustment,
	}
	if result.Archive != nil {
		resp["archive"] = result.Archive
	}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddParticipantHandler godoc
// @Summary Добавить участника (только в черновике)
// @Tags participants
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body participantRequest true "Участник"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/participants [post]
func (h *TournamentHandler) AddParticipantHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input participantRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.AddParticipant(r.Context(), id, input.ParticipantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// RemoveParticipantHandler godoc
// @Summary Убрать участника (только в черновике)
// @Tags participants
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param participantID path string true "Participant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tournaments/{tournamentID}/participants/{participantID} [delete]
func (h *TournamentHandler) RemoveParticipantHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.RemoveParticipant(r.Context(), id, participantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}

// ToggleDropHandler godoc
// @Summary Снять участника с турнира или вернуть его
// @Tags participants
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param participantID path string true "Participant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/participants/{participantID}/drop [post]
func (h *TournamentHandler) ToggleDropHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.ToggleDrop(r.Context(), id, participantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondTournament(w, r, http.StatusOK, tournament)
}
