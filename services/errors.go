package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации входных данных
	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrPlayerNameRequired     = errors.New("player name is required")
	ErrInvalidRoundCounts     = errors.New("swiss and elimination round counts must be non-negative and at least one round must be scheduled")
	ErrInvalidResult          = errors.New("invalid match result")
	ErrInvalidPlayerRating    = errors.New("player rating must not be negative")

	// Ошибки, специфичные для сущностей
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant is not registered in the tournament")

	// Нарушение предусловий: состояние турнира не позволяет операцию
	ErrTournamentAlreadyConfirmed        = errors.New("tournament is already confirmed")
	ErrTournamentNotCompleted            = errors.New("tournament must be completed before confirmation")
	ErrTournamentNotActive               = errors.New("tournament is not active")
	ErrTournamentNotDraft                = errors.New("participants can only be changed while the tournament is a draft")
	ErrTournamentUnfinished              = errors.New("not all scheduled rounds have been created")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrRoundLimitReached                 = errors.New("all scheduled rounds have already been created")
	ErrRoundNotCompleted                 = errors.New("the current round is not completed")
	ErrRoundAlreadyCompleted             = errors.New("round is already completed")
	ErrRoundNotCurrent                   = errors.New("only the current round can be modified")
	ErrNoRounds                          = errors.New("tournament has no rounds")
	ErrByeImmutable                      = errors.New("bye matches cannot be changed")
	ErrDrawNotAllowed                    = errors.New("draws are not allowed in elimination rounds")
	ErrParticipantAlreadyRegistered      = errors.New("participant is already registered in the tournament")
	ErrPlayerAlreadyExists               = errors.New("player with this id already exists")

	// Нарушение целостности пар
	ErrEmptyPairings        = errors.New("round must contain at least one match")
	ErrDuplicateParticipant = errors.New("participant appears more than once")
	ErrIncompleteSeat       = errors.New("match has an empty seat")
	ErrMissingParticipant   = errors.New("active participant is missing from the pairings")
	ErrUnknownParticipant   = errors.New("participant is not an active participant of the tournament")
	ErrTooManyByes          = errors.New("a round can contain at most one bye")
	ErrDuplicateMatchID     = errors.New("match id is already in use")
)
