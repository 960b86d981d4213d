package models

// MatchResult is the recorded outcome of a match. The empty value means no result yet.
type MatchResult string

const (
	ResultUnset MatchResult = ""
	ResultWin1  MatchResult = "win1"
	ResultWin2  MatchResult = "win2"
	ResultDraw  MatchResult = "draw"
)

const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

func (r MatchResult) IsValid() bool {
	switch r {
	case ResultUnset, ResultWin1, ResultWin2, ResultDraw:
		return true
	}
	return false
}

// Points returns the points awarded to each seat for the result.
func (r MatchResult) Points() (int, int) {
	switch r {
	case ResultWin1:
		return PointsWin, PointsLoss
	case ResultWin2:
		return PointsLoss, PointsWin
	case ResultDraw:
		return PointsDraw, PointsDraw
	default:
		return 0, 0
	}
}

// Match is one pairing inside a round. A nil Participant2ID marks a bye.
type Match struct {
	ID             string      `json:"id" db:"id"`
	Participant1ID string      `json:"participant1_id" db:"participant1_id"`
	Participant2ID *string     `json:"participant2_id,omitempty" db:"participant2_id"`
	TableNumber    *int        `json:"table_number,omitempty" db:"table_number"`
	Result         MatchResult `json:"result" db:"result"`
	Points1        int         `json:"points1" db:"points1"`
	Points2        int         `json:"points2" db:"points2"`

	// Filled in by rating adjustment on confirmation.
	RatingChange1 *int `json:"rating_change1,omitempty" db:"rating_change1"`
	RatingChange2 *int `json:"rating_change2,omitempty" db:"rating_change2"`
}

// NewByeMatch builds the immutable full-point bye for a participant.
func NewByeMatch(id, participantID string) Match {
	return Match{
		ID:             id,
		Participant1ID: participantID,
		Result:         ResultWin1,
		Points1:        PointsWin,
		Points2:        PointsLoss,
	}
}

func (m *Match) IsBye() bool {
	return m.Participant2ID == nil
}

func (m *Match) HasResult() bool {
	return m.Result != ResultUnset
}

// IsResolved reports whether the match no longer blocks round completion.
func (m *Match) IsResolved() bool {
	return m.IsBye() || m.HasResult()
}

func (m *Match) Involves(participantID string) bool {
	return m.Participant1ID == participantID || (m.Participant2ID != nil && *m.Participant2ID == participantID)
}

// WinnerID returns the winning participant, or "" for draws and unresolved matches.
func (m *Match) WinnerID() string {
	switch {
	case m.IsBye():
		return m.Participant1ID
	case m.Result == ResultWin1:
		return m.Participant1ID
	case m.Result == ResultWin2:
		return *m.Participant2ID
	}
	return ""
}

// ApplyResult sets the result and the derived points.
func (m *Match) ApplyResult(result MatchResult) {
	m.Result = result
	m.Points1, m.Points2 = result.Points()
}

func (m Match) Clone() Match {
	c := m
	if m.Participant2ID != nil {
		p2 := *m.Participant2ID
		c.Participant2ID = &p2
	}
	if m.TableNumber != nil {
		tn := *m.TableNumber
		c.TableNumber = &tn
	}
	if m.RatingChange1 != nil {
		rc := *m.RatingChange1
		c.RatingChange1 = &rc
	}
	if m.RatingChange2 != nil {
		rc := *m.RatingChange2
		c.RatingChange2 = &rc
	}
	return c
}
