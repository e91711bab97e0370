package league

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// ParseTeam maps anything that is not "B" onto team A.
func ParseTeam(s string) Team {
	if s == string(TeamB) {
		return TeamB
	}
	return TeamA
}

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

func (t Team) Other() Team {
	if t == TeamB {
		return TeamA
	}
	return TeamB
}

type Winner string

const (
	WinnerA Winner = "A"
	WinnerB Winner = "B"
	Tie     Winner = "Tie"
)

func (w Winner) Valid() bool {
	return w == WinnerA || w == WinnerB || w == Tie
}

// Won reports whether the given team is the winner. A tie is won by nobody.
func (w Winner) Won(t Team) bool {
	return w != Tie && string(w) == string(t)
}

type TeamNames struct {
	A string `json:"A"`
	B string `json:"B"`
}

func DefaultTeamNames() TeamNames {
	return TeamNames{A: "Team A", B: "Team B"}
}

func (n TeamNames) Name(t Team) string {
	if t == TeamB {
		return n.B
	}
	return n.A
}

type TeamScores struct {
	A int `json:"A"`
	B int `json:"B"`
}

// Winner picks the side with the strictly greater score.
func (s TeamScores) Winner() Winner {
	switch {
	case s.A > s.B:
		return WinnerA
	case s.B > s.A:
		return WinnerB
	default:
		return Tie
	}
}
