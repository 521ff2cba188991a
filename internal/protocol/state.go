package protocol

// STATE (server -> client). Only values the manager has revealed are
// included; true skills and opinions never leave the server.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Session           int   `json:"session"`
	SessionInRace     int   `json:"session_in_race"`
	Race              bool  `json:"race"`
	RaceScores        []int `json:"race_scores"`
	ActionAllowance   int   `json:"action_allowance"`
	CrewEditAllowance int   `json:"crew_edit_allowance"`

	BoatType string    `json:"boat_type"`
	Slots    []SlotObs `json:"slots"`
	CanHire  bool      `json:"can_hire"`
	CanFire  bool      `json:"can_fire"`

	Crew     []MemberObs `json:"crew"`
	Recruits []MemberObs `json:"recruits"`
}

type SlotObs struct {
	Position string   `json:"position"`
	Skills   []string `json:"skills"`
	Member   string   `json:"member,omitempty"`
}

type MemberObs struct {
	Name     string         `json:"name"`
	Age      int            `json:"age"`
	Gender   string         `json:"gender"`
	Position string         `json:"position,omitempty"`
	// Revealed skill values, keyed by skill name.
	Skills   map[string]int `json:"skills"`
	Opinions []OpinionObs   `json:"opinions,omitempty"`
}

type OpinionObs struct {
	Target string `json:"target"`
	Value  int    `json:"value"`
	// Sessions since the opinion was revealed.
	Age    int    `json:"age"`
}
