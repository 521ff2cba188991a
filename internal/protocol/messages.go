package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Manager         string         `json:"manager"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	PositionsDigest string `json:"positions_digest"`
	BoatsDigest     string `json:"boats_digest"`
	NamesDigest     string `json:"names_digest"`
	EventsDigest    string `json:"events_digest"`
	TuningDigest    string `json:"tuning_digest,omitempty"`
}

// Command ops.
const (
	OpState           = "STATE"
	OpRevealSkill     = "REVEAL_SKILL"
	OpRevealRole      = "REVEAL_ROLE"
	OpRevealOpinion   = "REVEAL_OPINION"
	OpRecruitQuestion = "RECRUIT_QUESTION"
	OpHire            = "HIRE"
	OpFire            = "FIRE"
	OpAssign          = "ASSIGN"
	OpDetach          = "DETACH"
	OpBreakdown       = "BREAKDOWN"
	OpConfirm         = "CONFIRM"
)

// CMD (client -> server). Which fields are required depends on Op.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Op              string `json:"op"`

	Member   string `json:"member,omitempty"`
	Target   string `json:"target,omitempty"`
	Skill    string `json:"skill,omitempty"`
	Position string `json:"position,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Op              string `json:"op"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	// Value answers REVEAL_SKILL and REVEAL_OPINION.
	Value     *int          `json:"value,omitempty"`
	Position  string        `json:"position,omitempty"`
	Breakdown *BreakdownObs `json:"breakdown,omitempty"`
	Confirm   *ConfirmObs   `json:"confirm,omitempty"`
}

type BreakdownObs struct {
	Skill    int     `json:"skill"`
	Peer     int     `json:"peer"`
	Manager  int     `json:"manager"`
	Mood     int     `json:"mood"`
	Total    int     `json:"total"`
	Weighted float64 `json:"weighted"`
}

type ConfirmObs struct {
	Score      int          `json:"score"`
	IdealScore int          `json:"ideal_score"`
	Mistakes   []string     `json:"mistakes"`
	Race       bool         `json:"race"`
	Promoted   string       `json:"promoted,omitempty"`
	Events     []OutcomeObs `json:"events"`
}

type OutcomeObs struct {
	Member   string `json:"member"`
	Event    string `json:"event"`
	Dialogue string `json:"dialogue"`
	Retired  bool   `json:"retired,omitempty"`
}
