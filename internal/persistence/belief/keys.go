package belief

// Per-character keys.
const (
	KeyStatus   = "status"
	KeyAge      = "age"
	KeyGender   = "gender"
	KeyPosition = "position"
	KeyRest     = "rest"
	KeyMood     = "mood"

	PrefixSkill              = "skill:"
	PrefixRevealedSkill      = "revealed_skill:"
	PrefixOpinion            = "opinion:"
	PrefixRevealedOpinion    = "revealed_opinion:"
	PrefixRevealedOpinionAge = "revealed_opinion_age:"
	PrefixEventSeen          = "event_seen:"

	// NullPosition is persisted when a member holds no slot.
	NullPosition = "null"
)

// Status values.
const (
	StatusActive  = "active"
	StatusRetired = "retired"
	StatusRecruit = "recruit"
	StatusManager = "manager"

	// StatusDiscarded marks a recruit dropped from the pool. The record is
	// kept so the name is never handed out again.
	StatusDiscarded = "discarded"
)

// Manager-record keys holding team and session state.
const (
	KeyBoatType          = "boat_type"
	KeySeed              = "seed"
	KeyRollCounter       = "roll_counter"
	KeySessionCount      = "session_count"
	KeyActionAllowance   = "action_allowance"
	KeyCrewEditAllowance = "crew_edit_allowance"
	KeyRaceScores        = "race_scores"
	KeyLineUpCount       = "lineup_count"

	PrefixLineUp = "lineup:"
)

func SkillKey(skill string) string         { return PrefixSkill + skill }
func RevealedSkillKey(skill string) string { return PrefixRevealedSkill + skill }
func OpinionKey(name string) string        { return PrefixOpinion + name }
func RevealedOpinionKey(name string) string {
	return PrefixRevealedOpinion + name
}
func RevealedOpinionAgeKey(name string) string {
	return PrefixRevealedOpinionAge + name
}
func EventSeenKey(rule string) string { return PrefixEventSeen + rule }
