package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Key names one tunable. The set is closed: Load rejects files that miss a key
// or carry one that is not listed here.
type Key string

const (
	ActionAllowancePerPosition   Key = "action_allowance_per_position"
	CrewEditAllowancePerPosition Key = "crew_edit_allowance_per_position"
	RaceSessionLength            Key = "race_session_length"

	SkillRevealCost     Key = "skill_reveal_cost"
	RoleRevealCost      Key = "role_reveal_cost"
	OpinionRevealCost   Key = "opinion_reveal_cost"
	RecruitQuestionCost Key = "recruit_question_cost"
	HiringCost          Key = "hiring_cost"
	FiringCost          Key = "firing_cost"

	RecruitCount         Key = "recruit_count"
	RecruitChangeChance  Key = "recruit_change_chance"
	SkillMin             Key = "skill_min"
	SkillMax             Key = "skill_max"
	RecruitFocusSkillMin Key = "recruit_focus_skill_min"
	MinAge               Key = "min_age"
	MaxAge               Key = "max_age"

	SkillWeighting          Key = "skill_weighting"
	OpinionWeighting        Key = "opinion_weighting"
	ManagerOpinionWeighting Key = "manager_opinion_weighting"
	MoodWeighting           Key = "mood_weighting"

	OpinionLikeThreshold    Key = "opinion_like_threshold"
	OpinionDislikeThreshold Key = "opinion_dislike_threshold"

	FeedbackTolerance    Key = "feedback_tolerance"
	FeedbackPeerDelta    Key = "feedback_peer_delta"
	FeedbackManagerDelta Key = "feedback_manager_delta"

	RetirementRestThreshold Key = "retirement_rest_threshold"

	PromotionScoreThreshold Key = "promotion_score_threshold"
	PromotionRaceWindow     Key = "promotion_race_window"
	PromotionEveryRaces     Key = "promotion_every_races"
)

var allKeys = []Key{
	ActionAllowancePerPosition,
	CrewEditAllowancePerPosition,
	RaceSessionLength,
	SkillRevealCost,
	RoleRevealCost,
	OpinionRevealCost,
	RecruitQuestionCost,
	HiringCost,
	FiringCost,
	RecruitCount,
	RecruitChangeChance,
	SkillMin,
	SkillMax,
	RecruitFocusSkillMin,
	MinAge,
	MaxAge,
	SkillWeighting,
	OpinionWeighting,
	ManagerOpinionWeighting,
	MoodWeighting,
	OpinionLikeThreshold,
	OpinionDislikeThreshold,
	FeedbackTolerance,
	FeedbackPeerDelta,
	FeedbackManagerDelta,
	RetirementRestThreshold,
	PromotionScoreThreshold,
	PromotionRaceWindow,
	PromotionEveryRaces,
}

// Keys returns every known tunable in declaration order.
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// Keys that must never be negative (costs, sizes, allowances).
var nonNegative = map[Key]bool{
	ActionAllowancePerPosition:   true,
	CrewEditAllowancePerPosition: true,
	SkillRevealCost:              true,
	RoleRevealCost:               true,
	OpinionRevealCost:            true,
	RecruitQuestionCost:          true,
	HiringCost:                   true,
	FiringCost:                   true,
	RecruitCount:                 true,
	RecruitChangeChance:          true,
	FeedbackTolerance:            true,
	FeedbackPeerDelta:            true,
	FeedbackManagerDelta:         true,
	PromotionScoreThreshold:      true,
}

type Tuning struct {
	values map[Key]float64
}

func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	t, err := Parse(raw)
	if err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Parse decodes and validates a flat `key: number` yaml document.
func Parse(raw []byte) (Tuning, error) {
	var m map[string]float64
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Tuning{}, err
	}
	return FromMap(m)
}

func FromMap(m map[string]float64) (Tuning, error) {
	known := make(map[Key]bool, len(allKeys))
	for _, k := range allKeys {
		known[k] = true
	}
	var unknown []string
	for k := range m {
		if !known[Key(k)] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Tuning{}, fmt.Errorf("unknown keys %v", unknown)
	}

	t := Tuning{values: make(map[Key]float64, len(allKeys))}
	var missing []string
	for _, k := range allKeys {
		v, ok := m[string(k)]
		if !ok {
			missing = append(missing, string(k))
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Tuning{}, fmt.Errorf("%s: not a finite number", k)
		}
		if nonNegative[k] && v < 0 {
			return Tuning{}, fmt.Errorf("%s: must be >= 0, got %v", k, v)
		}
		t.values[k] = v
	}
	if len(missing) > 0 {
		return Tuning{}, fmt.Errorf("missing keys %v", missing)
	}
	if err := t.validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.Int(RaceSessionLength) < 1 {
		return fmt.Errorf("%s: must be >= 1", RaceSessionLength)
	}
	if t.Int(SkillMin) < 1 || t.Int(SkillMax) < t.Int(SkillMin) {
		return fmt.Errorf("skill range [%d,%d] invalid", t.Int(SkillMin), t.Int(SkillMax))
	}
	if f := t.Int(RecruitFocusSkillMin); f < t.Int(SkillMin) || f > t.Int(SkillMax) {
		return fmt.Errorf("%s: %d outside skill range", RecruitFocusSkillMin, f)
	}
	if t.Int(MaxAge) < t.Int(MinAge) {
		return fmt.Errorf("age range [%d,%d] invalid", t.Int(MinAge), t.Int(MaxAge))
	}
	if t.Int(PromotionEveryRaces) < 1 || t.Int(PromotionRaceWindow) < 1 {
		return fmt.Errorf("promotion cadence and window must be >= 1")
	}
	return nil
}

// Int returns the tunable rounded to the nearest integer.
func (t Tuning) Int(k Key) int {
	return int(math.Round(t.values[k]))
}

func (t Tuning) Float(k Key) float64 {
	return t.values[k]
}

// With returns a copy with one value replaced. It skips validation and is
// meant for tests and fixtures.
func (t Tuning) With(k Key, v float64) Tuning {
	out := Tuning{values: make(map[Key]float64, len(t.values))}
	for kk, vv := range t.values {
		out.values[kk] = vv
	}
	out.values[k] = v
	return out
}

// Map returns the values keyed by name, for persistence and digests.
func (t Tuning) Map() map[string]float64 {
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[string(k)] = v
	}
	return out
}

func (t Tuning) Digest() string {
	// encoding/json sorts map keys, so the digest is stable.
	b, _ := json.Marshal(t.Map())
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
