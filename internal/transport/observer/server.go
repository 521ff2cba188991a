// Package observer serves the full game state, hidden values included, to
// local tooling. It never accepts commands.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"crewline.ai/internal/sim/cognition"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/session"
)

// Access runs fn with exclusive access to the controller.
type Access func(fn func(c *session.Controller))

type Server struct {
	access Access
	mind   cognition.Engine
	log    *log.Logger
}

func NewServer(access Access, mind cognition.Engine, logger *log.Logger) *Server {
	return &Server{access: access, mind: mind, log: logger}
}

type TruthView struct {
	Session    int         `json:"session"`
	RaceScores []int       `json:"race_scores"`
	BoatType   string      `json:"boat_type"`
	Score      int         `json:"score"`
	IdealScore int         `json:"ideal_score"`
	Slots      []SlotTruth `json:"slots"`
	Crew       []Truth     `json:"crew"`
	Recruits   []Truth     `json:"recruits"`
	Retired    []string    `json:"retired"`
}

type SlotTruth struct {
	Position string `json:"position"`
	Member   string `json:"member,omitempty"`
	Score    int    `json:"score"`
}

type Truth struct {
	Name     string         `json:"name"`
	Skills   map[string]int `json:"skills"`
	Opinions map[string]int `json:"opinions"`
	Mood     float64        `json:"mood"`
	Rest     int            `json:"rest"`
}

// Snapshot builds the current truth view.
func (s *Server) Snapshot() TruthView {
	var v TruthView
	s.access(func(c *session.Controller) {
		t := c.Team()
		b := t.Boat
		v = TruthView{
			Session:    c.SessionCount(),
			RaceScores: c.RaceScores(),
			BoatType:   b.Type,
			Score:      b.Score,
			IdealScore: b.IdealScore(),
			Slots:      []SlotTruth{},
			Crew:       []Truth{},
			Recruits:   []Truth{},
			Retired:    []string{},
		}
		for _, bp := range b.Positions {
			st := SlotTruth{Position: bp.Position.Name, Score: bp.Score}
			if bp.CrewMember != nil {
				st.Member = bp.CrewMember.Name
			}
			v.Slots = append(v.Slots, st)
		}
		for _, m := range t.Active() {
			v.Crew = append(v.Crew, s.truth(m))
		}
		for _, m := range t.Recruits() {
			v.Recruits = append(v.Recruits, s.truth(m))
		}
		for _, m := range t.Retired() {
			v.Retired = append(v.Retired, m.Name)
		}
	})
	return v
}

func (s *Server) truth(m *crew.CrewMember) Truth {
	out := Truth{
		Name:     m.Name,
		Skills:   map[string]int{},
		Opinions: map[string]int{},
		Rest:     m.Rest(),
	}
	for sk, v := range m.Skills() {
		out.Skills[sk.String()] = v
	}
	for _, name := range m.Known() {
		out.Opinions[name] = m.Opinion(name)
	}
	if s.mind != nil {
		out.Mood = s.mind.Mood(m.Name)
	}
	return out
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(s.Snapshot()); err != nil && s.log != nil {
			s.log.Printf("observer: encode: %v", err)
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
