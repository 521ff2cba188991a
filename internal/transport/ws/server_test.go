package ws

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"crewline.ai/internal/protocol"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/session"
	"crewline.ai/internal/sim/simtest"
)

func newServer(t *testing.T, p session.Persister) *Server {
	t.Helper()
	h := simtest.New(t)
	c := session.New(session.Config{Team: h.NewTeam(7), Mind: h.Mind, Persist: p})
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return NewServer(c, log.New(io.Discard, "", 0))
}

func cmd(op string) protocol.CmdMsg {
	return protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ReqID: "r-" + op, Op: op}
}

func TestStateView_HidesUnrevealedValues(t *testing.T) {
	s := newServer(t, nil)
	var st protocol.StateMsg
	s.Do(func(c *session.Controller) { st = StateView(c) })

	if len(st.Crew) == 0 || len(st.Slots) == 0 {
		t.Fatalf("crew=%d slots=%d", len(st.Crew), len(st.Slots))
	}
	for _, m := range st.Crew {
		if len(m.Skills) != 0 || len(m.Opinions) != 0 {
			t.Fatalf("%s leaks skills=%v opinions=%v", m.Name, m.Skills, m.Opinions)
		}
	}
	for _, r := range st.Recruits {
		if len(r.Skills) != 0 {
			t.Fatalf("recruit %s leaks skills=%v", r.Name, r.Skills)
		}
	}
	if err := protocol.Validate(protocol.SchemaState, st); err != nil {
		t.Fatalf("state schema: %v", err)
	}
}

func TestApply_RevealSkill(t *testing.T) {
	s := newServer(t, nil)
	var target *crew.CrewMember
	s.Do(func(c *session.Controller) { target = c.Team().Active()[0] })

	c := cmd(protocol.OpRevealSkill)
	c.Member, c.Skill = target.Name, crew.Wisdom.String()
	res, st := s.Apply(context.Background(), c)
	if !res.OK || res.Value == nil {
		t.Fatalf("reveal failed: %+v", res)
	}
	if *res.Value != target.Skill(crew.Wisdom) {
		t.Fatalf("value=%d want %d", *res.Value, target.Skill(crew.Wisdom))
	}
	if err := protocol.Validate(protocol.SchemaResult, res); err != nil {
		t.Fatalf("result schema: %v", err)
	}

	seen := false
	for _, m := range st.Crew {
		if m.Name != target.Name {
			continue
		}
		seen = true
		if len(m.Skills) != 1 || m.Skills["Wisdom"] != *res.Value {
			t.Fatalf("revealed skills=%v", m.Skills)
		}
	}
	if !seen {
		t.Fatalf("%s missing from STATE", target.Name)
	}

	res, _ = s.Apply(context.Background(), c)
	if res.OK || res.Code != protocol.ErrUnavailable {
		t.Fatalf("second reveal: ok=%v code=%s", res.OK, res.Code)
	}
}

func TestApply_Errors(t *testing.T) {
	s := newServer(t, nil)
	var name string
	s.Do(func(c *session.Controller) { name = c.Team().Active()[0].Name })

	unknown := cmd(protocol.OpFire)
	unknown.Member = "Nobody At All"

	badSkill := cmd(protocol.OpRevealSkill)
	badSkill.Member, badSkill.Skill = name, "Juggling"

	noOpinion := cmd(protocol.OpRevealOpinion)
	noOpinion.Member, noOpinion.Target = name, "Nobody At All"

	cases := []struct {
		name string
		cmd  protocol.CmdMsg
		code string
	}{
		{"unknown member", unknown, protocol.ErrUnknownTarget},
		{"bad skill", badSkill, protocol.ErrBadRequest},
		{"unknown opinion target", noOpinion, protocol.ErrUnknownTarget},
		{"unknown op", cmd("JUMP"), protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		res, _ := s.Apply(context.Background(), tc.cmd)
		if res.OK || res.Code != tc.code {
			t.Fatalf("%s: ok=%v code=%s want %s", tc.name, res.OK, res.Code, tc.code)
		}
	}
}

func TestApply_AssignBreakdownConfirm(t *testing.T) {
	s := newServer(t, nil)
	var (
		name     string
		position string
	)
	s.Do(func(c *session.Controller) {
		name = c.Team().Active()[0].Name
		position = c.Team().Boat.Positions[0].Position.Name
	})

	as := cmd(protocol.OpAssign)
	as.Position, as.Member = position, name
	res, st := s.Apply(context.Background(), as)
	if !res.OK {
		t.Fatalf("assign: %s", res.Message)
	}
	if st.Slots[0].Member != name {
		t.Fatalf("slot 0 member=%q want %q", st.Slots[0].Member, name)
	}

	bd := cmd(protocol.OpBreakdown)
	bd.Position = position
	res, _ = s.Apply(context.Background(), bd)
	if !res.OK || res.Breakdown == nil {
		t.Fatalf("breakdown: %+v", res)
	}
	b := res.Breakdown
	if b.Skill+b.Peer+b.Manager+b.Mood != b.Total {
		t.Fatalf("breakdown terms do not add up: %+v", *b)
	}

	res, st = s.Apply(context.Background(), cmd(protocol.OpConfirm))
	if !res.OK || res.Confirm == nil {
		t.Fatalf("confirm: %+v", res)
	}
	if res.Confirm.IdealScore < res.Confirm.Score {
		t.Fatalf("ideal %d below score %d", res.Confirm.IdealScore, res.Confirm.Score)
	}
	if st.Session != 1 {
		t.Fatalf("session=%d want 1", st.Session)
	}
	if err := protocol.Validate(protocol.SchemaResult, res); err != nil {
		t.Fatalf("result schema: %v", err)
	}
}

type gatedPersister struct{ release chan struct{} }

func (g *gatedPersister) PersistLineUp(ctx context.Context, job session.Job) error {
	<-g.release
	return nil
}

func TestApply_ConfirmBusyWhileSaving(t *testing.T) {
	g := &gatedPersister{release: make(chan struct{})}
	s := newServer(t, g)
	t.Cleanup(func() { close(g.release) })
	s.SetConfirmTimeout(20 * time.Millisecond)

	res, _ := s.Apply(context.Background(), cmd(protocol.OpConfirm))
	if !res.OK {
		t.Fatalf("first confirm: %s", res.Message)
	}

	res, st := s.Apply(context.Background(), cmd(protocol.OpConfirm))
	if res.OK || res.Code != protocol.ErrBusy {
		t.Fatalf("second confirm: ok=%v code=%s", res.OK, res.Code)
	}
	if st.Session != 1 {
		t.Fatalf("busy confirm advanced the session to %d", st.Session)
	}
}

func readType(t *testing.T, conn *websocket.Conn, want string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if base.Type != want {
		t.Fatalf("type=%s want %s: %s", base.Type, want, msg)
	}
	return msg
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHandler_RoundTrip(t *testing.T) {
	conn := dial(t, newServer(t, nil))

	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
	}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	readType(t, conn, protocol.TypeWelcome)
	if err := protocol.ValidateRaw(protocol.SchemaState, readType(t, conn, protocol.TypeState)); err != nil {
		t.Fatalf("state schema: %v", err)
	}

	if err := conn.WriteJSON(cmd(protocol.OpState)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := protocol.ValidateRaw(protocol.SchemaResult, readType(t, conn, protocol.TypeResult)); err != nil {
		t.Fatalf("result schema: %v", err)
	}
	readType(t, conn, protocol.TypeState)

	// ASSIGN without a member fails schema validation and gets no STATE.
	bad := cmd(protocol.OpAssign)
	bad.Position = "Skipper"
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res protocol.ResultMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code=%s want %s", res.Code, protocol.ErrProtoBadRequest)
	}

	if err := conn.WriteJSON(cmd(protocol.OpState)); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, protocol.TypeResult)
}

func TestHandler_RejectsMissingHello(t *testing.T) {
	conn := dial(t, newServer(t, nil))

	if err := conn.WriteJSON(cmd(protocol.OpState)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection to close without HELLO")
	}
}
