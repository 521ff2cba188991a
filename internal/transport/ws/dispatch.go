package ws

import (
	"context"
	"errors"
	"fmt"

	"crewline.ai/internal/protocol"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/session"
)

// Apply runs one command against the controller and returns the reply and
// the state after it. Commands are serialised on the server mutex.
func (s *Server) Apply(ctx context.Context, cmd protocol.CmdMsg) (protocol.ResultMsg, protocol.StateMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           cmd.ReqID,
		Op:              cmd.Op,
	}
	if code, msg := s.apply(ctx, cmd, &res); code != "" {
		res.Code, res.Message = code, msg
	} else {
		res.OK = true
	}
	return res, StateView(s.ctl)
}

func (s *Server) apply(ctx context.Context, cmd protocol.CmdMsg, res *protocol.ResultMsg) (code, msg string) {
	c := s.ctl
	t := c.Team()

	member := func() (string, string) {
		if t.Member(cmd.Member) == nil {
			return protocol.ErrUnknownTarget, "unknown crew member: " + cmd.Member
		}
		return "", ""
	}
	skill := func() (crew.Skill, string, string) {
		sk, err := crew.ParseSkill(cmd.Skill)
		if err != nil {
			return 0, protocol.ErrBadRequest, err.Error()
		}
		return sk, "", ""
	}
	position := func() (string, string) {
		if t.Boat.Slot(cmd.Position) == nil {
			return protocol.ErrUnknownTarget, "unknown position: " + cmd.Position
		}
		return "", ""
	}

	switch cmd.Op {
	case protocol.OpState:
		return "", ""

	case protocol.OpRevealSkill:
		if code, msg := member(); code != "" {
			return code, msg
		}
		sk, code, msg := skill()
		if code != "" {
			return code, msg
		}
		v, ok := c.RevealSkill(cmd.Member, sk)
		if !ok {
			return protocol.ErrUnavailable, "skill already revealed or allowance spent"
		}
		res.Value = &v

	case protocol.OpRevealRole:
		if code, msg := member(); code != "" {
			return code, msg
		}
		p, ok := c.RevealRole(cmd.Member)
		if !ok {
			return protocol.ErrUnavailable, "allowance spent"
		}
		res.Position = p.Name

	case protocol.OpRevealOpinion:
		if code, msg := member(); code != "" {
			return code, msg
		}
		if !t.Member(cmd.Member).Knows(cmd.Target) {
			return protocol.ErrUnknownTarget, fmt.Sprintf("%s has no opinion of %s", cmd.Member, cmd.Target)
		}
		v, ok := c.RevealOpinion(cmd.Member, cmd.Target)
		if !ok {
			return protocol.ErrUnavailable, "allowance spent"
		}
		res.Value = &v

	case protocol.OpRecruitQuestion:
		sk, code, msg := skill()
		if code != "" {
			return code, msg
		}
		if !c.RecruitQuestion(sk) {
			return protocol.ErrUnavailable, "no recruits or allowance spent"
		}

	case protocol.OpHire:
		if t.Recruit(cmd.Member) == nil {
			return protocol.ErrUnknownTarget, "unknown recruit: " + cmd.Member
		}
		if !c.Hire(cmd.Member) {
			return protocol.ErrUnavailable, "crew is full or allowance spent"
		}

	case protocol.OpFire:
		if code, msg := member(); code != "" {
			return code, msg
		}
		if !c.Fire(cmd.Member) {
			return protocol.ErrUnavailable, "crew at minimum or allowance spent"
		}

	case protocol.OpAssign:
		if code, msg := position(); code != "" {
			return code, msg
		}
		if code, msg := member(); code != "" {
			return code, msg
		}
		c.Assign(cmd.Position, cmd.Member)

	case protocol.OpDetach:
		if code, msg := position(); code != "" {
			return code, msg
		}
		if !c.Detach(cmd.Position) {
			return protocol.ErrUnavailable, "position is empty"
		}

	case protocol.OpBreakdown:
		if code, msg := position(); code != "" {
			return code, msg
		}
		d, weighted, _ := c.Breakdown(cmd.Position)
		res.Breakdown = &protocol.BreakdownObs{
			Skill:    d.Skill,
			Peer:     d.Peer,
			Manager:  d.Manager,
			Mood:     d.Mood,
			Total:    d.Total(),
			Weighted: weighted,
		}

	case protocol.OpConfirm:
		cctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
		defer cancel()
		out, err := c.ConfirmLineUp(cctx)
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return protocol.ErrBusy, "previous line-up is still being saved"
		case errors.Is(err, session.ErrQueueClosed):
			return protocol.ErrUnavailable, err.Error()
		case err != nil:
			s.log.Printf("confirm: %v", err)
			return protocol.ErrInternal, "confirm failed"
		}
		res.Confirm = confirmView(out)

	default:
		return protocol.ErrBadRequest, "unknown op: " + cmd.Op
	}
	return "", ""
}

func confirmView(r session.Result) *protocol.ConfirmObs {
	out := &protocol.ConfirmObs{
		Score:      r.LineUp.Score,
		IdealScore: r.LineUp.IdealScore,
		Mistakes:   append([]string{}, r.LineUp.Mistakes...),
		Race:       r.Race,
		Promoted:   r.Promoted,
		Events:     []protocol.OutcomeObs{},
	}
	for _, o := range r.Events {
		out.Events = append(out.Events, protocol.OutcomeObs{
			Member:   o.Member,
			Event:    o.Event,
			Dialogue: o.Dialogue,
			Retired:  o.Retired,
		})
	}
	return out
}
