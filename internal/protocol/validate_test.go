package protocol_test

import (
	"testing"

	"crewline.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	valid := map[string]string{
		protocol.SchemaHello: `{"type":"HELLO","protocol_version":"1.0","client_name":"deck"}`,
		protocol.SchemaCmd:   `{"type":"CMD","protocol_version":"1.0","req_id":"r1","op":"ASSIGN","position":"Skipper","member":"Ann Hale"}`,
		protocol.SchemaState: `{
		  "type":"STATE","protocol_version":"1.0",
		  "session":3,"session_in_race":0,"race":false,"race_scores":[31],
		  "action_allowance":4,"crew_edit_allowance":1,
		  "boat_type":"Dinghy",
		  "slots":[{"position":"Skipper","skills":["Charisma","Wisdom"],"member":"Ann Hale"}],
		  "can_hire":true,"can_fire":false,
		  "crew":[{"name":"Ann Hale","age":31,"gender":"female","position":"Skipper",
		           "skills":{"Wisdom":8},"opinions":[{"target":"Bo Reed","value":-2,"age":1}]}],
		  "recruits":[]
		}`,
		protocol.SchemaResult: `{"type":"RESULT","protocol_version":"1.0","req_id":"r1","op":"REVEAL_SKILL","ok":true,"value":7}`,
	}
	for schema, raw := range valid {
		if err := protocol.ValidateRaw(schema, []byte(raw)); err != nil {
			t.Fatalf("%s: %v", schema, err)
		}
	}
}

func TestSchemas_RejectIncompleteCommands(t *testing.T) {
	bad := []string{
		`{"type":"CMD","protocol_version":"1.0","req_id":"r1","op":"JUMP"}`,
		`{"type":"CMD","protocol_version":"1.0","req_id":"r1","op":"REVEAL_SKILL","member":"Ann Hale"}`,
		`{"type":"CMD","protocol_version":"1.0","req_id":"r1","op":"ASSIGN","position":"Skipper"}`,
		`{"type":"CMD","protocol_version":"1.0","op":"STATE"}`,
		`{"type":"HELLO","protocol_version":"1.0","req_id":"r1","op":"STATE"}`,
	}
	for _, raw := range bad {
		if err := protocol.ValidateRaw(protocol.SchemaCmd, []byte(raw)); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
}

func TestValidate_OutgoingResult(t *testing.T) {
	v := 3
	msg := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           "r9",
		Op:              protocol.OpRevealOpinion,
		OK:              true,
		Value:           &v,
	}
	if err := protocol.Validate(protocol.SchemaResult, msg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	msg.Code = "bad code"
	if err := protocol.Validate(protocol.SchemaResult, msg); err == nil {
		t.Fatalf("expected code pattern rejection")
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	if err := protocol.ValidateRaw("nope.schema.json", []byte(`{}`)); err == nil {
		t.Fatalf("expected error")
	}
}
