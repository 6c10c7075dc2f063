package main

import (
	"encoding/json"
	"testing"
)

func TestParseRequestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		body string
		want func(Request) bool
	}{
		{"StartExecution", `{"StartExecution":{"stop_on_entry":true}}`, func(r Request) bool {
			return r.StartExecution != nil && r.StartExecution.StopOnEntry
		}},
		{"SetBreakpoints", `{"SetBreakpoints":{"locations":[10,20]}}`, func(r Request) bool {
			return r.SetBreakpoints != nil && len(r.SetBreakpoints.Locations) == 2 &&
				r.SetBreakpoints.Locations[0] == 10 && r.SetBreakpoints.Locations[1] == 20
		}},
		{"RemoveBreakpoints", `{"RemoveBreakpoints":{"locations":[30]}}`, func(r Request) bool {
			return r.RemoveBreakpoints != nil && len(r.RemoveBreakpoints.Locations) == 1 &&
				r.RemoveBreakpoints.Locations[0] == 30
		}},
		{"Continue", `{"Continue":{}}`, func(r Request) bool { return r.Continue != nil }},
		{"StepOne", `{"StepOne":{}}`, func(r Request) bool { return r.StepOne != nil }},
		{"SetRegister", `{"SetRegister":{"register":9,"value":123}}`, func(r Request) bool {
			return r.SetRegister != nil && r.SetRegister.Register == 9 && r.SetRegister.Value == 123
		}},
		{"Terminate", `{"Terminate":{}}`, func(r Request) bool { return r.Terminate != nil }},
		{"CopyState", `{"CopyState":{}}`, func(r Request) bool { return r.CopyState != nil }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(c.body))
			if err != nil {
				t.Fatalf("ParseRequest(%s): %v", c.body, err)
			}
			if !c.want(req) {
				t.Errorf("ParseRequest(%s) = %+v, did not match expectations", c.body, req)
			}
		})
	}
}

func TestParseRequestRejectsMultipleTags(t *testing.T) {
	_, err := ParseRequest([]byte(`{"Continue":{},"StepOne":{}}`))
	if err == nil {
		t.Fatal("expected an error for a frame carrying two tags")
	}
}

func TestParseRequestRejectsUnknownTag(t *testing.T) {
	_, err := ParseRequest([]byte(`{"FrobnicateFoo":{}}`))
	if err == nil {
		t.Fatal("expected an error for an unrecognised tag")
	}
}

func TestParseRequestRejectsMalformedPayload(t *testing.T) {
	_, err := ParseRequest([]byte(`{"SetRegister":{"register":"not a number","value":1}}`))
	if err == nil {
		t.Fatal("expected an error for a payload that doesn't match its variant's shape")
	}
}

func TestParseRequestRejectsMalformedFrame(t *testing.T) {
	_, err := ParseRequest([]byte(`not json at all`))
	if err == nil {
		t.Fatal("expected an error for a non-JSON frame")
	}
}

func TestResponseMarshalJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		resp Response
		tag  string
	}{
		{"Hello", Response{Hello: &HelloResponse{PID: 4242}}, "Hello"},
		{"HitBreakpoint", Response{HitBreakpoint: &HitBreakpointResponse{Location: 1908696}}, "HitBreakpoint"},
		{"Breaking", Response{Breaking: &BreakingResponse{Location: 1908704}}, "Breaking"},
		{"Pausing", Response{Pausing: &PausingResponse{Location: 1908712}}, "Pausing"},
		{"BreakState", Response{BreakState: &BreakStateResponse{
			Registers: []Word{1, 2, 3},
			CallStack: []Address{1908696},
		}}, "BreakState"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, err := json.Marshal(c.resp)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}

			var raw map[string]json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("Unmarshal into tag map: %v", err)
			}
			if len(raw) != 1 {
				t.Fatalf("marshaled frame has %d tags, want 1", len(raw))
			}
			payload, ok := raw[c.tag]
			if !ok {
				t.Fatalf("marshaled frame = %s, missing tag %q", data, c.tag)
			}

			switch c.name {
			case "Hello":
				var v HelloResponse
				if err := json.Unmarshal(payload, &v); err != nil {
					t.Fatalf("Unmarshal payload: %v", err)
				}
				if v != *c.resp.Hello {
					t.Errorf("got %+v, want %+v", v, *c.resp.Hello)
				}
			case "HitBreakpoint":
				var v HitBreakpointResponse
				if err := json.Unmarshal(payload, &v); err != nil {
					t.Fatalf("Unmarshal payload: %v", err)
				}
				if v != *c.resp.HitBreakpoint {
					t.Errorf("got %+v, want %+v", v, *c.resp.HitBreakpoint)
				}
			case "Breaking":
				var v BreakingResponse
				if err := json.Unmarshal(payload, &v); err != nil {
					t.Fatalf("Unmarshal payload: %v", err)
				}
				if v != *c.resp.Breaking {
					t.Errorf("got %+v, want %+v", v, *c.resp.Breaking)
				}
			case "Pausing":
				var v PausingResponse
				if err := json.Unmarshal(payload, &v); err != nil {
					t.Fatalf("Unmarshal payload: %v", err)
				}
				if v != *c.resp.Pausing {
					t.Errorf("got %+v, want %+v", v, *c.resp.Pausing)
				}
			case "BreakState":
				var v BreakStateResponse
				if err := json.Unmarshal(payload, &v); err != nil {
					t.Fatalf("Unmarshal payload: %v", err)
				}
				if len(v.Registers) != 3 || len(v.CallStack) != 1 {
					t.Errorf("got %+v, want matching slice lengths", v)
				}
			}
		})
	}
}

func TestResponseMarshalJSONRejectsEmptyVariant(t *testing.T) {
	_, err := json.Marshal(Response{})
	if err == nil {
		t.Fatal("expected an error marshaling a Response with no variant set")
	}
}
