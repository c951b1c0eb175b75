package insight

import (
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
)

func TestLinesUnmarshalIsLenient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Lines
	}{
		{name: "array", in: `{"insights":["a","b"]}`, want: Lines{"a", "b"}},
		{name: "single string", in: `{"insights":"only one"}`, want: Lines{"only one"}},
		{name: "null", in: `{"insights":null}`, want: Lines{}},
		{name: "blank entries dropped", in: `{"insights":["a","  ",null,"b"]}`, want: Lines{"a", "b"}},
		{name: "numbers stringified", in: `{"insights":[27.5,true]}`, want: Lines{"27.5", "true"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var team TeamInsight
			if err := sonic.UnmarshalString(tc.in, &team); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !sameLines(team.Insights, tc.want) {
				t.Fatalf("got %#v want %#v", team.Insights, tc.want)
			}
		})
	}
}

func sameLines(a, b Lines) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func TestPayloadUseful(t *testing.T) {
	t.Parallel()

	var nilPayload *Payload
	if nilPayload.Useful() {
		t.Fatalf("nil payload must not be useful")
	}
	if (&Payload{}).Useful() {
		t.Fatalf("empty payload must not be useful")
	}
	if !(&Payload{Players: map[string]PlayerInsight{"A": {}}}).Useful() {
		t.Fatalf("payload with a player must be useful")
	}
	if !(&Payload{Team2: TeamInsight{Weaknesses: Lines{"x"}}}).Useful() {
		t.Fatalf("payload with team content must be useful")
	}
	if (&Payload{Venue: &VenueInsight{Insights: Lines{"v"}}}).Useful() {
		t.Fatalf("venue content alone must not count as useful")
	}
}

func TestPayloadCloneIsDeep(t *testing.T) {
	t.Parallel()

	original := &Payload{
		Players: map[string]PlayerInsight{"A": {Insights: Lines{"x"}}},
		Team1:   TeamInsight{Strengths: Lines{"s"}},
		Venue:   &VenueInsight{Characteristics: Lines{"c"}},
	}
	clone := original.Clone()
	clone.Players["A"].Insights[0] = "changed"
	clone.Team1.Strengths[0] = "changed"
	clone.Venue.Characteristics[0] = "changed"

	if original.Players["A"].Insights[0] != "x" || original.Team1.Strengths[0] != "s" || original.Venue.Characteristics[0] != "c" {
		t.Fatalf("clone shares memory with original: %+v", original)
	}
}

func TestPayloadNormalizeFillsEmptyLists(t *testing.T) {
	t.Parallel()

	p := &Payload{Players: map[string]PlayerInsight{"A": {}}}
	p.Normalize()

	raw, err := sonic.MarshalString(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"players":{"A":{"insights":[],"strengths":[],"weaknesses":[]}},"team1":{"insights":[],"strengths":[],"weaknesses":[]},"team2":{"insights":[],"strengths":[],"weaknesses":[]}}`
	if raw != want {
		t.Fatalf("unexpected encoding\n got: %s\nwant: %s", raw, want)
	}
}
