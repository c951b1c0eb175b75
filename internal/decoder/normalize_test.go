package decoder

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced with prose",
			in:   "Here is the analysis:\n```json\n{\"team1\": {\"insights\": [\"a\"]}}\n```\nLet me know if you need more.",
			want: `{"team1": {"insights": ["a"]}}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "stray json token",
			in:   "json\n{\"a\":1}",
			want: `{"a":1}`,
		},
		{
			name: "typographic punctuation",
			in:   "{\"t\":\"8 – 2 run… it’s “big” — yes\"}",
			want: `{"t":"8 - 2 run... it's "big" - yes"}`,
		},
		{
			name: "control characters",
			in:   "{\"a\":\"x\x01\x1fy\"}\t",
			want: `{"a":"xy"}`,
		},
		{
			name: "no braces is returned trimmed",
			in:   "  the model had nothing to say  ",
			want: "the model had nothing to say",
		},
		{
			name: "unclosed object is not sliced",
			in:   "Sure! {\"players\":{\"A\":{\"insights\":[\"x\"",
			want: "Sure! {\"players\":{\"A\":{\"insights\":[\"x\"",
		},
		{
			name: "trailing partial content after last brace is dropped",
			in:   "{\"players\":{\"A\":{\"insights\":[\"x\"]}},\"team1\":{\"insi",
			want: `{"players":{"A":{"insights":["x"]}}`,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("normalize mismatch\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeThenAsIsRecoversEmbeddedObject(t *testing.T) {
	t.Parallel()

	embedded := `{"players":{"LeBron James":{"insights":["27.1 PPG"],"strengths":[],"weaknesses":[]}},"team1":{"insights":[],"strengths":[],"weaknesses":[]},"team2":{"insights":[],"strengths":[],"weaknesses":[]}}`
	wrappers := []struct{ before, after string }{
		{"", ""},
		{"```json\n", "\n```"},
		{"Here you go:\n```json\n", "\n```\nHope this helps!"},
		{"Analysis follows. ", " End of analysis."},
	}

	for _, w := range wrappers {
		repaired, ok := DefaultCascade().Repair(Normalize(w.before + embedded + w.after))
		if !ok {
			t.Fatalf("expected repair success for wrapper %q", w.before)
		}
		if repaired.Stage != StageAsIs {
			t.Fatalf("expected as_is stage, got %s", repaired.Stage)
		}
		if repaired.Text != embedded {
			t.Fatalf("embedded object mismatch: %q", repaired.Text)
		}
	}
}
