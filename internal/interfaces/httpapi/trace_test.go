package httpapi

import "testing"

func TestShouldCreateHTTPAPISpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "handler span", in: "httpapi.Handler.GenerateInsights", want: true},
		{name: "middleware span", in: "httpapi.RequestLogging", want: false},
		{name: "helper span", in: "httpapi.writeError", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldCreateHTTPAPISpan(tt.in)
			if got != tt.want {
				t.Fatalf("shouldCreateHTTPAPISpan(%q)=%v want=%v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInsightAttributes(t *testing.T) {
	attrs := insightAttributes(" NBA ", false, 3)
	if len(attrs) != 3 {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
	if attrs[0].Value.AsString() != "nba" || attrs[1].Value.AsBool() || attrs[2].Value.AsInt64() != 3 {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}
