package proposal

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusEvaluating, true},
		{StatusEvaluating, StatusDeliberating, true},
		{StatusDeliberating, StatusAutoApproved, true},
		{StatusDeliberating, StatusAutoRejected, true},
		{StatusDeliberating, StatusNeedsReview, true},
		{StatusNeedsReview, StatusApproved, true},
		{StatusNeedsReview, StatusRejected, true},
		{StatusAutoApproved, StatusRejected, true}, // human override
		{StatusAutoRejected, StatusApproved, true}, // human override
		{StatusPending, StatusApproved, false},
		{StatusPending, StatusDeliberating, false},
		{StatusEvaluating, StatusAutoApproved, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusAutoApproved, StatusNeedsReview} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCreateRequestValidate(t *testing.T) {
	valid := CreateRequest{Title: "Indexer", TeamName: "Acme", FundingRequested: 5000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing title", CreateRequest{TeamName: "Acme"}},
		{"missing team", CreateRequest{Title: "Indexer"}},
		{"negative funding", CreateRequest{Title: "Indexer", TeamName: "Acme", FundingRequested: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOutcomeValid(t *testing.T) {
	if !OutcomeSuccess.Valid() || !OutcomeFailure.Valid() {
		t.Error("known outcomes must be valid")
	}
	if Outcome("partial").Valid() {
		t.Error("unknown outcome must be invalid")
	}
}
