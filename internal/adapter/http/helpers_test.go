package http

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opengrants/councild/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("get proposal abc: %w", domain.ErrNotFound),
			wantStatus: 404,
			wantMsg:    "proposal not found",
		},
		{
			name:       "evaluation active",
			err:        fmt.Errorf("proposal abc: %w", domain.ErrEvaluationActive),
			wantStatus: 409,
			wantMsg:    "evaluation already in progress for this proposal",
		},
		{
			name:       "conflict keeps context",
			err:        fmt.Errorf("decision abc already ruled on: %w", domain.ErrConflict),
			wantStatus: 409,
			wantMsg:    "decision abc already ruled on",
		},
		{
			name:       "invalid keeps context",
			err:        fmt.Errorf("reviewer is required: %w", domain.ErrInvalid),
			wantStatus: 400,
			wantMsg:    "reviewer is required",
		},
		{
			name:       "malformed uuid from postgres",
			err:        fmt.Errorf(`ERROR: invalid input syntax for type uuid: "abc"`),
			wantStatus: 400,
			wantMsg:    "invalid identifier format",
		},
		{
			name:       "unknown error hides detail",
			err:        fmt.Errorf("connection refused"),
			wantStatus: 500,
			wantMsg:    "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err, "proposal not found")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantMsg {
				t.Errorf("message = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"title": "Indexer"}`))
	w := httptest.NewRecorder()
	v, ok := readJSON[payload](w, r)
	if !ok || v.Title != "Indexer" {
		t.Fatalf("readJSON = %+v, ok=%v", v, ok)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"title":`))
	w = httptest.NewRecorder()
	if _, ok := readJSON[payload](w, r); ok {
		t.Fatal("malformed body accepted")
	}
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"title": "`+strings.Repeat("a", maxBodyBytes+16)+`"}`))
	w = httptest.NewRecorder()
	if _, ok := readJSON[payload](w, r); ok {
		t.Fatal("oversized body accepted")
	}
	if w.Code != 413 {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=25&bad=x&neg=-3", nil)
	if got := queryInt(r, "limit", 50); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
	if got := queryInt(r, "missing", 50); got != 50 {
		t.Errorf("missing = %d, want default 50", got)
	}
	if got := queryInt(r, "bad", 50); got != 50 {
		t.Errorf("bad = %d, want default 50", got)
	}
	if got := queryInt(r, "neg", 50); got != 50 {
		t.Errorf("neg = %d, want default 50", got)
	}
}
