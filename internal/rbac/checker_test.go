package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "session:enter", true},
		{"student", "session:answer", true},
		{"student", "bank:create", false},
		{"student", "grading:override", false},
		{"teacher", "bank:trash", true},
		{"teacher", "session:monitor", true},
		{"teacher", "session:enter", false},
		{"admin", "anything:at-all", true},
		{"", "session:enter", false},
		{"ghost", "session:enter", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerWildcardPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{"grader": {"grading:*"}})
	if !c.Has("grader", "grading:override") {
		t.Error("prefix wildcard did not match")
	}
	if c.Has("grader", "bank:view") {
		t.Error("prefix wildcard matched outside its prefix")
	}
}

func TestCheckerAnyAll(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("student", "bank:create", "session:enter") {
		t.Error("Any missed a held permission")
	}
	if c.Any("student", "bank:create", "bank:view") {
		t.Error("Any granted unheld permissions")
	}
	if !c.All("teacher", "bank:view", "exam:view") {
		t.Error("All rejected held permissions")
	}
	if c.All("teacher", "bank:view", "session:enter") {
		t.Error("All granted a missing permission")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithSubject(WithRole(context.Background(), "teacher"), "u1")
	if RoleFromContext(ctx) != "teacher" {
		t.Error("role lost")
	}
	if SubjectFromContext(ctx) != "u1" {
		t.Error("subject lost")
	}
	if RoleFromContext(context.Background()) != "" || SubjectFromContext(context.Background()) != "" {
		t.Error("empty context should yield empty values")
	}
}

func TestRequireMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Require("bank:create")(next)

	cases := []struct {
		role string
		want int
	}{
		{"teacher", http.StatusNoContent},
		{"admin", http.StatusNoContent},
		{"student", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/bank-items", nil)
		if tc.role != "" {
			req = req.WithContext(WithRole(req.Context(), tc.role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("role %q: status = %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}
