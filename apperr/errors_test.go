package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("load post: %w", NotFound("post", 7))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped not found to match sentinel")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("not found must not match validation")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{Validation("title is required"), KindValidation},
		{InvalidNesting(3), KindInvalidNesting},
		{fmt.Errorf("x: %w", Forbidden("nope")), KindForbidden},
		{errors.New("boom"), KindInternal},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Fatalf("KindOf(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestError_Message(t *testing.T) {
	e := External("classifier", errors.New("timeout"))
	if e.Error() != "classifier: timeout" {
		t.Fatalf("unexpected message %q", e.Error())
	}
	if !errors.Is(e, ErrExternal) {
		t.Fatalf("expected external kind")
	}
}
