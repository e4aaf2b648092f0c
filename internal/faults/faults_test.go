package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfClassifiesFaults(t *testing.T) {
	fault := New(KindForbidden, "no access")
	if KindOf(fault) != KindForbidden {
		t.Fatalf("expected forbidden kind, got %s", KindOf(fault))
	}
	if !IsKind(fault, KindForbidden) {
		t.Fatalf("expected IsKind to match")
	}
}

func TestKindOfWrappedFaultSurvivesAnnotation(t *testing.T) {
	fault := New(KindConflict, "username taken")
	annotated := fmt.Errorf("register: %w", fault)
	if KindOf(annotated) != KindConflict {
		t.Fatalf("expected conflict kind through wrap, got %s", KindOf(annotated))
	}
	if Message(annotated) != "username taken" {
		t.Fatalf("unexpected message: %q", Message(annotated))
	}
}

func TestKindOfUnknownErrorIsInternal(t *testing.T) {
	if KindOf(errors.New("disk on fire")) != KindInternal {
		t.Fatalf("expected internal kind for plain error")
	}
}

func TestWrapRetainsCause(t *testing.T) {
	cause := errors.New("constraint failed")
	fault := Wrap(KindConflict, "duplicate grant", cause)
	if !errors.Is(fault, cause) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
	if fault.Message() != "duplicate grant" {
		t.Fatalf("unexpected message: %q", fault.Message())
	}
	if fault.Error() == fault.Message() {
		t.Fatalf("expected Error to append the cause")
	}
}
