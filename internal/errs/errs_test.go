package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyKnown(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NotFound("function %q", "Foo"), KindNotFound},
		{Duplicate("detour %q", "Bar"), KindDuplicate},
		{AccessViolation("read at 0x%x", 0x1000), KindAccessViolation},
		{Timeout("call exceeded deadline"), KindTimeout},
		{ErrShuttingDown, KindShuttingDown},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestClassifyUnknownDefaultsInternal(t *testing.T) {
	if got := Classify(errors.New("boom")); got != KindInternal {
		t.Errorf("Classify(plain error) = %v, want Internal", got)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != KindNone {
		t.Errorf("Classify(nil) = %v, want None", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("access violation at step 2")
	wrapped := Wrap(KindAccessViolation, cause)
	if !errors.Is(wrapped, cause) {
		t.Errorf("errors.Is should see through Wrap to the cause")
	}
	if Classify(wrapped) != KindAccessViolation {
		t.Errorf("wrapped kind mismatch")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindInternal, nil) != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}

func TestMessageTruncationCaller(t *testing.T) {
	e := InvalidArgument("bad size %d", 12345)
	msg := Message(e)
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	if msg != fmt.Sprintf("bad size %d", 12345) {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestKindStringUnknown(t *testing.T) {
	if s := Kind(999).String(); s == "" {
		t.Errorf("expected non-empty string for unknown kind")
	}
}
