package http

import (
	"errors"
	"fmt"
	"testing"

	"practice-engine/internal/domain"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrScenarioNotFound, codeNotFound},
		{fmt.Errorf("load: %w", domain.ErrRunNotFound), codeNotFound},
		{&domain.NetworkError{Op: "load scenario", StatusCode: 502}, codeNetwork},
		{domain.ErrNoQuestions, codeNoQuestions},
		{domain.ErrRunFinished, codeRunNotActive},
		{domain.ErrQuestionLocked, codeQuestionLocked},
		{domain.ErrEmptyAnswer, codeInvalidRequest},
		{domain.ErrPieceMismatch, codeInvalidRequest},
		{errors.New("boom"), codeInternal},
	}
	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.want {
			t.Errorf("errorCode(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}

	if p := toErrorPayload(errors.New("secret detail")); p.Message != "internal error" {
		t.Fatalf("internal errors must not leak details, got %q", p.Message)
	}
}
