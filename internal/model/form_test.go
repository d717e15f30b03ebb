package model

import "testing"

func TestFormState_SubmitThenFail_ReturnsToIdleWithError(t *testing.T) {
	f := NewFormState()

	f.Submit()
	if f.Status != FormSubmitting {
		t.Errorf("Status = %q, want %q", f.Status, FormSubmitting)
	}

	f.Fail("INVALID_PASSWORD")

	if f.Status != FormIdle {
		t.Errorf("Status = %q, want %q", f.Status, FormIdle)
	}
	if f.Error != "INVALID_PASSWORD" {
		t.Errorf("Error = %q, want %q", f.Error, "INVALID_PASSWORD")
	}
}

func TestFormState_ErrorRetainedUntilNextSubmit(t *testing.T) {
	f := NewFormState()
	f.Submit()
	f.Fail("EMAIL_NOT_FOUND")

	// 再送信するまでエラー文言は残る
	if f.Error != "EMAIL_NOT_FOUND" {
		t.Fatalf("Error = %q, want retained", f.Error)
	}

	f.Submit()
	if f.Error != "" {
		t.Errorf("Error = %q, want cleared on submit", f.Error)
	}
}

func TestFormState_SubmitAfterSuccess_ClearsNotice(t *testing.T) {
	f := NewFormState()
	f.Submit()
	f.Succeed(PasswordResetSentMessage)

	f.Submit()
	if f.Status != FormSubmitting {
		t.Errorf("Status = %q, want %q", f.Status, FormSubmitting)
	}
	if f.Notice != "" {
		t.Errorf("Notice = %q, want cleared on submit", f.Notice)
	}
}

func TestFormState_Succeed_SetsNotice(t *testing.T) {
	f := NewFormState()
	f.Submit()
	f.Succeed(PasswordResetSentMessage)

	if f.Status != FormSucceeded {
		t.Errorf("Status = %q, want %q", f.Status, FormSucceeded)
	}
	if f.Notice != PasswordResetSentMessage {
		t.Errorf("Notice = %q, want %q", f.Notice, PasswordResetSentMessage)
	}
}

func TestFormState_Reject_DoesNotEnterSubmitting(t *testing.T) {
	f := NewFormState()
	f.Reject(PasswordMismatchMessage)

	if f.Status != FormIdle {
		t.Errorf("Status = %q, want %q", f.Status, FormIdle)
	}
	if f.Error != "Passwords do not match!" {
		t.Errorf("Error = %q", f.Error)
	}
}
