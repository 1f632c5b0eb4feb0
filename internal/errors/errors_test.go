package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestPackError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *PackError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestPackError_WithContext(t *testing.T) {
	err := New(CategoryHandler, SeverityFatal, "handler failed").
		WithContext("stage", "Compile").
		WithContext("phase", "before")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}

	if err.Context["stage"] != "Compile" {
		t.Errorf("Context[stage] = %v, want Compile", err.Context["stage"])
	}

	if err.Context["phase"] != "before" {
		t.Errorf("Context[phase] = %v, want before", err.Context["phase"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	hostErr := HostFailed("Compile", fmt.Errorf("disk full"))
	standardErr := fmt.Errorf("standard error")
	wrapped := fmt.Errorf("outer: %w", configErr)
	joined := stdErrors.Join(standardErr, ValidationFailed("bump", nil))

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match host category", configErr, CategoryHost, false},
		{"host error matches host category", hostErr, CategoryHost, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
		{"wrapped config error matches", wrapped, CategoryConfig, true},
		{"joined error matches member", joined, CategoryValidation, true},
		{"nil error", nil, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(fmt.Errorf("wrap: %w", HandlerFailed("Compile", "after", 0, fmt.Errorf("x")))); got != CategoryHandler {
		t.Errorf("GetCategory() = %v, want %v", got, CategoryHandler)
	}
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory() = %v, want %v", got, CategoryInternal)
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("ConfigNotFound", func(t *testing.T) {
		err := ConfigNotFound("/path/to/packhooks.yaml")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/path/to/packhooks.yaml" {
			t.Errorf("Context[path] = %v, want /path/to/packhooks.yaml", err.Context["path"])
		}
	})

	t.Run("HandlerFailed", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := HandlerFailed("PackageEmit", "before", 1, cause)
		if err.Category != CategoryHandler {
			t.Errorf("Category = %v, want %v", err.Category, CategoryHandler)
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		err := ValidationFailed("copyFile", []string{"/assets: missing property"})
		if err.Category != CategoryValidation {
			t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
		}
		if err.Context["selector"] != "copyFile" {
			t.Errorf("Context[selector] = %v, want copyFile", err.Context["selector"])
		}
		want := `configuration for job "copyFile" is invalid: /assets: missing property`
		if err.Message != want {
			t.Errorf("Message = %q, want %q", err.Message, want)
		}
	})
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := map[error]int{
		nil:                                     0,
		fmt.Errorf("plain"):                     1,
		UnknownJob("nope"):                      7,
		ValidationFailed("bump", nil):           2,
		HostFailed("Compile", fmt.Errorf("x")):  11,
		InternalError("bug", fmt.Errorf("bad")): 10,
	}
	for err, want := range cases {
		if got := a.ExitCodeFor(err); got != want {
			t.Errorf("ExitCodeFor(%v) = %d, want %d", err, got, want)
		}
	}
}
