package exitcode

import "testing"

func TestExitCodeConstants(t *testing.T) {
	if Success != 0 {
		t.Errorf("Success = %v, expected 0", Success)
	}
	if GeneralError != 1 {
		t.Errorf("GeneralError = %v, expected 1", GeneralError)
	}
	if ConfigError != 2 {
		t.Errorf("ConfigError = %v, expected 2", ConfigError)
	}
	if DetectionError != 3 {
		t.Errorf("DetectionError = %v, expected 3", DetectionError)
	}
}

func TestStringCoversAllCodes(t *testing.T) {
	for _, code := range []int{Success, GeneralError, ConfigError, DetectionError, FileSystemError, SinkError, TimeoutError, ToolNotFound} {
		if String(code) == "Unknown error" {
			t.Errorf("code %d has no description", code)
		}
	}
	if String(42) != "Unknown error" {
		t.Errorf("unexpected description for unknown code")
	}
}
