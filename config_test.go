package morphgen

import "testing"

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("zero config Validate() = %v", err)
	}
	if err := (Config{Concurrency: 4}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	err := (Config{Concurrency: -1}).Validate()
	if err == nil {
		t.Fatal("negative concurrency Validate() = nil")
	}
	if envelope := AsError(err); envelope.Code != CodeInvalidArgument {
		t.Errorf("code = %q, want %q", envelope.Code, CodeInvalidArgument)
	}
}

func TestConfigDefaults(t *testing.T) {
	got := Config{}.applyDefaults()
	if got.Logger == nil {
		t.Error("Logger default not applied")
	}
	if got.Concurrency <= 0 {
		t.Errorf("Concurrency = %d, want positive default", got.Concurrency)
	}

	kept := Config{Concurrency: 3}.applyDefaults()
	if kept.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want caller value kept", kept.Concurrency)
	}
}
