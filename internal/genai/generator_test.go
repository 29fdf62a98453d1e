package genai

import (
	"strings"
	"testing"
)

func TestSelectProfile(t *testing.T) {
	tests := []struct {
		subject string
		want    Profile
	}{
		{"AP US History", ProfileHumanities},
		{"AP World History", ProfileHumanities},
		{"AP English Literature", ProfileHumanities},
		{"AP Psychology", ProfileHumanities},
		{"AP Human Geography", ProfileHumanities},
		{"AP US Government", ProfileHumanities},
		{"AP Macroeconomics", ProfileHumanities},
		{"AP Art History", ProfileHumanities},
		{"ap spanish language", ProfileHumanities},
		{"AP Biology", ProfileCore},
		{"AP Chemistry", ProfileCore},
		{"AP Physics 1", ProfileCore},
		{"AP Calculus BC", ProfileCore},
		{"AP Computer Science A", ProfileCore},
		{"AP Statistics", ProfileCore},
		{"", ProfileCore},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := SelectProfile(tt.subject); got != tt.want {
				t.Errorf("SelectProfile(%q) = %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestSelectProfileDeterministic(t *testing.T) {
	for range 10 {
		if SelectProfile("AP Psychology") != ProfileHumanities {
			t.Fatal("SelectProfile is not deterministic")
		}
	}
}

func TestModelFor(t *testing.T) {
	cfg := Config{CoreModel: "core-model", HumanitiesModel: "hum-model"}
	if got := cfg.ModelFor("AP Biology"); got != "core-model" {
		t.Errorf("ModelFor(AP Biology) = %q", got)
	}
	if got := cfg.ModelFor("AP US History"); got != "hum-model" {
		t.Errorf("ModelFor(AP US History) = %q", got)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	t.Run("with topic", func(t *testing.T) {
		p := buildUserPrompt("AP Biology", "Unit 3")
		if !strings.Contains(p, "AP Biology") {
			t.Error("prompt should contain subject")
		}
		if !strings.Contains(p, "Unit 3") {
			t.Error("prompt should contain unit")
		}
	})

	t.Run("without topic", func(t *testing.T) {
		p := buildUserPrompt("AP Biology", "")
		if strings.Contains(p, "UNIT:") {
			t.Error("prompt should omit unit line when topic is empty")
		}
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	p := buildSystemPrompt()
	for _, field := range []string{"prompt", "option_a", "option_d", "correct_option", "explanation"} {
		if !strings.Contains(p, field) {
			t.Errorf("system prompt missing field %q", field)
		}
	}
}
