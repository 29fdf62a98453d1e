// Package genai produces multiple-choice questions through an
// OpenAI-compatible chat API. The rest of the backend consumes the
// Generator interface and treats every call as slow and fallible.
package genai

import (
	"context"
	"strings"

	"github.com/prepdeck/backend/internal/model"
)

// Generator produces a question for a (subject, topic) pair.
type Generator interface {
	// Generate returns a validated question or a *apperr.GenerationError.
	// Implementations must honor ctx cancellation and deadlines.
	Generate(ctx context.Context, subject, topic string) (model.Question, error)
}

// Profile selects which underlying model handles a subject.
type Profile string

const (
	// ProfileCore handles STEM and everything not claimed by humanities.
	ProfileCore Profile = "core"
	// ProfileHumanities handles humanities and social-science subjects.
	ProfileHumanities Profile = "humanities"
)

// humanitiesMarkers are lowercase substrings that classify a subject
// as humanities/social science.
var humanitiesMarkers = []string{
	"history",
	"english",
	"literature",
	"language",
	"psychology",
	"government",
	"politics",
	"geography",
	"economics",
	"art",
}

// SelectProfile maps a subject to its generation profile. Pure and
// deterministic: same subject always yields the same profile.
func SelectProfile(subject string) Profile {
	s := strings.ToLower(subject)
	for _, marker := range humanitiesMarkers {
		if strings.Contains(s, marker) {
			return ProfileHumanities
		}
	}
	return ProfileCore
}

// Config holds generation parameters set via CLI flags.
type Config struct {
	BaseURL         string
	APIKey          string
	CoreModel       string // model for ProfileCore subjects
	HumanitiesModel string // model for ProfileHumanities subjects
	Temperature     float32
	MaxTokens       int
}

// ModelFor returns the configured model name for the subject's profile.
func (c Config) ModelFor(subject string) string {
	if SelectProfile(subject) == ProfileHumanities {
		return c.HumanitiesModel
	}
	return c.CoreModel
}
