package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/briefbot/briefbot/internal/brief"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"golang", BroadExploratory},
		{"rust news", BroadExploratory},
		{"kubernetes release updates this month", BroadExploratory},
		{"why are inference costs rising despite cheaper GPUs", ComplexAnalytical},
		{"impact of quantization on extraction accuracy", ComplexAnalytical},
		{"postgres versus mysql for analytics", ComplexAnalytical},
		{"is self-hosting worth it and when does it pay off?", ComplexAnalytical},
		{"latest electric vehicles", BroadExploratory},
	}
	for _, tt := range tests {
		got, reason := ClassifyComplexity(tt.topic)
		assert.Equal(t, tt.want, got, "topic %q (%s)", tt.topic, reason)
		assert.NotEmpty(t, reason)
	}
}

func TestClassifyStance(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"how to deploy vllm on bare metal", StanceHowTo},
		{"terraform setup walkthrough", StanceHowTo},
		{"breaking outage at major cloud provider", StanceTrending},
		{"what happened today in the chip market", StanceTrending},
		{"community sentiment on the new framework", StanceExperiential},
		{"gpu price data and statistics", StanceFactual},
		{"open source licensing debates", StanceBalanced},
	}
	for _, tt := range tests {
		got, reason := ClassifyStance(tt.topic)
		assert.Equal(t, tt.want, got, "topic %q (%s)", tt.topic, reason)
	}
}

func TestStanceRuleOrder(t *testing.T) {
	// Contains both a how-to cue and a trending cue; the earlier rule wins.
	got, _ := ClassifyStance("how to follow breaking news feeds")
	assert.Equal(t, StanceHowTo, got)
}

func TestStanceWeights(t *testing.T) {
	weights := StanceWeights(StanceHowTo)
	assert.Equal(t, 1.20, weights[brief.ChannelYouTube])
	assert.Equal(t, 0.85, weights[brief.ChannelX])

	balanced := StanceWeights(StanceBalanced)
	for _, ch := range brief.Channels() {
		assert.Equal(t, 1.0, balanced[ch], "channel %s", ch)
	}

	unknown := StanceWeights("SOMETHING_ELSE")
	for _, ch := range brief.Channels() {
		assert.Equal(t, 1.0, unknown[ch], "channel %s", ch)
	}
}
