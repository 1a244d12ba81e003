package guardrails_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dcmio/dcm/internal/guardrails"
)

func TestPendingProposalHardBlocks(t *testing.T) {
	r := guardrails.NewRunner()
	out := r.Run(&guardrails.GuardContext{HasPendingProposal: true}, guardrails.PublishGuards())
	assert.True(t, out.Blocked)
	require := out.HardBlocks()
	assert.Len(t, require, 1)
	assert.Equal(t, "pending_proposal_exists", require[0].GuardName)
}

func TestSameVersionHardBlocks(t *testing.T) {
	r := guardrails.NewRunner()
	out := r.Run(&guardrails.GuardContext{
		HasCurrentContract: true,
		CurrentVersion:     "1.0.0",
		ProposedVersion:    "1.0.0",
	}, guardrails.PublishGuards())
	assert.True(t, out.Blocked)
}

func TestMajorWithoutForceIsWarningNotBlocked(t *testing.T) {
	r := guardrails.NewRunner()
	out := r.Run(&guardrails.GuardContext{
		HasCurrentContract: true,
		CurrentVersion:     "1.0.0",
		ProposedVersion:    "2.0.0",
		Severity:           "major",
		Force:              false,
	}, guardrails.PublishGuards())
	assert.False(t, out.Blocked)
	assert.Len(t, out.Warnings(), 1)
}

func TestCleanPublishHasNoFailures(t *testing.T) {
	r := guardrails.NewRunner()
	out := r.Run(&guardrails.GuardContext{
		HasCurrentContract:  true,
		CurrentVersion:      "1.0.0",
		ProposedVersion:     "1.1.0",
		Severity:            "minor",
		ActiveConsumerCount: 3,
	}, guardrails.PublishGuards())
	assert.False(t, out.Blocked)
	for _, res := range out.Results {
		assert.True(t, res.Passed, res.GuardName)
	}
}

func TestFormatBlockMessageNamesBlockingGuard(t *testing.T) {
	r := guardrails.NewRunner()
	out := r.Run(&guardrails.GuardContext{HasPendingProposal: true}, guardrails.PublishGuards())
	msg := out.FormatBlockMessage()
	assert.Contains(t, msg, "pending_proposal_exists")
}
