package legacystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegalTransitionsAllowNewToTerminal(t *testing.T) {
	assert.True(t, legalTransitions[StatusNew][StatusConfirmed])
	assert.True(t, legalTransitions[StatusNew][StatusDismissed])
}

func TestLegalTransitionsRejectTerminalStates(t *testing.T) {
	assert.False(t, legalTransitions[StatusConfirmed][StatusDismissed])
	assert.False(t, legalTransitions[StatusDismissed][StatusConfirmed])
	assert.False(t, legalTransitions[StatusConfirmed][StatusNew])
}
