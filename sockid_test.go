// SPDX-License-Identifier: GPL-3.0-or-later

package evsock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSockID(t *testing.T) {
	sockID := NewSockID()

	// Should be a valid UUID string
	parsed, err := uuid.Parse(sockID)
	require.NoError(t, err)

	// Should be version 7 (time-ordered)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestNewSockIDUniqueness(t *testing.T) {
	// Generate multiple socket IDs and verify they're all unique
	const count = 100
	seen := make(map[string]struct{}, count)

	for range count {
		sockID := NewSockID()
		_, duplicate := seen[sockID]
		require.False(t, duplicate, "duplicate socket ID generated: %s", sockID)
		seen[sockID] = struct{}{}
	}
}
