package node

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	labels := map[string]string{"region": "eu-west"}
	n, plainToken, err := NewNode("  fra-1  ", "fra-1.example.com", labels)
	require.NoError(t, err)

	assert.Equal(t, "fra-1", n.Name())
	assert.True(t, strings.HasPrefix(n.SID(), "node_"))
	assert.True(t, strings.HasPrefix(plainToken, TokenPrefix))
	assert.Equal(t, HashToken(plainToken), n.TokenHash())
	assert.True(t, n.VerifyToken(plainToken))
	assert.False(t, n.VerifyToken(plainToken+"x"))
	assert.Nil(t, n.LastSeenAt())

	// Labels are copied in and out.
	labels["region"] = "changed"
	assert.Equal(t, "eu-west", n.Labels()["region"])
}

func TestNewNode_Validation(t *testing.T) {
	_, _, err := NewNode("   ", "", nil)
	assert.Error(t, err)

	_, _, err = NewNode(strings.Repeat("a", 101), "", nil)
	assert.Error(t, err)
}

func TestNode_SetIDAndMarkSeen(t *testing.T) {
	n, _, err := NewNode("node", "", nil)
	require.NoError(t, err)

	require.NoError(t, n.SetID(7))
	assert.Error(t, n.SetID(8))
	assert.Equal(t, uint(7), n.ID())

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	n.MarkSeen(at)
	require.NotNil(t, n.LastSeenAt())
	assert.True(t, at.Equal(*n.LastSeenAt()))
	assert.Equal(t, time.UTC, n.LastSeenAt().Location())
}

func TestReconstructNode(t *testing.T) {
	_, err := ReconstructNode(0, "node_x", "n", "", "", nil, nil, time.Now(), time.Now())
	assert.Error(t, err)

	_, err = ReconstructNode(1, "", "n", "", "", nil, nil, time.Now(), time.Now())
	assert.Error(t, err)

	n, err := ReconstructNode(1, "node_x", "n", "h", "", map[string]string{"a": "b"}, nil, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "node_x", n.SID())
}

func TestNodeToken(t *testing.T) {
	plain, token, err := GenerateNodeToken()
	require.NoError(t, err)
	assert.True(t, token.Verify(plain))
	assert.False(t, token.Verify("node_"+plain))

	restored, err := NewNodeToken(strings.ToUpper(token.Hash()))
	require.NoError(t, err)
	assert.True(t, restored.Verify(plain))

	_, err = NewNodeToken("abc")
	assert.Error(t, err)
	_, err = NewNodeToken(strings.Repeat("z", 64))
	assert.Error(t, err)
}
