package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashCredential(t *testing.T) {
	// sha256("secret1")
	assert.Equal(t, "5b11618c2e44027877d0cd0921ed166b9f176f50587fc91e7534dd2946db77d6", HashCredential("secret1"))
	assert.Equal(t, HashCredential("secret1"), HashCredential("secret1"))
	assert.NotEqual(t, HashCredential("secret1"), HashCredential("secret2"))
	assert.Len(t, HashCredential(""), 64)
}

func TestCustomer_CredentialMatches(t *testing.T) {
	c := Customer{ID: 1, DisplayName: "Ivan", Phone: "+79990000000", CredentialHash: HashCredential("secret1")}

	assert.True(t, c.CredentialMatches("secret1"))
	assert.False(t, c.CredentialMatches("secret2"))
}
