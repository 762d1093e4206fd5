package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("enquiry-concerning")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	assert.True(t, Verify("enquiry-concerning", encoded))
	assert.False(t, Verify("treatise-of-human", encoded))
	assert.False(t, Verify("enquiry-concerning", "$bcrypt$nope"))
}

func TestHashUsesFreshSalt(t *testing.T) {
	first, err := Hash("same-password")
	require.NoError(t, err)
	second, err := Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate("short"), ErrTooShort)
	assert.ErrorIs(t, Validate("        "), ErrTooShort)
	assert.ErrorIs(t, Validate(strings.Repeat("x", MaxLength+1)), ErrTooLong)
	assert.NoError(t, Validate("long-enough"))
}
