package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedSecret(t *testing.T) {
	v := NewSharedSecret("k1")
	assert.NoError(t, v.Verify("k1"))
	assert.ErrorIs(t, v.Verify("k2"), ErrUnauthorized)
	assert.ErrorIs(t, v.Verify(""), ErrUnauthorized)

	// 未配置密钥时全部拒绝
	assert.ErrorIs(t, NewSharedSecret("").Verify(""), ErrUnauthorized)
}
