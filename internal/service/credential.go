package service

import (
	"crypto/subtle"
)

// Credential 自动充值通道携带的凭证
type Credential string

type CredentialVerifier interface {
	Verify(c Credential) error
}

// SharedSecret 与配置中的共享密钥比较；密钥为空时拒绝所有请求
type SharedSecret struct {
	secret []byte
}

func NewSharedSecret(secret string) *SharedSecret {
	return &SharedSecret{secret: []byte(secret)}
}

func (s *SharedSecret) Verify(c Credential) error {
	if len(s.secret) == 0 || subtle.ConstantTimeCompare(s.secret, []byte(c)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
