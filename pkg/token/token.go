package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"StaySafe/config"
)

// 身份平台（Firebase 等）签发的 ID token 校验。
// 服务本身不签发 token，只在开启 IDENTITY_VERIFY_ENABLED 时校验 subject。

var (
	verifier     *Verifier
	verifierOnce sync.Once
	verifierErr  error
)

type Verifier struct {
	key []byte
}

func Init() error {
	verifierOnce.Do(func() {
		if !config.Cfg.IdentityVerifyEnabled {
			return // 校验关闭时不需要密钥
		}

		if config.Cfg.IdentityJWTSecret == "" {
			verifierErr = errors.New("identity JWT secret is empty")
			return
		}

		verifier = &Verifier{key: []byte(config.Cfg.IdentityJWTSecret)}
	})

	return verifierErr
}

func GetVerifier() *Verifier {
	return verifier
}

// VerifySubject 校验 token 并返回其 subject（即身份平台签发的 userId）。
func (v *Verifier) VerifySubject(tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse identity token: %w", err)
	}

	if !parsed.Valid {
		return "", errors.New("identity token is invalid")
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("identity token has no subject: %w", err)
	}

	return subject, nil
}
