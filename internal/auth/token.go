package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jws"
	"github.com/lestrrat-go/jwx/jwt"
)

const (
	EncryptionAlgorithmDefault = jwa.RS512
	IssuerDefault              = "clinic_scheduler"
	AudienceDefault            = "clinic_scheduler"
	AccessTokenType            = "access"
	RefreshTokenType           = "refresh"
	AccessTokenExpiration      = 5 * time.Minute
	RefreshTokenExpiration     = 24 * time.Hour
)

// newJwtToken creates a signed-ready token of the given type for the given user.
func newJwtToken(user User, tokenType string, expiration time.Duration) (jwt.Token, error) {
	jwtToken := jwt.New()
	claims := map[string]interface{}{
		jwt.IssuerKey:     IssuerDefault,
		jwt.AudienceKey:   []string{AudienceDefault},
		jwt.SubjectKey:    user.UUID.String(),
		jwt.JwtIDKey:      uuid.NewString(),
		jwt.IssuedAtKey:   time.Now(),
		jwt.ExpirationKey: time.Now().Add(expiration),
		"typ":             tokenType,
		"role":            user.Role,
	}
	for key, value := range claims {
		if err := jwtToken.Set(key, value); err != nil {
			return nil, err
		}
	}
	return jwtToken, nil
}

// generateTokenHeaders generates the token headers based on the given private key,
// using the key's thumbprint as key id.
func generateTokenHeaders(privateKey rsa.PrivateKey) (jws.Headers, error) {
	jwKey, err := jwk.New(privateKey)
	if err != nil {
		return nil, err
	}
	thumbprint, err := jwKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, err
	}
	headers := jws.NewHeaders()
	if err = headers.Set(jws.KeyIDKey, hex.EncodeToString(thumbprint)); err != nil {
		return nil, err
	}
	return headers, nil
}

// SignToken signs the given token using the given private key.
func SignToken(token jwt.Token, privateKey rsa.PrivateKey) (string, error) {
	headers, err := generateTokenHeaders(privateKey)
	if err != nil {
		return "", err
	}
	signedToken, err := jwt.Sign(token, EncryptionAlgorithmDefault, privateKey, jwt.WithHeaders(headers))
	if err != nil {
		return "", err
	}
	return string(signedToken), nil
}

// ParseToken parses the token using the public key and returns the parsed token, otherwise an error.
func ParseToken(token string, publicKey rsa.PublicKey) (jwt.Token, error) {
	parsedToken, err := jwt.Parse([]byte(token), jwt.WithVerify(EncryptionAlgorithmDefault, publicKey))
	if err != nil {
		return nil, err
	}
	return parsedToken, nil
}

// GenerateTokens generates access and refresh Tokens for the given user.
func GenerateTokens(ctx context.Context, privateKey rsa.PrivateKey, user User) (*Tokens, error) {
	accessToken, err := newJwtToken(user, AccessTokenType, AccessTokenExpiration)
	if err != nil {
		return nil, err
	}
	signedAccessToken, err := SignToken(accessToken, privateKey)
	if err != nil {
		return nil, err
	}
	refreshToken, err := newJwtToken(user, RefreshTokenType, RefreshTokenExpiration)
	if err != nil {
		return nil, err
	}
	signedRefreshToken, err := SignToken(refreshToken, privateKey)
	if err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:  signedAccessToken,
		RefreshToken: signedRefreshToken,
	}, nil
}

// MustGenerateTokens generates Tokens for the given user and if any error occurs, will panic.
func MustGenerateTokens(ctx context.Context, privateKey rsa.PrivateKey, user User) *Tokens {
	tokens, err := GenerateTokens(ctx, privateKey, user)
	if err != nil {
		panic(err)
	}
	return tokens
}
