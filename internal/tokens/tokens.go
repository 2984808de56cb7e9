package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: bad signature,
// malformed token, wrong signing method, expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer mints access/refresh pairs. The two kinds are signed with
// distinct secrets so a leaked access token cannot be replayed as a
// refresh token.
type Issuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

func (i *Issuer) IssuePair(userID, deviceID string) (*Pair, error) {
	access, err := i.sign(userID, deviceID, i.AccessSecret, i.AccessTTL, "")
	if err != nil {
		return nil, err
	}
	// refresh tokens carry a JTI so two rotations within the same
	// second still produce distinct tokens
	refresh, err := i.sign(userID, deviceID, i.RefreshSecret, i.RefreshTTL, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) sign(userID, deviceID string, secret []byte, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *Issuer) ParseAccess(tokenStr string) (*Claims, error) {
	return ClaimsFromToken(tokenStr, i.AccessSecret, i.Leeway)
}

func (i *Issuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return ClaimsFromToken(tokenStr, i.RefreshSecret, i.Leeway)
}

func ClaimsFromToken(tokenStr string, secret []byte, leeway time.Duration) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	}, jwt.WithLeeway(leeway))
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
