package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	claimJTI    = "jti"
	claimType   = "token_type"
	claimFamily = "fv"
)

// Codec signs and verifies tokens. It knows nothing about revocation.
type Codec struct {
	method jwt.SigningMethod
	key    []byte
	issuer string
	parser *jwt.Parser
}

func NewCodec(cfg Config, now func() time.Time) (*Codec, error) {
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, ErrInvalidConfig.WithMsgf("unsupported algorithm %q", cfg.Algorithm)
	}
	if now == nil {
		now = time.Now
	}

	return &Codec{
		method: method,
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

func (c *Codec) Sign(claims Claims) (string, error) {
	mc := jwt.MapClaims{
		claimJTI:    claims.JTI,
		claimType:   string(claims.Type),
		claimFamily: claims.FamilyVersion,
		"sub":       claims.Subject,
		"iss":       c.issuer,
		"iat":       claims.IssuedAt.Unix(),
		"exp":       claims.ExpiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(c.method, mc).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// Parse checks signature, issuer and expiry, then decodes the claims.
// Errors are ErrTokenMissing, ErrTokenExpired or ErrTokenMalformed.
func (c *Codec) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	tok, err := c.parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.Wrap(err)
		}
		return nil, ErrTokenMalformed.Wrap(err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return decodeClaims(mc)
}

func decodeClaims(mc jwt.MapClaims) (*Claims, error) {
	jti, _ := mc[claimJTI].(string)
	typ, _ := mc[claimType].(string)
	sub, err := mc.GetSubject()
	if err != nil || jti == "" || sub == "" {
		return nil, ErrTokenMalformed.WithMsg("token is missing required claims")
	}
	if Type(typ) != TypeAccess && Type(typ) != TypeRefresh {
		return nil, ErrTokenMalformed.WithMsgf("unknown token type %q", typ)
	}

	// JSON numbers decode as float64
	fv, ok := mc[claimFamily].(float64)
	if !ok || fv < 0 {
		return nil, ErrTokenMalformed.WithMsg("token is missing family version")
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrTokenMalformed.WithMsg("token is missing expiry")
	}
	claims := &Claims{
		JTI:           jti,
		Type:          Type(typ),
		Subject:       sub,
		FamilyVersion: int64(fv),
		ExpiresAt:     exp.Time.UTC(),
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time.UTC()
	}
	return claims, nil
}
