package token

import (
	"encoding/json"
	"strconv"

	"github.com/forkful/gateway/internal/logger"
	"github.com/golang-jwt/jwt/v5"
)

var unverifiedParser = jwt.NewParser()

// DecodeExpiry extracts the `exp` claim from a JWT without verifying its
// signature. Returns nil if the token is malformed or carries no usable
// expiry. The result is advisory only and used for refresh scheduling;
// authorization decisions belong to the upstream issuer, which does verify
// signatures.
func DecodeExpiry(token string) *int64 {
	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		logger.Debug(logger.TOKEN, "Failed to decode token payload: %v", err)
		return nil
	}

	raw, ok := claims["exp"]
	if !ok {
		return nil
	}

	switch exp := raw.(type) {
	case float64:
		value := int64(exp)
		return &value
	case json.Number:
		parsed, err := exp.Float64()
		if err != nil {
			return nil
		}
		value := int64(parsed)
		return &value
	case string:
		// Some issuers emit exp as a string; coerce it
		parsed, err := strconv.ParseFloat(exp, 64)
		if err != nil {
			logger.Debug(logger.TOKEN, "Non-numeric string exp claim: %q", exp)
			return nil
		}
		value := int64(parsed)
		return &value
	default:
		return nil
	}
}
