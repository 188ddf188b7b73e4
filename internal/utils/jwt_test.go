package utils

import (
	"strings"
	"testing"

	"cabinex-be/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateJWT(userID, "boss@cabinex.lk", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "boss@cabinex.lk", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "cabinex-be", claims.Issuer)
}

func TestValidateJWTRejectsTampering(t *testing.T) {
	token, err := GenerateJWT(uuid.New(), "staff@cabinex.lk", models.RoleStaff)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = ValidateJWT(tampered)
	assert.Error(t, err)
}

func TestValidateJWTRejectsWrongAlgorithm(t *testing.T) {
	// alg=none token with valid-looking claims.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Email: "x@cabinex.lk"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}
