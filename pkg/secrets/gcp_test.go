package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretVersionName(t *testing.T) {
	assert.Equal(t, "projects/my-proj/secrets/squeeth-api-jwt-secret/versions/latest",
		SecretVersionName("my-proj", DefaultSecretNames().JWTSecret))
}

func TestGetSecretWithDefaultEmptyName(t *testing.T) {
	g := &GCPSecretManager{}
	assert.Equal(t, "fallback", g.GetSecretWithDefault(context.Background(), "", "fallback"))
}
