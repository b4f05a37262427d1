package config

type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTIssuer() string
}

// Security configures verification of the bearer tokens issued by the identity
// provider that fronts this service.
type Security struct {
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`
}

var _ SecurityConfig = Security{}

func (s Security) GetJWTSecret() string {
	return s.JWTSecret
}

// GetJWTIssuer returns the expected "iss" claim; empty skips the issuer check.
func (s Security) GetJWTIssuer() string {
	return s.JWTIssuer
}
