package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt"

	"avara-ussd/internal/config"
)

// Issues a bearer token for the internal API routes (/api/krnl/*).
func main() {
	subject := flag.String("sub", "ussd-gateway", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.API.JWTSecret == "" {
		log.Fatal("API_JWT_SECRET is not set")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": *subject,
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(cfg.API.JWTSecret))
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}

	fmt.Println(signed)
}
