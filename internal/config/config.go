package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Events   EventsConfig
	IntaSend IntaSendConfig
	Chain    ChainConfig
	Signer   SignerConfig
	SMS      SMSConfig
	API      APIConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Path string // Path to the sqlite database file
}

type EventsConfig struct {
	BaseURL         string        // Base URL of the upstream events API
	RefreshInterval time.Duration // Interval between background catalog refreshes
	MenuPageSize    int           // Maximum events shown on a USSD menu page
}

type IntaSendConfig struct {
	PublishableKey string
	SecretKey      string
	Environment    string // "sandbox" or "live"
}

type ChainConfig struct {
	RPCURL            string
	ChainID           int64
	AvaraCoreAddress  string
	TicketNFTAddress  string
	POAPNFTAddress    string
	PrivateKey        string // Key used to submit mint transactions
	SignerAddress     string
	MintRecipient     string // Address NFT tickets are minted to
	TicketDeployBlock int64
}

type SignerConfig struct {
	PrivateKey      string // Key used to sign mint proofs
	ExpectedAddress string // Address the verifying contract trusts
}

type SMSConfig struct {
	Username string
	APIKey   string
	BaseURL  string
	From     string
}

type APIConfig struct {
	JWTSecret string
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "tickets.db"),
		},
		Events: EventsConfig{
			BaseURL:         getEnv("SERVER_API_URL", "http://localhost:8080"),
			RefreshInterval: getEnvAsDuration("EVENTS_REFRESH_INTERVAL", 5*time.Minute),
			MenuPageSize:    getEnvAsInt("EVENTS_MENU_PAGE_SIZE", 10),
		},
		IntaSend: IntaSendConfig{
			PublishableKey: getEnv("INTASEND_PUBLIC_KEY", ""),
			SecretKey:      getEnv("INTASEND_PRIVATE_KEY", ""),
			Environment:    getEnv("INTASEND_ENV", "sandbox"),
		},
		Chain: ChainConfig{
			RPCURL:            getEnvFirst([]string{"RPC_URL", "CHAIN_RPC_URL"}, ""),
			ChainID:           int64(getEnvAsInt("CHAIN_ID", 5001)),
			AvaraCoreAddress:  getEnv("AVARA_CORE_ADDRESS", ""),
			TicketNFTAddress:  getEnv("TICKET_NFT_ADDRESS", ""),
			POAPNFTAddress:    getEnv("POAP_NFT_ADDRESS", ""),
			PrivateKey:        getEnv("MANTLE_PRIVATE_KEY", ""),
			SignerAddress:     getEnv("MANTLE_SIGNER_ADDRESS", ""),
			MintRecipient:     getEnv("MINT_RECIPIENT_ADDRESS", ""),
			TicketDeployBlock: int64(getEnvAsInt("TICKET_DEPLOY_BLOCK", 0)),
		},
		Signer: SignerConfig{
			PrivateKey:      getEnv("KRNL_PRIVATE_KEY", ""),
			ExpectedAddress: getEnv("KRNL_SIGNER_ADDRESS", ""),
		},
		SMS: SMSConfig{
			Username: getEnv("AFRICASTALKING_USERNAME", ""),
			APIKey:   getEnv("AFRICASTALKING_API_KEY", ""),
			BaseURL:  getEnv("AFRICASTALKING_BASE_URL", "https://api.africastalking.com"),
			From:     getEnv("AFRICASTALKING_FROM", ""),
		},
		API: APIConfig{
			JWTSecret: getEnv("API_JWT_SECRET", ""),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty value among the given keys.
func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
