package env

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	TelegramBotToken string

	TrendingChannelID   int64
	TrendingChannelName string
	SystemLogChatID     int64

	BoostWallet string

	BirdeyeAPIKey string
	SuiRPCURL     string
	StreamWSURL   string

	SuiExplorerURL string
	VolBotLink     string

	Port string

	DatabaseURL string

	PGHost     string
	PGPort     string
	PGUser     string
	PGPassword string
	PGDatabase string
)

func loadEnvVariable(key string, isRequired bool) string {
	value := os.Getenv(key)
	if isRequired && value == "" {
		log.Fatalf("FATAL: Environment variable %s is required but not set.", key)
	}
	isHidden := key == "BOT_TOKEN" || key == "BIRDEYE_API_KEY" || key == "PGPASSWORD" || key == "DATABASE_URL"
	if value == "" {
		if !isRequired {
			log.Printf("INFO: Environment variable %s is not set.", key)
		}
	} else if isHidden {
		log.Printf("INFO: Loaded %s (value hidden)", key)
	} else {
		log.Printf("INFO: Loaded %s = %s", key, value)
	}
	return value
}

func loadInt64Env(key string, required bool) int64 {
	strValue := loadEnvVariable(key, required)
	if strValue == "" {
		if !required {
			return 0
		}
		log.Fatalf("FATAL: Required int64 environment variable %s is missing after load.", key)
		return 0
	}
	id, err := strconv.ParseInt(strValue, 10, 64)
	if err != nil {
		log.Fatalf("FATAL: Failed to parse int64 environment variable %s='%s': %v", key, strValue, err)
	}
	return id
}

func LoadEnv() error {
	err := godotenv.Load()
	if err != nil {
		log.Println("INFO: .env file not found or error loading, relying on system environment variables.")
	} else {
		log.Println("INFO: .env file loaded successfully.")
	}

	TelegramBotToken = loadEnvVariable("BOT_TOKEN", true)
	TrendingChannelID = loadInt64Env("TRENDING_CHANNEL_ID", true)
	TrendingChannelName = loadEnvVariable("TRENDING_CHANNEL", false)
	SystemLogChatID = loadInt64Env("SYSTEM_LOG_CHAT_ID", false)

	BoostWallet = loadEnvVariable("BOOST_WALLET", true)

	BirdeyeAPIKey = loadEnvVariable("BIRDEYE_API_KEY", true)
	SuiRPCURL = loadEnvVariable("SUI_RPC_URL", false)
	if SuiRPCURL == "" {
		SuiRPCURL = "https://fullnode.mainnet.sui.io:443"
		log.Printf("INFO: SUI_RPC_URL not set, defaulting to %s", SuiRPCURL)
	}
	StreamWSURL = loadEnvVariable("STREAM_WS_URL", false)

	SuiExplorerURL = loadEnvVariable("SUI_EXPLORER_URL", false)
	if SuiExplorerURL == "" {
		SuiExplorerURL = "https://suiscan.xyz/mainnet/tx"
	}
	VolBotLink = loadEnvVariable("VOL_BOT_LINK", false)

	// Render health probes expect the service to listen on 10000.
	Port = loadEnvVariable("PORT", false)
	if Port == "" {
		Port = "10000"
		log.Printf("INFO: PORT not set, defaulting to %s", Port)
	}

	DatabaseURL = loadEnvVariable("DATABASE_URL", false)

	PGHost = loadEnvVariable("PGHOST", false)
	PGPort = loadEnvVariable("PGPORT", false)
	PGUser = loadEnvVariable("PGUSER", false)
	PGPassword = loadEnvVariable("PGPASSWORD", false)
	PGDatabase = loadEnvVariable("PGDATABASE", false)

	if DatabaseURL == "" {
		log.Println("WARN: DATABASE_URL is not set. Connection logic will rely on PG* variables.")
	}
	if StreamWSURL == "" {
		log.Println("WARN: STREAM_WS_URL is not set. The streaming buy feed cannot be enabled.")
	}
	if TrendingChannelName == "" {
		log.Println("WARN: TRENDING_CHANNEL is not set. Alert footers will omit the trending link.")
	}

	log.Println("INFO: Environment variables loading process complete.")
	return nil
}
