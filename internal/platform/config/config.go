package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Mode          string
	APIPort       string
	JWTKey        []byte
	JWTRefreshKey []byte
	JWTExp        time.Duration
	JWTRefreshExp time.Duration
	BcryptCost    int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EvaluationQueueName     string
	EvaluationJobMaxRetries int

	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIEmbedModel string
	ChatMaxTokens    int
	HintMaxTokens    int

	PineconeAPIKey    string
	PineconeIndexName string
	PineconeIndexHost string
	PineconeNamespace string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		Mode:          getEnv("APP_MODE", "development"),
		APIPort:       getEnv("API_PORT", "8080"),
		JWTKey:        []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTRefreshKey: []byte(getEnv("JWT_REFRESH_SECRET", "defaultrefreshsecret")),
		JWTExp:        time.Duration(getEnvAsInt("JWT_EXPIRATION_MINUTES", 15)) * time.Minute,
		JWTRefreshExp: time.Duration(getEnvAsInt("JWT_REFRESH_EXPIRATION_HOURS", 168)) * time.Hour,
		BcryptCost:    getEnvAsInt("BCRYPT_COST", 12),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "nagukpo_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		EvaluationQueueName:     getEnv("EVALUATION_QUEUE_NAME", "achievement_evaluation_queue"),
		EvaluationJobMaxRetries: getEnvAsInt("EVALUATION_JOB_MAX_RETRIES", 3),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIEmbedModel: getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		ChatMaxTokens:    getEnvAsInt("CHAT_MAX_TOKENS", 1500),
		HintMaxTokens:    getEnvAsInt("HINT_MAX_TOKENS", 300),

		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "nagukpo-embeddings"),
		PineconeIndexHost: getEnv("PINECONE_INDEX_HOST", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "problems"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
