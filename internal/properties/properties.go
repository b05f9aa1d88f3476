package properties

import (
	"os"
	"strconv"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func TempDir() string {
	return RootPath() + "/data/tmp"
}

func StaticDir() string {
	return RootPath() + "/data/static"
}

func CropThresholdPath() string {
	return getEnv("CROP_THRESHOLDS_PATH", RootPath()+"/data/calibration/crop_thresholds.csv")
}

// EnsureDirectories creates the scratch and output directories if missing.
func EnsureDirectories() error {
	for _, dir := range []string{TempDir(), StaticDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func LogLevel() string {
	return getEnv("LOG_LEVEL", "info")
}

// NDVI drop thresholds, overridable per deployment. The defaults match the
// calibration the damage classifier was tuned with.
func DamageThreshold() float64 {
	return getEnvFloat("NDVI_DAMAGE_THRESHOLD", -0.2)
}

func SevereDamageThreshold() float64 {
	return getEnvFloat("NDVI_SEVERE_DAMAGE_THRESHOLD", -0.4)
}

func MongoURI() string {
	return os.Getenv("MONGODB_URI")
}

func MongoDatabase() string {
	return getEnv("MONGODB_DB_NAME", "farmview")
}

func InsuranceWebhookURL() string {
	return os.Getenv("INSURANCE_WEBHOOK_URL")
}

func InsuranceAPIKey() string {
	return os.Getenv("INSURANCE_API_KEY")
}

func SentinelClientID() string {
	return os.Getenv("SENTINEL_CLIENT_ID")
}

func SentinelClientSecret() string {
	return os.Getenv("SENTINEL_CLIENT_SECRET")
}

func SentinelTokenURL() string {
	return os.Getenv("SENTINEL_TOKEN_URL")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
