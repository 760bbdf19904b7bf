// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	// OCR engine configuration
	OCR_ENGINE          string // "tesseract"
	OCR_LANGUAGES       string // tesseract language set, e.g. "spa+eng"
	OCR_PAGE_SEG_MODE   int    // page segmentation mode for dense receipt blocks
	OCR_TIMEOUT_SECONDS int    // hard timeout for a single recognition call
	OCR_MIN_TOKEN_CONF  float64

	// Image quality thresholds (tunables, to be validated against a labeled corpus)
	SHARPNESS_HIGH       float64 // edge-variance above this: sharp image
	SHARPNESS_MEDIUM     float64 // below this: blurry, needs aggressive upscale
	BRIGHTNESS_HIGH      float64 // mean luminance above this: overexposed capture
	BRIGHTNESS_LOW       float64 // below this: underexposed
	DARK_BACKGROUND_MEAN float64 // below this: dark theme screenshot, invert polarity
	NOISE_HIGH           float64
	NOISE_MEDIUM         float64

	// Preprocessing
	MAX_UPSCALE_FACTOR  float64 // bound on aggressive upscaling
	MAX_DESKEW_DEGREES  float64 // correction range; beyond it the image passes through flagged
	MIN_DESKEW_DEGREES  float64 // angles below this are left alone
	MAX_IMAGE_DIMENSION int

	// Document classification
	MIN_RECEIPT_KEYWORDS int     // minimum matched payment keywords
	MIN_TEXT_AREA_RATIO  float64 // minimum text-covered fraction of the image

	// Template / ZOI resolution
	TEMPLATES_DIR          string
	MIN_FINGERPRINT_MATCH  float64 // fraction of fingerprint strings that must match
	FUZZY_MATCH_THRESHOLD  float64 // Levenshtein similarity to accept a noisy keyword
	ZOI_MARGIN_RIGHT       int     // horizontal expansion after an anchor token
	ZOI_MARGIN_BELOW       int     // vertical expansion below an anchor token
	ANCHOR_MIN_CONFIDENCE  float64 // minimum token confidence to trust as anchor
	VALUE_LINE_TOLERANCE   int     // vertical tolerance for same-line token grouping
	MAX_VALUE_TOKENS       int     // multi-token value concatenation bound
	TEMPLATE_CACHE_TTL_SEC int

	// Confidence / validation
	MIN_CONFIDENCE_FLOOR  float64 // aggregate floor for a success result
	HIGH_CONFIDENCE       float64
	MODEL_MAX_PENALTY     float64 // largest confidence deduction the model may apply
	DATE_FUTURE_TOLERANCE int     // days a receipt date may lie in the future

	// Learning loop
	MODEL_PATH        string
	FEEDBACK_CSV_PATH string
	MODEL_WEIGHT_MAX  float64
	MODEL_WEIGHT_STEP float64 // per-feedback weight increment

	// Debug artifacts
	SAVE_DEBUG_ARTIFACTS bool
	DEBUG_DIR            string

	// API server
	PORT            string
	UPLOAD_DIR      string
	ALLOWED_ORIGINS string
	MAX_CONCURRENT  int64 // simultaneous pipeline runs in the API server

	// MongoDB history archive (optional; disabled when MONGO_URI is empty)
	MONGO_URI     string
	MONGO_DB_NAME string
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	OCR_ENGINE = getEnv("OCR_ENGINE", "tesseract")
	OCR_LANGUAGES = getEnv("OCR_LANGUAGES", "spa+eng")
	OCR_PAGE_SEG_MODE = getEnvInt("OCR_PAGE_SEG_MODE", 6)
	OCR_TIMEOUT_SECONDS = getEnvInt("OCR_TIMEOUT_SECONDS", 45)
	OCR_MIN_TOKEN_CONF = getEnvFloat("OCR_MIN_TOKEN_CONF", 20)

	SHARPNESS_HIGH = getEnvFloat("SHARPNESS_HIGH", 500)
	SHARPNESS_MEDIUM = getEnvFloat("SHARPNESS_MEDIUM", 100)
	BRIGHTNESS_HIGH = getEnvFloat("BRIGHTNESS_HIGH", 180)
	BRIGHTNESS_LOW = getEnvFloat("BRIGHTNESS_LOW", 80)
	DARK_BACKGROUND_MEAN = getEnvFloat("DARK_BACKGROUND_MEAN", 85)
	NOISE_HIGH = getEnvFloat("NOISE_HIGH", 15)
	NOISE_MEDIUM = getEnvFloat("NOISE_MEDIUM", 8)

	MAX_UPSCALE_FACTOR = getEnvFloat("MAX_UPSCALE_FACTOR", 3.0)
	MAX_DESKEW_DEGREES = getEnvFloat("MAX_DESKEW_DEGREES", 15)
	MIN_DESKEW_DEGREES = getEnvFloat("MIN_DESKEW_DEGREES", 1)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2500)

	MIN_RECEIPT_KEYWORDS = getEnvInt("MIN_RECEIPT_KEYWORDS", 3)
	MIN_TEXT_AREA_RATIO = getEnvFloat("MIN_TEXT_AREA_RATIO", 0.02)

	TEMPLATES_DIR = getEnv("TEMPLATES_DIR", "templates")
	MIN_FINGERPRINT_MATCH = getEnvFloat("MIN_FINGERPRINT_MATCH", 0.6)
	FUZZY_MATCH_THRESHOLD = getEnvFloat("FUZZY_MATCH_THRESHOLD", 0.8)
	ZOI_MARGIN_RIGHT = getEnvInt("ZOI_MARGIN_RIGHT", 350)
	ZOI_MARGIN_BELOW = getEnvInt("ZOI_MARGIN_BELOW", 60)
	ANCHOR_MIN_CONFIDENCE = getEnvFloat("ANCHOR_MIN_CONFIDENCE", 70)
	VALUE_LINE_TOLERANCE = getEnvInt("VALUE_LINE_TOLERANCE", 30)
	MAX_VALUE_TOKENS = getEnvInt("MAX_VALUE_TOKENS", 3)
	TEMPLATE_CACHE_TTL_SEC = getEnvInt("TEMPLATE_CACHE_TTL_SEC", 300)

	MIN_CONFIDENCE_FLOOR = getEnvFloat("MIN_CONFIDENCE_FLOOR", 60)
	HIGH_CONFIDENCE = getEnvFloat("HIGH_CONFIDENCE", 85)
	MODEL_MAX_PENALTY = getEnvFloat("MODEL_MAX_PENALTY", 25)
	DATE_FUTURE_TOLERANCE = getEnvInt("DATE_FUTURE_TOLERANCE", 1)

	MODEL_PATH = getEnv("MODEL_PATH", "data/probabilistic_model.json")
	FEEDBACK_CSV_PATH = getEnv("FEEDBACK_CSV_PATH", "data/manual_feedback.csv")
	MODEL_WEIGHT_MAX = getEnvFloat("MODEL_WEIGHT_MAX", 1.0)
	MODEL_WEIGHT_STEP = getEnvFloat("MODEL_WEIGHT_STEP", 0.1)

	SAVE_DEBUG_ARTIFACTS = getEnvBool("SAVE_DEBUG_ARTIFACTS", false)
	DEBUG_DIR = getEnv("DEBUG_DIR", "debug")

	PORT = getEnv("PORT", "8080")
	UPLOAD_DIR = getEnv("UPLOAD_DIR", "uploads")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	MAX_CONCURRENT = int64(getEnvInt("MAX_CONCURRENT", 2))

	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "comprobantes")

	log.Println("✓ Configuration loaded successfully")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
