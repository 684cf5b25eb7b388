package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const (
	EmbeddingHugot   = "hugot"
	EmbeddingHTTP    = "http"
	EmbeddingHashing = "hashing"
)

const (
	GeographyBuiltin = "builtin"
	GeographyFile    = "file"
	GeographyMySQL   = "mysql"
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5000",
	"https://ski-resort-app.vercel.app",
	"https://*.vercel.app",
}

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string

	PlacesBase       string
	PlacesKey        string
	PlacesRPS        int
	PlacesMaxRetries int
	PlacesPageDelay  time.Duration
	EnrichDetails    bool

	SearchRadiusKm   float64
	TileStepKm       float64
	TileRadius       int
	TileWorkers      int
	MaxDistanceKm    float64
	GeocodeCacheSize int
	SearchTimeout    time.Duration
	SearchCacheTTL   time.Duration

	RankingMode      string
	RankingTopN      int
	WeightSimilarity float64
	WeightProximity  float64
	WeightRating     float64
	RankingNormKm    float64

	EmbeddingBackend   string
	EmbeddingModelPath string
	EmbeddingURL       string
	EmbeddingModel     string
	EmbeddingKey       string

	RedisAddr string
	RedisPass string
	RedisDB   int

	GeographySource string
	GeographyFile   string
	MySQLDSN        string
	SeedWorkers     int
}

// Load builds the Config. Precedence: process env (including a .env file)
// over the optional YAML file named by CONFIG_FILE over defaults. YAML keys
// are the lower-cased env names (http_addr, tile_radius, ...).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	k := koanf.New(".")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	l := &loader{k: k}

	c := Config{
		AppEnv:      l.str("APP_ENV", "prod"),
		LogLevel:    l.str("LOG_LEVEL", "info"),
		HTTPAddr:    l.str("HTTP_ADDR", ":5001"),
		MetricsAddr: l.str("METRICS_ADDR", ""),
		CORSOrigins: l.list("CORS_ORIGINS", DefaultCORSOrigins),

		PlacesBase:       l.str("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api"),
		PlacesKey:        l.first([]string{"GOOGLE_MAPS_API_KEY", "GOOGLE_PLACES_API_KEY"}, ""),
		PlacesRPS:        l.integer("PLACES_RPS", 10),
		PlacesMaxRetries: l.integer("PLACES_MAX_RETRIES", 3),
		PlacesPageDelay:  l.duration("PLACES_PAGE_DELAY", time.Second),
		EnrichDetails:    l.boolean("PLACES_ENRICH_DETAILS", true),

		SearchRadiusKm:   l.float("SEARCH_RADIUS_KM", 50),
		TileStepKm:       l.float("TILE_STEP_KM", 30),
		TileRadius:       l.integer("TILE_RADIUS", 2),
		TileWorkers:      l.integer("TILE_WORKERS", 5),
		MaxDistanceKm:    l.float("MAX_DISTANCE_KM", 100),
		GeocodeCacheSize: l.integer("GEOCODE_CACHE_SIZE", 100),
		SearchTimeout:    l.duration("SEARCH_TIMEOUT", 60*time.Second),
		SearchCacheTTL:   time.Duration(l.integer("SEARCH_CACHE_TTL_SECONDS", 900)) * time.Second,

		RankingMode:      strings.ToLower(l.str("RANKING_MODE", "blended")),
		RankingTopN:      l.integer("RANKING_TOP_N", 10),
		WeightSimilarity: l.float("RANKING_WEIGHT_SIMILARITY", 0.4),
		WeightProximity:  l.float("RANKING_WEIGHT_PROXIMITY", 0.3),
		WeightRating:     l.float("RANKING_WEIGHT_RATING", 0.3),
		RankingNormKm:    l.float("RANKING_NORM_KM", 100),

		EmbeddingModelPath: l.str("EMBEDDING_MODEL_PATH", "models/all-MiniLM-L6-v2"),
		EmbeddingURL:       l.str("EMBEDDING_URL", ""),
		EmbeddingModel:     l.str("EMBEDDING_MODEL", ""),
		EmbeddingKey:       l.str("EMBEDDING_API_KEY", ""),

		RedisAddr: l.str("REDIS_ADDR", ""),
		RedisPass: l.str("REDIS_PASSWORD", ""),
		RedisDB:   l.integer("REDIS_DB", 0),

		GeographyFile: l.str("GEOGRAPHY_FILE", ""),
		MySQLDSN:      l.str("MYSQL_DSN", "root:root@tcp(localhost:3306)/skifinder?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		SeedWorkers:   l.integer("SEED_WORKERS", 4),
	}
	src := GeographyBuiltin
	if c.GeographyFile != "" {
		src = GeographyFile
	}
	c.GeographySource = strings.ToLower(l.str("GEOGRAPHY_SOURCE", src))
	backend := EmbeddingHugot
	if c.EmbeddingURL != "" {
		backend = EmbeddingHTTP
	}
	c.EmbeddingBackend = strings.ToLower(l.str("EMBEDDING_BACKEND", backend))

	if l.err != nil {
		return Config{}, l.err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY is empty; searches will report the finder as unavailable")
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.RankingMode {
	case "rating", "semantic", "blended":
	default:
		errs = append(errs, fmt.Errorf("RANKING_MODE %q must be rating, semantic or blended", c.RankingMode))
	}
	switch c.GeographySource {
	case GeographyBuiltin, GeographyMySQL:
	case GeographyFile:
		if c.GeographyFile == "" {
			errs = append(errs, errors.New("GEOGRAPHY_FILE is required when GEOGRAPHY_SOURCE=file"))
		}
	default:
		errs = append(errs, fmt.Errorf("GEOGRAPHY_SOURCE %q must be builtin, file or mysql", c.GeographySource))
	}
	if c.TileRadius < 0 {
		errs = append(errs, errors.New("TILE_RADIUS must be >= 0"))
	}
	if c.TileWorkers <= 0 {
		errs = append(errs, errors.New("TILE_WORKERS must be > 0"))
	}
	if c.TileStepKm <= 0 || c.SearchRadiusKm <= 0 || c.MaxDistanceKm <= 0 {
		errs = append(errs, errors.New("TILE_STEP_KM, SEARCH_RADIUS_KM and MAX_DISTANCE_KM must be > 0"))
	}
	switch c.EmbeddingBackend {
	case EmbeddingHugot:
		if c.EmbeddingModelPath == "" {
			errs = append(errs, errors.New("EMBEDDING_MODEL_PATH is required when EMBEDDING_BACKEND=hugot"))
		}
	case EmbeddingHTTP:
		if c.EmbeddingURL == "" || c.EmbeddingModel == "" {
			errs = append(errs, errors.New("EMBEDDING_URL and EMBEDDING_MODEL are required when EMBEDDING_BACKEND=http"))
		}
	case EmbeddingHashing:
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_BACKEND %q must be hugot, http or hashing", c.EmbeddingBackend))
	}
	return errors.Join(errs...)
}

// APIKeyConfigured reports whether a places provider key is present.
func (c Config) APIKeyConfigured() bool { return c.PlacesKey != "" }

// loader reads env first, then koanf, then the default, and remembers the
// first parse error.
type loader struct {
	k   *koanf.Koanf
	err error
}

func (l *loader) raw(envKey string) (string, bool) {
	if v := os.Getenv(envKey); v != "" {
		return v, true
	}
	if key := strings.ToLower(envKey); l.k.Exists(key) {
		return l.k.String(key), true
	}
	return "", false
}

func (l *loader) fail(envKey, v string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%s=%q: %w", envKey, v, err)
	}
}

func (l *loader) str(envKey, def string) string {
	if v, ok := l.raw(envKey); ok {
		return v
	}
	return def
}

func (l *loader) first(envKeys []string, def string) string {
	for _, k := range envKeys {
		if v, ok := l.raw(k); ok {
			return v
		}
	}
	return def
}

func (l *loader) integer(envKey string, def int) int {
	v, ok := l.raw(envKey)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		l.fail(envKey, v, err)
		return def
	}
	return n
}

func (l *loader) float(envKey string, def float64) float64 {
	v, ok := l.raw(envKey)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		l.fail(envKey, v, err)
		return def
	}
	return f
}

func (l *loader) boolean(envKey string, def bool) bool {
	v, ok := l.raw(envKey)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	l.fail(envKey, v, errors.New("not a boolean"))
	return def
}

func (l *loader) duration(envKey string, def time.Duration) time.Duration {
	v, ok := l.raw(envKey)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		l.fail(envKey, v, err)
		return def
	}
	return d
}

func (l *loader) list(envKey string, def []string) []string {
	if v := os.Getenv(envKey); v != "" {
		return splitList(v)
	}
	if key := strings.ToLower(envKey); l.k.Exists(key) {
		if s := l.k.Strings(key); len(s) > 0 {
			return s
		}
		return splitList(l.k.String(key))
	}
	return append([]string(nil), def...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
