package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/baranekm/sauna-attendance/internal/occupancy"
	"github.com/baranekm/sauna-attendance/internal/schedule"
	"github.com/baranekm/sauna-attendance/internal/weather"
)

const (
	defaultOccupancyURL  = "https://www.delfinub.cz/aktualni-obsazenost"
	defaultContainerID   = "snippet-container-default-widget-5011d2eee6b2fe3ef8b4e4abcd9a742f-widgetsnippet"
	defaultPrimaryPath   = "div/div/div[3]/div/div/div/div"
	defaultSecondaryPath = "div/div/div[2]/div/div/div/div"
)

type AppConfig struct {
	// PollInterval is the period between two observations.
	PollInterval time.Duration `validate:"gt=0"`

	// Daily log storage.
	LogDir    string `validate:"required"`
	LogPrefix string `validate:"required,excludesall=/\\"`
	TwoZone   bool

	// Location is the facility's calendar; log dates and timestamps use it.
	Location *time.Location `validate:"required"`

	Timetable *schedule.Timetable `validate:"required"`

	Occupancy occupancy.PageConfig

	OpenWeatherAPIKey string
	WeatherAPIKey     string

	Home weather.Location
	Site weather.Location

	// RedisURL enables the live feed when set.
	RedisURL string `validate:"omitempty,url"`

	HTTPTimeout   time.Duration `validate:"gt=0"`
	ReaderTimeout time.Duration `validate:"gt=0"`

	// In-memory recent buffer retention.
	RecentMaxHistory int           `validate:"gte=0"` // 0 = unlimited
	RecentMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// geocode resolves a free-form address. Replaced in tests.
var geocode = func(apiKey, address string) (float64, float64, error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{Street: address})
	if err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

// Load reads configuration from the environment (and .env) with defaults that
// reproduce the original single-facility deployment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", 210*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReaderTimeout, err = getenvDuration("READER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	// Roughly one day at the default interval.
	cfg.RecentMaxHistory = getenvInt("RECENT_MAX_HISTORY", 410)
	if cfg.RecentMaxAge, err = getenvDuration("RECENT_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.LogDir = getenvDefault("LOG_DIR", "./data")
	cfg.LogPrefix = getenvDefault("LOG_PREFIX", "sauna_data")
	if cfg.TwoZone, err = getenvBool("TWO_ZONE", true); err != nil {
		return nil, err
	}

	tz := getenvDefault("TIMEZONE", "Europe/Prague")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if path := os.Getenv("TIMETABLE_FILE"); path != "" {
		if cfg.Timetable, err = schedule.LoadFile(path); err != nil {
			return nil, fmt.Errorf("invalid TIMETABLE_FILE: %w", err)
		}
	} else {
		cfg.Timetable = schedule.Default()
	}

	cfg.Occupancy = occupancy.PageConfig{
		URL:           getenvDefault("OCCUPANCY_URL", defaultOccupancyURL),
		ContainerID:   getenvDefault("OCCUPANCY_CONTAINER_ID", defaultContainerID),
		PrimaryPath:   getenvDefault("OCCUPANCY_PRIMARY_PATH", defaultPrimaryPath),
		SecondaryPath: getenvDefault("OCCUPANCY_SECONDARY_PATH", defaultSecondaryPath),
	}
	if !cfg.TwoZone {
		cfg.Occupancy.SecondaryPath = ""
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	if cfg.Home, err = loadLocation("home", "HOME", 49.03317655577836, 17.656029372771396); err != nil {
		return nil, err
	}
	if cfg.Site, err = loadSite(); err != nil {
		return nil, err
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadLocation(name, prefix string, lat, lon float64) (weather.Location, error) {
	loc := weather.Location{Name: name, Lat: lat, Lon: lon}
	var err error
	if loc.Lat, err = getenvFloat(prefix+"_LAT", lat); err != nil {
		return loc, err
	}
	if loc.Lon, err = getenvFloat(prefix+"_LON", lon); err != nil {
		return loc, err
	}
	return loc, nil
}

// loadSite prefers SITE_ADDRESS (geocoded) over SITE_LAT/SITE_LON.
func loadSite() (weather.Location, error) {
	address := strings.TrimSpace(os.Getenv("SITE_ADDRESS"))
	if address == "" {
		return loadLocation("site", "SITE", 49.02044866857781, 17.649074144949278)
	}

	key := os.Getenv("GEOCODER_API_KEY")
	if key == "" {
		return weather.Location{}, fmt.Errorf("SITE_ADDRESS requires GEOCODER_API_KEY")
	}
	lat, lon, err := geocode(key, address)
	if err != nil {
		return weather.Location{}, fmt.Errorf("geocode SITE_ADDRESS: %w", err)
	}
	log.Printf("INFO: site %q geocoded to %.5f,%.5f", address, lat, lon)
	return weather.Location{Name: "site", Lat: lat, Lon: lon}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
