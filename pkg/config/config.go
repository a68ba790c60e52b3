package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Portal  PortalConfig
	Browser BrowserConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// PortalConfig rutas y tiempos del robot del Emissor Nacional.
type PortalConfig struct {
	URL          string
	RosterPath   string  // planilla .xlsx de clientes
	OutputDir    string  // base de salida; se crea <YYYY>-<MM> por competencia
	DownloadDir  string  // carpeta temporal de descargas del navegador
	ImagesDir    string  // PNGs de referencia (btn_acesso_cert.png, IMG_CERT)
	ActionDelay  float64 // segundos tras acciones de login
	UsersPath    string  // usuarios operadores (users.json)
	CertPassword string  // contraseña para resolver IDENT_CERT desde .pfx
}

// BrowserConfig toggles de arranque de la sesión del navegador.
type BrowserConfig struct {
	Headless   bool
	Bin        string // CHROME_BIN o GOOGLE_CHROME_BIN
	DriverPath string // CHROMEDRIVER_PATH: se interpreta como URL/binario de control explícito
}

// DBConfig configuración de PostgreSQL (espejo opcional del libro).
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// Enabled true si hay algo configurado para conectarse.
func (c DBConfig) Enabled() bool {
	return c.DatabaseURL != "" || c.Host != ""
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: .env y config.env en el directorio actual
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v)
}

// FromViper arma la configuración desde una instancia ya poblada (tests).
func FromViper(v *viper.Viper) (*Config, error) {
	delay, err := getFloat(v, "NFSE_ACTION_DELAY", 3.5)
	if err != nil {
		return nil, err
	}

	chromeBin := getString(v, "CHROME_BIN", "")
	if chromeBin == "" {
		chromeBin = getString(v, "GOOGLE_CHROME_BIN", "")
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "portal-nfse"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", ""),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "portal_nfse"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 480),
			Issuer:     getString(v, "JWT_ISSUER", "portal-nfse"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Portal: PortalConfig{
			URL:          getString(v, "NFSE_PORTAL_URL", "https://www.nfse.gov.br/EmissorNacional/Login?ReturnUrl=%2fEmissorNacional"),
			RosterPath:   getString(v, "NFSE_ROSTER_PATH", "planilhas/ACESSO_PORTAL_NACIONAL.xlsx"),
			OutputDir:    getString(v, "NFSE_OUTPUT_DIR", "saida"),
			DownloadDir:  getString(v, "NFSE_DOWNLOAD_DIR", "downloads_temp"),
			ImagesDir:    getString(v, "NFSE_IMAGES_DIR", "imagens"),
			ActionDelay:  delay,
			UsersPath:    getString(v, "NFSE_USERS_PATH", "users.json"),
			CertPassword: getString(v, "NFSE_CERT_PASSWORD", ""),
		},
		Browser: BrowserConfig{
			Headless:   getBool(v, "HEADLESS"),
			Bin:        chromeBin,
			DriverPath: getString(v, "CHROMEDRIVER_PATH", ""),
		},
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getFloat(v *viper.Viper, key string, def float64) (float64, error) {
	if !v.IsSet(key) {
		return def, nil
	}
	raw := strings.TrimSpace(v.GetString(key))
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s inválido %q: %w", key, raw, err)
	}
	return f, nil
}

// getBool HEADLESS acepta 1/true/yes/y.
func getBool(v *viper.Viper, key string) bool {
	switch strings.ToLower(strings.TrimSpace(v.GetString(key))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
