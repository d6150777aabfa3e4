package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"campus-timetable/scraper"
	"campus-timetable/timetable"
)

const (
	EnvPrefix = "TIMETABLE"
	dateFmt   = "2006-01-02"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type Config struct {
	StudentType  timetable.StudentType `mapstructure:"student_type" json:"student_type" validate:"oneof=undergrad grad"`
	Username     string                `mapstructure:"username" json:"username" validate:"required"`
	Password     string                `mapstructure:"password" json:"password"`
	LoginURL     string                `mapstructure:"login_url" json:"login_url" validate:"required,url"`
	CacheDir     string                `mapstructure:"cache_dir" json:"cache_dir" validate:"required"`
	Debug        bool                  `mapstructure:"debug" json:"debug"`
	Env          string                `mapstructure:"env" json:"env"`
	RollbarToken string                `mapstructure:"rollbar_token" json:"rollbar_token"`

	Undergraduate Undergraduate `mapstructure:"undergraduate" json:"undergraduate"`
	Graduate      Graduate      `mapstructure:"graduate" json:"graduate"`
	Export        Export        `mapstructure:"export" json:"export"`
	Github        Github        `mapstructure:"github" json:"github"`
	Google        Google        `mapstructure:"google" json:"google"`

	// StartDates maps a semester id to the date its first week starts (YYYY-MM-DD).
	StartDates map[string]string `mapstructure:"start_dates" json:"start_dates"`
}

type Undergraduate struct {
	Legacy    bool                           `mapstructure:"legacy" json:"legacy"`
	Endpoints scraper.UndergraduateEndpoints `mapstructure:"endpoints" json:"endpoints"`
}

type Graduate struct {
	Concurrency int                       `mapstructure:"concurrency" json:"concurrency" validate:"min=1,max=18"`
	Endpoints   scraper.GraduateEndpoints `mapstructure:"endpoints" json:"endpoints"`
}

type Export struct {
	ICSPath string `mapstructure:"ics_path" json:"ics_path"`
}

type Github struct {
	Token string `mapstructure:"token" json:"token"`
	Repo  string `mapstructure:"repo" json:"repo" validate:"required_with=Token"`
	Path  string `mapstructure:"path" json:"path"`
}

type Google struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	ClientID     string `mapstructure:"client_id" json:"client_id" validate:"required_if=Enabled true"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret" validate:"required_if=Enabled true"`
	RedirectURI  string `mapstructure:"redirect_uri" json:"redirect_uri"`
	TokenFile    string `mapstructure:"token_file" json:"token_file"`
	CalendarID   string `mapstructure:"calendar_id" json:"calendar_id"`
}

// ValidationError lists the invalid settings by key.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

func setDefaults(v *viper.Viper) {
	ug := scraper.DefaultUndergraduateEndpoints
	grad := scraper.DefaultGraduateEndpoints

	v.SetDefault("student_type", string(timetable.Undergraduate))
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("login_url", scraper.DefaultLoginURL)
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("debug", false)
	v.SetDefault("env", "DEV")
	v.SetDefault("rollbar_token", "")

	v.SetDefault("undergraduate.legacy", false)
	v.SetDefault("undergraduate.endpoints.exam_table_url", ug.ExamTableURL)
	v.SetDefault("undergraduate.endpoints.semester_calendar_url", ug.SemesterCalendarURL)
	v.SetDefault("undergraduate.endpoints.print_data_url", ug.PrintDataURL)
	v.SetDefault("undergraduate.endpoints.course_table_index_url", ug.CourseTableIndexURL)
	v.SetDefault("undergraduate.endpoints.course_table_url", ug.CourseTableURL)

	v.SetDefault("graduate.concurrency", scraper.DefaultConcurrency)
	v.SetDefault("graduate.endpoints.index_url", grad.IndexURL)
	v.SetDefault("graduate.endpoints.data_url", grad.DataURL)

	v.SetDefault("export.ics_path", "")

	v.SetDefault("github.token", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.path", "")

	v.SetDefault("google.enabled", false)
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_uri", "urn:ietf:wg:oauth:2.0:oob")
	v.SetDefault("google.token_file", "token.json")
	v.SetDefault("google.calendar_id", "primary")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "campus-timetable")
	}
	return ".timetable-cache"
}

// Load reads settings from defaults, the optional config file, a .env file
// next to it and TIMETABLE_* environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := ".env"
	if path != "" {
		dotEnvPath = filepath.Join(filepath.Dir(path), ".env")
	}
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "load %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings, returning a *ValidationError for bad values.
func (c *Config) Validate() error {
	fields := map[string]string{}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(err, "validate config")
		}
		for _, fe := range verrs {
			fields[fieldKey(fe.Namespace())] = fe.Translate(translator)
		}
	}
	if _, err := c.StartDateContext(); err != nil {
		fields["start_dates"] = err.Error()
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// fieldKey drops the root struct name from a namespace like "Config.graduate.concurrency".
func fieldKey(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// StartDateContext parses StartDates into dates in the campus time zone.
func (c *Config) StartDateContext() (map[int]time.Time, error) {
	out := make(map[int]time.Time, len(c.StartDates))
	for id, raw := range c.StartDates {
		semesterID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, errors.Errorf("semester id %q is not a number", id)
		}
		date, err := time.ParseInLocation(dateFmt, strings.TrimSpace(raw), timetable.CampusLocation)
		if err != nil {
			return nil, errors.Errorf("start date %q of semester %d is not YYYY-MM-DD", raw, semesterID)
		}
		out[semesterID] = date
	}
	return out, nil
}
