// Package cloud defines application configuration (loaded from TOML) and the
// service-client container wired up at process start, plus the decorators
// (quota-aware oracle model, archive client) that those clients are handed
// out wrapped in.
package cloud

// Application holds process-wide identity and HTTP boundary settings.
type Application struct {
	Name           string `toml:"name"`
	Port           int    `toml:"port"`
	NodeEnv        string `toml:"node_env"`
	ThreadPoolSize int    `toml:"thread_pool_size"`
	// GoogleProjectId is optional. When set, telemetry exports traces and
	// metrics to Cloud Trace/Cloud Monitoring; when empty, telemetry runs
	// with tracing/metrics collected in-process but not exported anywhere.
	GoogleProjectId string `toml:"google_project_id"`
}

// Oracle configures the LLM Oracle Adapter: the primary Gemini keys (in
// rotation order), pacing, and the secondary HTTP fallback provider.
type Oracle struct {
	GeminiEnabled       bool     `toml:"gemini_enabled"`
	GeminiAPIKeys       []string `toml:"gemini_api_keys"`
	GeminiModel         string   `toml:"gemini_model"`
	GeminiMinIntervalMs int      `toml:"gemini_min_interval_ms"`
	GroqAPIKey          string   `toml:"groq_api_key"`
	GroqModel           string   `toml:"groq_model"`
	GroqBaseURL         string   `toml:"groq_base_url"`
	MaxRetries          int      `toml:"max_retries"`
	BaseBackoffMs       int      `toml:"base_backoff_ms"`
}

// StockFootage configures the Stock Provider Adapter.
type StockFootage struct {
	PexelsAPIKey string `toml:"pexels_api_key"`
	PexelsBaseURL string `toml:"pexels_base_url"`
}

// Speech configures the optional premium text-to-speech provider.
type Speech struct {
	ElevenLabsAPIKey string `toml:"elevenlabs_api_key"`
}

// Storage configures the filesystem roots the pipeline writes to, and an
// optional archival bucket.
type Storage struct {
	AssetsAudioDir  string `toml:"assets_audio_dir"`
	AssetsClipsDir  string `toml:"assets_clips_dir"`
	TempOutputDir   string `toml:"temp_output_dir"`
	TempRenderDir   string `toml:"temp_render_dir"`
	CacheRenderDir  string `toml:"cache_render_dir"`
	OutputDir       string `toml:"output_dir"`
	MarksFile       string `toml:"marks_file"`
	ArchiveBucket   string `toml:"archive_bucket"`
}

// Worker configures the bounded job worker pool (§5).
type Worker struct {
	MaxConcurrentJobs int `toml:"max_concurrent_jobs"`
}

// Retention configures the Cleanup/Retention sweep (§4.11).
type Retention struct {
	MaxAgeDays     int `toml:"max_age_days"`
	SweepIntervalH int `toml:"sweep_interval_hours"`
}

// Render configures the external renderer invocation (§4.9).
type Render struct {
	FFmpegPath string `toml:"ffmpeg_path"`
}

// Config is the top-level, TOML-decoded application configuration.
type Config struct {
	Application  Application  `toml:"application"`
	Oracle       Oracle       `toml:"oracle"`
	StockFootage StockFootage `toml:"stock_footage"`
	Speech       Speech       `toml:"speech"`
	Storage      Storage      `toml:"storage"`
	Worker       Worker       `toml:"worker"`
	Retention    Retention    `toml:"retention"`
	Render       Render       `toml:"render"`
}

// NewConfig returns a Config with every slice/map field initialized and
// sane, spec-mandated defaults (§5, §6) pre-filled, so a missing TOML file
// still yields a runnable configuration.
func NewConfig() *Config {
	return &Config{
		Application: Application{Name: "genshorts", Port: 5001, NodeEnv: "development", ThreadPoolSize: 3},
		Oracle: Oracle{
			GeminiModel:         "gemini-1.5-flash",
			GeminiMinIntervalMs: 1000,
			GroqModel:           "llama-3.1-70b-versatile",
			GroqBaseURL:         "https://api.groq.com/openai/v1",
			MaxRetries:          3,
			BaseBackoffMs:       500,
		},
		StockFootage: StockFootage{PexelsBaseURL: "https://api.pexels.com/videos"},
		Storage: Storage{
			AssetsAudioDir: "assets/audio",
			AssetsClipsDir: "assets/clips",
			TempOutputDir:  "temp_output",
			TempRenderDir:  "temp_render",
			CacheRenderDir: "cache_render",
			OutputDir:      "output",
			MarksFile:      "marked_assets.json",
		},
		Worker:    Worker{MaxConcurrentJobs: 3},
		Retention: Retention{MaxAgeDays: 7, SweepIntervalH: 24},
		Render:    Render{FFmpegPath: "ffmpeg"},
	}
}
