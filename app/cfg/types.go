package cfg

type Cfg struct {
	// Source blog
	Username string
	Password string
	Site     string
	User     string
	APIURL   string

	// Import
	OutputDir  string
	PlanFile   string
	DBPath     string
	EmbedStyle string
	DryRun     bool
	Force      bool
	NoImport   bool

	// HTTP
	WorkerCount int
	Timeout     int
	TaskTimeout int
	RateLimit   float64
	MaxPages    int

	// Status server
	Serve        bool
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
