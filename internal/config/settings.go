package config

import (
	"fmt"
	"strings"
	"time"
)

// Default runtime settings.
const (
	DefaultCapacity      = 5
	DefaultPace          = 10 * time.Second
	DefaultOverflow      = "block"
	DefaultLogLevel      = "info"
	DefaultJournalDriver = "none"
	DefaultJournalPath   = "./xpost.journal"
	DefaultAPIBaseURL    = "https://discuit.net/api/"
	DefaultAPITimeout    = 30 * time.Second
	DefaultAPIRatePerSec = 5
	DefaultConfigPath    = "./xpost.yaml"
)

// PartialSettings is a fragment of runtime (non-post) settings.
type PartialSettings struct {
	Capacity      Opt[int]
	Pace          Opt[time.Duration]
	Overflow      Opt[string]
	LogLevel      Opt[string]
	LogConsole    Opt[bool]
	LogFile       Opt[string]
	JournalDriver Opt[string]
	JournalPath   Opt[string]
	APIBaseURL    Opt[string]
	APITimeout    Opt[time.Duration]
	APIRatePerSec Opt[int]
}

// Settings are the resolved runtime settings. They are fixed for the run.
type Settings struct {
	Capacity      int
	Pace          time.Duration
	Overflow      string
	LogLevel      string
	LogConsole    bool
	LogFile       string
	JournalDriver string
	JournalPath   string
	APIBaseURL    string
	APITimeout    time.Duration
	APIRatePerSec int
}

// ResolveSettings merges fragments (highest priority first) over the defaults
// and checks the numeric bounds.
func ResolveSettings(fragments ...PartialSettings) (Settings, error) {
	var m PartialSettings
	for _, f := range fragments {
		m.Capacity = First(m.Capacity, f.Capacity)
		m.Pace = First(m.Pace, f.Pace)
		m.Overflow = First(m.Overflow, f.Overflow)
		m.LogLevel = First(m.LogLevel, f.LogLevel)
		m.LogConsole = First(m.LogConsole, f.LogConsole)
		m.LogFile = First(m.LogFile, f.LogFile)
		m.JournalDriver = First(m.JournalDriver, f.JournalDriver)
		m.JournalPath = First(m.JournalPath, f.JournalPath)
		m.APIBaseURL = First(m.APIBaseURL, f.APIBaseURL)
		m.APITimeout = First(m.APITimeout, f.APITimeout)
		m.APIRatePerSec = First(m.APIRatePerSec, f.APIRatePerSec)
	}

	s := Settings{
		Capacity:      m.Capacity.OrElse(DefaultCapacity),
		Pace:          m.Pace.OrElse(DefaultPace),
		Overflow:      strings.ToLower(m.Overflow.OrElse(DefaultOverflow)),
		LogLevel:      m.LogLevel.OrElse(DefaultLogLevel),
		LogConsole:    m.LogConsole.OrElse(true),
		LogFile:       m.LogFile.OrElse(""),
		JournalDriver: strings.ToLower(m.JournalDriver.OrElse(DefaultJournalDriver)),
		JournalPath:   m.JournalPath.OrElse(DefaultJournalPath),
		APIBaseURL:    m.APIBaseURL.OrElse(DefaultAPIBaseURL),
		APITimeout:    m.APITimeout.OrElse(DefaultAPITimeout),
		APIRatePerSec: m.APIRatePerSec.OrElse(DefaultAPIRatePerSec),
	}
	if s.Capacity <= 0 {
		return s, fmt.Errorf("dispatch.capacity: must be > 0, got %d", s.Capacity)
	}
	if s.Pace < 0 {
		return s, fmt.Errorf("dispatch.pace: must be >= 0")
	}
	if s.APITimeout <= 0 {
		return s, fmt.Errorf("api.timeout: must be > 0")
	}
	if s.APIRatePerSec <= 0 {
		return s, fmt.Errorf("api.rate_per_sec: must be > 0, got %d", s.APIRatePerSec)
	}
	return s, nil
}
