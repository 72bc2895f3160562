package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// FileConfig is the on-disk configuration (JSON, YAML or TOML).
//
// Post fields are pointers so an omitted key stays absent in the cascade.
//
// Example (YAML):
//
//	username: alice
//	kind: link
//	title: Release notes
//	body: https://example.org/notes
//	communities: [golang, programming]
//	strict: true
//	dispatch:
//	  capacity: 5
//	  pace: 10s
//	  overflow: block
//	logging:
//	  level: info
//	journal:
//	  driver: sqlite
//	  path: ./xpost.db
type FileConfig struct {
	Strict      *bool      `json:"strict,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Body        *string    `json:"body,omitempty"`
	Kind        *string    `json:"kind,omitempty"`
	UserName    *string    `json:"username,omitempty"`
	Password    *string    `json:"password,omitempty"`
	Communities StringList `json:"communities,omitempty"`

	Dispatch DispatchFileConfig `json:"dispatch"`
	Logging  LoggingFileConfig  `json:"logging"`
	Journal  JournalFileConfig  `json:"journal"`
	API      APIFileConfig      `json:"api"`
}

// DispatchFileConfig controls the dispatch pipeline.
// Pace is a Go duration string (e.g. "10s").
type DispatchFileConfig struct {
	Capacity int    `json:"capacity,omitempty"`
	Pace     string `json:"pace,omitempty"`
	Overflow string `json:"overflow,omitempty"`
}

type LoggingFileConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"`
	File    string `json:"file,omitempty"`
}

// JournalFileConfig selects the delivery journal backend ("none", "file", "sqlite").
type JournalFileConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
}

type APIFileConfig struct {
	BaseURL    string `json:"base_url,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// StringList accepts either a JSON array of strings or a comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = SplitList(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return fmt.Errorf("communities: want a list or a comma separated string: %w", err)
	}
	*l = cleanList(arr)
	return nil
}

// LoadFile reads and strictly decodes the config file at path.
// A missing file is not an error: it yields an empty FileConfig and found=false.
func LoadFile(path string) (cfg *FileConfig, found bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &FileConfig{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	cfg, err = ParseFile(path, b)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, true, nil
}

// ParseFile decodes data; path only selects the format by extension.
func ParseFile(path string, data []byte) (*FileConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &FileConfig{}, nil
	}
	jb, _, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}

	var cfg FileConfig
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Partial returns the post fields of the file as a fragment.
func (c *FileConfig) Partial() PartialConfig {
	var p PartialConfig
	if c == nil {
		return p
	}
	if c.Strict != nil {
		p.Strict = Some(*c.Strict)
	}
	p.Title = optString(c.Title)
	p.Body = optString(c.Body)
	p.Kind = optString(c.Kind)
	p.UserName = optString(c.UserName)
	p.Password = optString(c.Password)
	if c.Communities != nil {
		p.Destinations = someList(c.Communities)
	}
	return p
}

// Settings returns the runtime settings of the file as a fragment.
func (c *FileConfig) Settings() (PartialSettings, error) {
	var s PartialSettings
	if c == nil {
		return s, nil
	}
	if c.Dispatch.Capacity != 0 {
		s.Capacity = Some(c.Dispatch.Capacity)
	}
	if strings.TrimSpace(c.Dispatch.Pace) != "" {
		d, err := ParseDurationField("dispatch.pace", c.Dispatch.Pace)
		if err != nil {
			return s, err
		}
		s.Pace = Some(d)
	}
	s.Overflow = optNonBlank(c.Dispatch.Overflow)
	s.LogLevel = optNonBlank(c.Logging.Level)
	if c.Logging.Console != nil {
		s.LogConsole = Some(*c.Logging.Console)
	}
	s.LogFile = optNonBlank(c.Logging.File)
	s.JournalDriver = optNonBlank(c.Journal.Driver)
	s.JournalPath = optNonBlank(c.Journal.Path)
	s.APIBaseURL = optNonBlank(c.API.BaseURL)
	if strings.TrimSpace(c.API.Timeout) != "" {
		d, err := ParseDurationField("api.timeout", c.API.Timeout)
		if err != nil {
			return s, err
		}
		s.APITimeout = Some(d)
	}
	if c.API.RatePerSec != 0 {
		s.APIRatePerSec = Some(c.API.RatePerSec)
	}
	return s, nil
}

func optString(p *string) Opt[string] {
	if p == nil {
		return None[string]()
	}
	return Some(*p)
}

func optNonBlank(s string) Opt[string] {
	if strings.TrimSpace(s) == "" {
		return None[string]()
	}
	return Some(strings.TrimSpace(s))
}
