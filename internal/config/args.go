package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Args is the parsed command line.
type Args struct {
	Post     PartialConfig
	Settings PartialSettings

	ConfigPath  string
	Interactive bool
	NoPrompt    bool
}

// listFlag collects comma separated values; the flag may be repeated.
type listFlag struct{ vals []string }

func (l *listFlag) String() string { return strings.Join(l.vals, ",") }

func (l *listFlag) Set(s string) error {
	l.vals = append(l.vals, SplitList(s)...)
	return nil
}

// FromArgs parses command-line arguments (without the program name).
// Only flags given on the command line become present fields.
func FromArgs(args []string, out io.Writer) (Args, error) {
	var (
		a           Args
		strict      bool
		title, body string
		kind        string
		user, pass  string
		comms       listFlag
		capacity    int
		pace        time.Duration
		overflow    string
		logLevel    string
		logFile     string
		jDriver     string
		jPath       string
		apiBase     string
	)

	fs := flag.NewFlagSet("xpost", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.BoolVar(&strict, "strict", false, "only post to communities whose name matches exactly")
	for _, n := range []string{"t", "title"} {
		fs.StringVar(&title, n, "", "post title")
	}
	for _, n := range []string{"m", "body"} {
		fs.StringVar(&body, n, "", "post body (text), or URL for link and image posts")
	}
	for _, n := range []string{"y", "type", "kind"} {
		fs.StringVar(&kind, n, "", "post kind: text, link or image")
	}
	for _, n := range []string{"u", "user"} {
		fs.StringVar(&user, n, "", "account user name")
	}
	for _, n := range []string{"p", "password"} {
		fs.StringVar(&pass, n, "", "account password")
	}
	for _, n := range []string{"c", "communities"} {
		fs.Var(&comms, n, "comma separated communities to post to (repeatable)")
	}
	fs.StringVar(&a.ConfigPath, "config", DefaultConfigPath, "path to config file (json, yaml or toml)")
	fs.BoolVar(&a.Interactive, "i", false, "prompt for every field")
	fs.BoolVar(&a.NoPrompt, "no-prompt", false, "never prompt; fail on missing fields")
	fs.IntVar(&capacity, "capacity", DefaultCapacity, "dispatch queue capacity")
	fs.DurationVar(&pace, "pace", DefaultPace, "delay between posts")
	fs.StringVar(&overflow, "overflow", DefaultOverflow, "queue overflow policy: block, drop-oldest, drop-newest, reject")
	fs.StringVar(&logLevel, "log-level", DefaultLogLevel, "log level: trace, debug, info, warn, error")
	fs.StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	fs.StringVar(&jDriver, "journal-driver", DefaultJournalDriver, "delivery journal: none, file, sqlite")
	fs.StringVar(&jPath, "journal", DefaultJournalPath, "delivery journal path")
	fs.StringVar(&apiBase, "api", DefaultAPIBaseURL, "content API base URL")

	if err := fs.Parse(args); err != nil {
		return a, err
	}
	if fs.NArg() > 0 {
		return a, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	given := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	if given("strict") {
		a.Post.Strict = Some(strict)
	}
	if given("t", "title") {
		a.Post.Title = Some(title)
	}
	if given("m", "body") {
		a.Post.Body = Some(body)
	}
	if given("y", "type", "kind") {
		a.Post.Kind = Some(kind)
	}
	if given("u", "user") {
		a.Post.UserName = Some(user)
	}
	if given("p", "password") {
		a.Post.Password = Some(pass)
	}
	if given("c", "communities") {
		a.Post.Destinations = someList(comms.vals)
	}

	if given("capacity") {
		a.Settings.Capacity = Some(capacity)
	}
	if given("pace") {
		a.Settings.Pace = Some(pace)
	}
	if given("overflow") {
		a.Settings.Overflow = Some(overflow)
	}
	if given("log-level") {
		a.Settings.LogLevel = Some(logLevel)
	}
	if given("log-file") {
		a.Settings.LogFile = Some(logFile)
	}
	if given("journal-driver") {
		a.Settings.JournalDriver = Some(jDriver)
	}
	if given("journal") {
		a.Settings.JournalPath = Some(jPath)
	}
	if given("api") {
		a.Settings.APIBaseURL = Some(apiBase)
	}
	return a, nil
}
