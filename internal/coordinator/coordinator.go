// Package coordinator is the producer side of a cross-post run: it logs in,
// resolves each destination query to communities and queues one WorkItem per
// accepted community.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"xpost/internal/config"
	"xpost/internal/dispatch"
	"xpost/internal/post"
	logx "xpost/pkg/logx"
)

// Client is the part of the content API the coordinator needs.
type Client interface {
	Authenticate(ctx context.Context, userName, password string) error
	ResolveDestinations(ctx context.Context, query string) ([]post.Destination, error)
}

type Config struct {
	Post   config.ResolvedConfig
	Client Client
	Queue  *dispatch.Queue
	Log    logx.Logger
}

// Report lists what happened to each destination.
type Report struct {
	Queued   []string
	NotFound []*DestinationError
	// Rejected holds destinations whose item was built but not queued
	// (overflow drop or reject) or could not be built.
	Rejected []string
}

type Coordinator struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config) *Coordinator {
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Coordinator{cfg: cfg, log: log}
}

// Run produces the work for the whole run and completes the queue exactly
// once, whatever the outcome.
//
// Only authentication failure and cancellation return an error. Lookup,
// build and enqueue failures are per destination and end up in the Report.
func (c *Coordinator) Run(ctx context.Context) (rep Report, err error) {
	q := c.cfg.Queue
	defer q.Complete()

	p := c.cfg.Post
	if err := c.cfg.Client.Authenticate(ctx, p.UserName, p.Password); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rep, ctxErr
		}
		c.log.Error("login failed", logx.String("username", p.UserName), logx.Err(err))
		return rep, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	c.log.Info("logged in", logx.String("username", p.UserName))

	seen := map[string]bool{}
	tpl := p.Template()
	for _, query := range p.Destinations {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		accepted, derr := c.resolve(ctx, query, p.Strict)
		if derr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			c.log.Warn("destination skipped", logx.String("destination", query), logx.Err(derr))
			rep.NotFound = append(rep.NotFound, derr)
			continue
		}

		for _, dest := range accepted {
			key := strings.ToLower(dest.Name)
			if seen[key] {
				c.log.Debug("community already queued", logx.String("destination", dest.Name), logx.String("query", query))
				continue
			}
			seen[key] = true

			item, err := post.Build(tpl, dest.Name)
			if err != nil {
				c.log.Error("build work item failed", logx.String("destination", dest.Name), logx.Err(err))
				rep.Rejected = append(rep.Rejected, dest.Name)
				continue
			}
			if err := q.Enqueue(ctx, item); err != nil {
				switch {
				case errors.Is(err, dispatch.ErrDropped), errors.Is(err, dispatch.ErrQueueFull):
					c.log.Warn("work item not queued", logx.String("destination", dest.Name), logx.Err(err))
					rep.Rejected = append(rep.Rejected, dest.Name)
					continue
				default:
					return rep, err
				}
			}
			c.log.Debug("work item queued", logx.String("destination", dest.Name), logx.Int("queue_len", q.Len()), logx.Int("queue_cap", q.Cap()))
			rep.Queued = append(rep.Queued, dest.Name)
		}
	}

	c.log.Info("all destinations processed",
		logx.Int("queued", len(rep.Queued)),
		logx.Int("not_found", len(rep.NotFound)),
		logx.Int("rejected", len(rep.Rejected)),
	)
	return rep, nil
}

// resolve looks query up and applies the matching policy.
// Strict accepts exactly one exact-name match; otherwise every match is accepted.
func (c *Coordinator) resolve(ctx context.Context, query string, strict bool) ([]post.Destination, *DestinationError) {
	matches, err := c.cfg.Client.ResolveDestinations(ctx, query)
	if err != nil {
		return nil, &DestinationError{Query: query, Err: err}
	}
	if len(matches) == 0 {
		return nil, &DestinationError{Query: query}
	}

	if !strict {
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name)
		}
		c.log.Info("communities found", logx.String("query", query), logx.Int("count", len(matches)), logx.Strings("communities", names))
		return matches, nil
	}

	var exact []post.Destination
	for _, m := range matches {
		if m.Exact || m.Name == query {
			exact = append(exact, m)
		}
	}
	if len(exact) != 1 {
		return nil, &DestinationError{Query: query, Matches: len(matches)}
	}
	c.log.Info("community found", logx.String("destination", exact[0].Name))
	return exact, nil
}
