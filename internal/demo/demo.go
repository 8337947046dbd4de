package demo

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/embedhttp/pkg/embedhttp"
	"github.com/yndnr/embedhttp/pkg/urlcodec"
)

// Options configures a Panel.
type Options struct {
	// Store persists settings. Without one the settings actions are not
	// registered.
	Store *Store
	// Interval is the period of the /updates event stream (default 1s).
	Interval time.Duration
	Logger   *slog.Logger
}

// Panel holds the state shared by the demo actions.
type Panel struct {
	opts    Options
	logger  *slog.Logger
	counter atomic.Int64
	feed    *Feed
}

// New creates a Panel. Call Register to bind its actions and Feed().Run to
// start the event stream.
func New(opts Options) *Panel {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		opts:   opts,
		logger: logger,
		feed:   NewFeed(opts.Interval, logger),
	}
}

// Feed returns the event stream behind /updates.
func (p *Panel) Feed() *Feed {
	return p.feed
}

// Register binds the demo actions on srv and installs the connection
// callback the event stream relies on.
func (p *Panel) Register(srv *embedhttp.Server) {
	srv.HandleHTMLGet("calculate", p.calculate)
	srv.HandleHTMLPost("greet", p.greet)
	srv.HandleTextGet("random", p.random)
	srv.HandleTextGet("up", p.up)
	srv.HandleTextGet("down", p.down)
	srv.HandleGenericGet("updates", p.feed.Subscribe)
	srv.SetConnectionCallback(p.feed.ConnectionCallback)

	if p.opts.Store != nil {
		srv.HandleTextGet("settings", p.listSettings)
		srv.HandleHTMLPost("settings", p.storeSettings)
	}
}

const pageHead = "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n"
const pageTail = "</body></html>\n"

func (p *Panel) calculate(w embedhttp.Writer, r *embedhttp.Request) error {
	params := r.Params()
	fmt.Fprintf(w, pageHead, "Calculate")

	x, errX := strconv.Atoi(params["x"])
	y, errY := strconv.Atoi(params["y"])
	if errX != nil || errY != nil {
		_, _ = w.WriteString("<p>Pass two integers as x and y.</p>\n")
	} else {
		fmt.Fprintf(w, "<p>%d + %d = %d</p>\n", x, y, x+y)
	}

	fmt.Fprintf(w, "<p><a href=\"/calculate?x=%d&amp;y=%d\">Feeling lucky?</a></p>\n",
		rand.IntN(100), rand.IntN(100))
	_, err := w.WriteString(pageTail)
	return err
}

func (p *Panel) greet(w embedhttp.Writer, r *embedhttp.Request) error {
	form, err := r.ReadForm()
	if err != nil {
		return err
	}
	name := strings.TrimSpace(form["name"])
	if name == "" {
		name = "stranger"
	}

	fmt.Fprintf(w, pageHead, "Greetings")
	fmt.Fprintf(w, "<p>Hello, %s!</p>\n", urlcodec.HTMLEncode(name))
	_, err = w.WriteString(pageTail)
	return err
}

func (p *Panel) random(w embedhttp.Writer, _ *embedhttp.Request) error {
	_, err := w.WriteString(strconv.Itoa(rand.IntN(1000)))
	return err
}

func (p *Panel) up(w embedhttp.Writer, _ *embedhttp.Request) error {
	_, err := w.WriteString(strconv.FormatInt(p.counter.Add(1), 10))
	return err
}

func (p *Panel) down(w embedhttp.Writer, _ *embedhttp.Request) error {
	_, err := w.WriteString(strconv.FormatInt(p.counter.Add(-1), 10))
	return err
}

func (p *Panel) listSettings(w embedhttp.Writer, r *embedhttp.Request) error {
	if key := r.Params()["key"]; key != "" {
		value, err := p.opts.Store.Get(key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = w.WriteString(value)
		return err
	}

	settings, err := p.opts.Store.List()
	if err != nil {
		return err
	}
	for _, s := range settings {
		if _, err := fmt.Fprintf(w, "%s=%s\n", s.Key, s.Value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) storeSettings(w embedhttp.Writer, r *embedhttp.Request) error {
	form, err := r.ReadForm()
	if err != nil {
		return err
	}
	if err := p.opts.Store.Set(form); err != nil {
		return err
	}
	p.logger.Info("settings stored", "count", len(form))

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, pageHead, "Settings")
	_, _ = w.WriteString("<ul>\n")
	for _, k := range keys {
		fmt.Fprintf(w, "<li>%s = %s</li>\n", urlcodec.HTMLEncode(k), urlcodec.HTMLEncode(form[k]))
	}
	_, err = w.WriteString("</ul>\n" + pageTail)
	return err
}
