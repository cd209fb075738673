// Package sitemap renders sitemap.xml from the static pages and the live
// catalog.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"topdivers/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Catalog is the slice of the API the sitemap reads.
type Catalog interface {
	ListTrips(ctx context.Context) ([]models.Trip, error)
	ListPackages(ctx context.Context) ([]models.Package, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
}

// Page is a static storefront route.
type Page struct {
	Path       string  `yaml:"path"`
	ChangeFreq string  `yaml:"changefreq"`
	Priority   float64 `yaml:"priority"`
}

// DefaultPages is used when no pages file is configured.
var DefaultPages = []Page{
	{Path: "/", ChangeFreq: "daily", Priority: 1.0},
	{Path: "/trips", ChangeFreq: "daily", Priority: 0.9},
	{Path: "/packages", ChangeFreq: "weekly", Priority: 0.9},
	{Path: "/courses", ChangeFreq: "weekly", Priority: 0.9},
	{Path: "/dive-sites", ChangeFreq: "monthly", Priority: 0.7},
	{Path: "/blogs", ChangeFreq: "weekly", Priority: 0.6},
	{Path: "/about", ChangeFreq: "monthly", Priority: 0.5},
	{Path: "/contact", ChangeFreq: "monthly", Priority: 0.5},
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type Generator struct {
	baseURL string
	pages   []Page
	catalog Catalog
	timeout time.Duration
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewGenerator(baseURL string, pages []Page, catalog Catalog, timeout time.Duration, logger *zerolog.Logger) *Generator {
	if len(pages) == 0 {
		pages = DefaultPages
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		pages:   pages,
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate always returns a sitemap. When the catalog cannot be read within
// the timeout only the static pages are listed.
func (g *Generator) Generate(ctx context.Context) []byte {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		trips    []models.Trip
		packages []models.Package
		courses  []models.Course
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		trips, err = g.catalog.ListTrips(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		packages, err = g.catalog.ListPackages(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		courses, err = g.catalog.ListCourses(egCtx)
		return err
	})

	entries := g.staticEntries()
	if err := eg.Wait(); err != nil {
		g.logger.Warn().Err(err).Msg("sitemap catalog fetch failed, serving static pages")
		return g.render(entries)
	}

	lastMod := g.now().UTC().Format("2006-01-02")
	for _, t := range trips {
		entries = append(entries, g.entry(fmt.Sprintf("/trips/%d", t.ID), lastMod, "weekly", 0.8))
	}
	for _, p := range packages {
		entries = append(entries, g.entry(fmt.Sprintf("/packages/%d", p.ID), lastMod, "weekly", 0.8))
	}
	for _, c := range courses {
		entries = append(entries, g.entry(fmt.Sprintf("/courses/%d", c.ID), lastMod, "weekly", 0.8))
	}
	return g.render(entries)
}

func (g *Generator) staticEntries() []urlEntry {
	lastMod := g.now().UTC().Format("2006-01-02")
	entries := make([]urlEntry, 0, len(g.pages))
	for _, p := range g.pages {
		entries = append(entries, g.entry(p.Path, lastMod, p.ChangeFreq, p.Priority))
	}
	return entries
}

func (g *Generator) entry(path, lastMod, freq string, priority float64) urlEntry {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	e := urlEntry{Loc: g.baseURL + path, LastMod: lastMod, ChangeFreq: freq}
	if priority > 0 {
		e.Priority = fmt.Sprintf("%.1f", priority)
	}
	return e
}

func (g *Generator) render(entries []urlEntry) []byte {
	out, err := xml.MarshalIndent(urlSet{Xmlns: xmlns, URLs: entries}, "", "  ")
	if err != nil {
		g.logger.Error().Err(err).Msg("sitemap marshal failed")
		return []byte(xml.Header + `<urlset xmlns="` + xmlns + `"></urlset>`)
	}
	return append([]byte(xml.Header), out...)
}
