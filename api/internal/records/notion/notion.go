package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/records"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	pageSize       = 100
)

// Property names of the Notion database.
const (
	propNummer       = "Gutachten-Nr"
	propKunde        = "Kunde"
	propDatum        = "Datum"
	propStatus       = "Status"
	propStunden      = "Stunden"
	propStundensatz  = "Stundensatz"
	propBeschreibung = "Beschreibung"
	propBezahlt      = "Bezahlt"
	propFotos        = "Fotos"
)

type Store struct {
	Token      string
	DatabaseID string

	client *notionapi.Client
}

// New builds the store; a non-default baseURL reroutes every API call to that host.
func New(token, databaseID, baseURL string) *Store {
	s := &Store{
		Token:      strings.TrimSpace(token),
		DatabaseID: strings.TrimSpace(databaseID),
	}
	httpc := &http.Client{Timeout: 30 * time.Second}
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" && base != DefaultBaseURL {
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			httpc.Transport = hostRewrite{target: u, next: http.DefaultTransport}
		}
	}
	s.client = notionapi.NewClient(notionapi.Token(s.Token), notionapi.WithHTTPClient(httpc))
	return s
}

// hostRewrite sends requests to target, keeping path and query.
type hostRewrite struct {
	target *url.URL
	next   http.RoundTripper
}

func (h hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = h.target.Scheme
	r.URL.Host = h.target.Host
	r.Host = h.target.Host
	return h.next.RoundTrip(r)
}

func (s *Store) Name() string     { return "notion" }
func (s *Store) Configured() bool { return s.Token != "" && s.DatabaseID != "" }

func text(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}

func plain(rt []notionapi.RichText) string {
	if len(rt) == 0 {
		return ""
	}
	if rt[0].PlainText != "" {
		return rt[0].PlainText
	}
	if rt[0].Text != nil {
		return rt[0].Text.Content
	}
	return ""
}

func toProperties(g records.Gutachten) notionapi.Properties {
	props := notionapi.Properties{
		propNummer:       notionapi.TitleProperty{Title: text(g.Nummer)},
		propKunde:        notionapi.RichTextProperty{RichText: text(g.Kunde)},
		propStatus:       notionapi.SelectProperty{Select: notionapi.Option{Name: g.Status}},
		propStunden:      notionapi.NumberProperty{Number: g.Stunden},
		propStundensatz:  notionapi.NumberProperty{Number: g.Stundensatz},
		propBeschreibung: notionapi.RichTextProperty{RichText: text(g.Beschreibung)},
		propBezahlt:      notionapi.CheckboxProperty{Checkbox: g.Bezahlt},
	}
	if d, err := time.Parse(time.DateOnly, g.Datum); err == nil {
		start := notionapi.Date(d)
		props[propDatum] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}
	}
	if len(g.FotoURLs) > 0 {
		files := make([]notionapi.File, len(g.FotoURLs))
		for i, u := range g.FotoURLs {
			name := fmt.Sprintf("%s-%d.jpg", g.Nummer, i+1)
			if len(g.FotoURLs) == 1 {
				name = g.Nummer + ".jpg"
			}
			files[i] = notionapi.File{Type: "external", Name: name, External: &notionapi.FileObject{URL: u}}
		}
		props[propFotos] = notionapi.FilesProperty{Files: files}
	}
	return props
}

func fromPage(p notionapi.Page) records.Gutachten {
	pr := p.Properties
	g := records.Gutachten{
		ID:     string(p.ID),
		URL:    p.URL,
		Status: records.StatusOffen,
	}
	if v, ok := pr[propNummer].(*notionapi.TitleProperty); ok {
		g.Nummer = plain(v.Title)
	}
	if v, ok := pr[propKunde].(*notionapi.RichTextProperty); ok {
		g.Kunde = plain(v.RichText)
	}
	if v, ok := pr[propBeschreibung].(*notionapi.RichTextProperty); ok {
		g.Beschreibung = plain(v.RichText)
	}
	if v, ok := pr[propDatum].(*notionapi.DateProperty); ok && v.Date != nil && v.Date.Start != nil {
		g.Datum = time.Time(*v.Date.Start).Format(time.DateOnly)
	}
	if v, ok := pr[propStatus].(*notionapi.SelectProperty); ok && v.Select.Name != "" {
		g.Status = v.Select.Name
	}
	if v, ok := pr[propStunden].(*notionapi.NumberProperty); ok {
		g.Stunden = v.Number
	}
	if v, ok := pr[propStundensatz].(*notionapi.NumberProperty); ok {
		g.Stundensatz = v.Number
	}
	if v, ok := pr[propBezahlt].(*notionapi.CheckboxProperty); ok {
		g.Bezahlt = v.Checkbox
	}
	if v, ok := pr[propFotos].(*notionapi.FilesProperty); ok {
		for _, f := range v.Files {
			if f.External != nil && f.External.URL != "" {
				g.FotoURLs = append(g.FotoURLs, f.External.URL)
			}
		}
	}
	g.Umsatz = g.Stunden * g.Stundensatz
	return g
}

// ---- operations ----

func (s *Store) Create(ctx context.Context, g records.Gutachten) (records.Saved, error) {
	const op = "notion.create"
	if err := s.ready(op); err != nil {
		return records.Saved{}, err
	}
	started := time.Now()
	p, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       "database_id",
			DatabaseID: notionapi.DatabaseID(s.DatabaseID),
		},
		Properties: toProperties(g),
	})
	err = upstream(op, err)
	metrics.ObserveUpstream("notion", started, err)
	if err != nil {
		return records.Saved{}, err
	}
	return records.Saved{ID: string(p.ID), URL: p.URL}, nil
}

// List follows next_cursor until the database is exhausted.
func (s *Store) List(ctx context.Context) ([]records.Gutachten, error) {
	const op = "notion.list"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	out := []records.Gutachten{}
	var cursor notionapi.Cursor
	for {
		started := time.Now()
		qr, err := s.client.Database.Query(ctx, notionapi.DatabaseID(s.DatabaseID), &notionapi.DatabaseQueryRequest{
			Sorts:       []notionapi.SortObject{{Property: propDatum, Direction: "descending"}},
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		err = upstream(op, err)
		metrics.ObserveUpstream("notion", started, err)
		if err != nil {
			return nil, err
		}
		for _, p := range qr.Results {
			out = append(out, fromPage(p))
		}
		if !qr.HasMore || qr.NextCursor == "" {
			return out, nil
		}
		cursor = qr.NextCursor
	}
}

// UpdateStatus accepts only Notion page ids (UUID, with or without dashes).
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	const op = "notion.update_status"
	if err := s.ready(op); err != nil {
		return err
	}
	pid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return apperr.Validation(op, "Ungültige Notion-Seiten-ID")
	}
	started := time.Now()
	_, err = s.client.Page.Update(ctx, notionapi.PageID(pid.String()), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propStatus: notionapi.SelectProperty{Select: notionapi.Option{Name: status}},
		},
	})
	err = upstream(op, err)
	metrics.ObserveUpstream("notion", started, err)
	return err
}

func (s *Store) ready(op string) error {
	if !s.Configured() {
		return apperr.Configuration(op, "NOTION_TOKEN oder NOTION_DATABASE_ID fehlt")
	}
	return nil
}

func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.Upstream(op, "Notion-Fehler", err)
}
