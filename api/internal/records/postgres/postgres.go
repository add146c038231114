package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/records"
)

const schema = `
create table if not exists gutachten (
  id                bigserial primary key,
  created_at        timestamptz not null default now(),
  nummer            text not null,
  kunde             text not null default '',
  datum             date not null,
  status            text not null default 'Offen',
  stunden           double precision not null default 0,
  stundensatz       double precision not null default 0,
  beschreibung      text not null default '',
  bezahlt           boolean not null default false,
  foto_urls         jsonb not null default '[]',
  werkstoff         text not null default '',
  bewertungsgruppe  text not null default '',
  ergebnis          text not null default ''
);
create index if not exists gutachten_datum_idx on gutachten (datum desc, id desc);`

// Store keeps records in a Postgres table. Records have no public URL.
type Store struct{ DB *sql.DB }

func New(db *sql.DB) *Store { return &Store{DB: db} }

func (s *Store) Name() string     { return "postgres" }
func (s *Store) Configured() bool { return s != nil && s.DB != nil }

// Migrate создаёт таблицу, если её ещё нет.
func (s *Store) Migrate(ctx context.Context) error {
	if !s.Configured() {
		return apperr.Configuration("postgres.migrate", "DATABASE_URL fehlt")
	}
	_, err := s.DB.ExecContext(ctx, schema)
	return err
}

func (s *Store) Create(ctx context.Context, g records.Gutachten) (records.Saved, error) {
	const op = "postgres.create"
	if !s.Configured() {
		return records.Saved{}, apperr.Configuration(op, "DATABASE_URL fehlt")
	}
	fotos, _ := json.Marshal(nonNil(g.FotoURLs))
	const q = `
insert into gutachten (
  nummer, kunde, datum, status, stunden, stundensatz,
  beschreibung, bezahlt, foto_urls, werkstoff, bewertungsgruppe, ergebnis
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
returning id`
	started := time.Now()
	var id int64
	err := s.DB.QueryRowContext(ctx, q,
		g.Nummer, g.Kunde, g.Datum, g.Status, g.Stunden, g.Stundensatz,
		g.Beschreibung, g.Bezahlt, fotos, g.Werkstoff, g.Bewertungsgruppe, g.Ergebnis,
	).Scan(&id)
	if err != nil {
		err = apperr.Upstream(op, "Speichern fehlgeschlagen", err)
	}
	metrics.ObserveUpstream(s.Name(), started, err)
	if err != nil {
		return records.Saved{}, err
	}
	return records.Saved{ID: strconv.FormatInt(id, 10)}, nil
}

func (s *Store) List(ctx context.Context) ([]records.Gutachten, error) {
	const op = "postgres.list"
	if !s.Configured() {
		return nil, apperr.Configuration(op, "DATABASE_URL fehlt")
	}
	const q = `
select id, nummer, kunde, to_char(datum, 'YYYY-MM-DD'), status, stunden, stundensatz,
       beschreibung, bezahlt, foto_urls, werkstoff, bewertungsgruppe, ergebnis
from gutachten
order by datum desc, id desc`
	started := time.Now()
	out, err := s.list(ctx, q)
	if err != nil {
		err = apperr.Upstream(op, "Laden fehlgeschlagen", err)
	}
	metrics.ObserveUpstream(s.Name(), started, err)
	return out, err
}

func (s *Store) list(ctx context.Context, q string) ([]records.Gutachten, error) {
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []records.Gutachten{}
	for rows.Next() {
		var (
			id    int64
			g     records.Gutachten
			fotos []byte
		)
		if err := rows.Scan(&id, &g.Nummer, &g.Kunde, &g.Datum, &g.Status, &g.Stunden, &g.Stundensatz,
			&g.Beschreibung, &g.Bezahlt, &fotos, &g.Werkstoff, &g.Bewertungsgruppe, &g.Ergebnis); err != nil {
			return nil, err
		}
		g.ID = strconv.FormatInt(id, 10)
		// битый jsonb не должен ронять весь список
		_ = json.Unmarshal(fotos, &g.FotoURLs)
		g.Umsatz = g.Stunden * g.Stundensatz
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateStatus also keeps the bezahlt flag in step with the Bezahlt status.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	const op = "postgres.update_status"
	if !s.Configured() {
		return apperr.Configuration(op, "DATABASE_URL fehlt")
	}
	n, err := parseID(id)
	if err != nil {
		return apperr.Validation(op, err.Error())
	}
	const q = `update gutachten set status=$2, bezahlt = bezahlt or $2 = 'Bezahlt' where id=$1`
	started := time.Now()
	res, err := s.DB.ExecContext(ctx, q, n, status)
	if err != nil {
		err = apperr.Upstream(op, "Status-Update fehlgeschlagen", err)
		metrics.ObserveUpstream(s.Name(), started, err)
		return err
	}
	metrics.ObserveUpstream(s.Name(), started, nil)
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.Validation(op, fmt.Sprintf("Gutachten %s nicht gefunden", id))
	}
	return nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("ungültige ID %q", id)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
