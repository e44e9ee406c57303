package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

// PostgresStore keeps records in one table with a partition column and the
// feature sets in a second table.
type PostgresStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	log *slog.Logger
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

var recordColumns = []string{
	"kind", "title_key", "record_id",
	"title", "content", "url", "cover_image", "source",
	"group_id", "representative_title", "articles",
	"category", "week", "date_published", "date_published_raw",
	"short_summary", "long_summary", "inserted_at",
}

const ftsExpr = "to_tsvector('simple', coalesce(long_summary, ''))"

// NewPostgresStore connects, pings and creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string, log *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		log: logger.OrDefault(log),
		now: time.Now,
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.log.Info("✅ PostgreSQL store connected")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS news_records (
		pk BIGSERIAL PRIMARY KEY,
		partition TEXT NOT NULL,
		kind TEXT NOT NULL,
		title_key TEXT NOT NULL,
		record_id TEXT,
		title TEXT,
		content TEXT,
		url TEXT,
		cover_image TEXT,
		source TEXT,
		group_id TEXT,
		representative_title TEXT,
		articles JSONB,
		category TEXT,
		week TEXT,
		date_published TIMESTAMPTZ,
		date_published_raw TEXT,
		short_summary TEXT,
		long_summary TEXT,
		inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (partition, title_key)
	);

	CREATE INDEX IF NOT EXISTS idx_news_records_recent ON news_records(partition, date_published DESC);
	CREATE INDEX IF NOT EXISTS idx_news_records_week ON news_records(week);
	CREATE INDEX IF NOT EXISTS idx_news_records_record_id ON news_records(record_id);

	CREATE TABLE IF NOT EXISTS feature_sets (
		week TEXT PRIMARY KEY,
		feature_articles JSONB NOT NULL,
		image_urls TEXT[] NOT NULL DEFAULT '{}',
		generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, records []news.Record) (InsertResult, error) {
	var res InsertResult

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !insertable(r) {
			res.Skipped++
			continue
		}

		doc := encode(r, s.now())
		var articles sql.NullString
		if doc.Kind == kindGroup {
			b, err := json.Marshal(doc.Articles)
			if err != nil {
				return res, fmt.Errorf("encode group %s: %w", doc.GroupID, err)
			}
			articles = sql.NullString{String: string(b), Valid: true}
		}

		query, args, err := s.sb.Insert("news_records").
			Columns(append([]string{"partition"}, recordColumns...)...).
			Values(partitionOf(r), doc.Kind, doc.TitleKey, doc.RecordID,
				doc.Title, doc.Content, doc.URL, doc.CoverImage, doc.Source,
				doc.GroupID, doc.RepresentativeTitle, articles,
				doc.Category, doc.Week, nullTime(doc.DatePublished), doc.DatePublishedRaw,
				doc.ShortSummary, doc.LongSummary, doc.InsertedAt).
			Suffix("ON CONFLICT (partition, title_key) DO NOTHING").
			ToSql()
		if err != nil {
			return res, err
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return res, fmt.Errorf("insert %q: %w", doc.TitleKey, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			res.Skipped++
			continue
		}
		res.Inserted++
	}
	return res, nil
}

// RebuildIndex creates the GIN full-text index on long_summary. The index
// follows later writes by itself, so repeating the call is a no-op.
func (s *PostgresStore) RebuildIndex(ctx context.Context) error {
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_news_records_fts ON news_records USING GIN (%s)", ftsExpr)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create text index: %w", err)
	}
	return nil
}

func (s *PostgresStore) selectRecords() sq.SelectBuilder {
	return s.sb.Select(recordColumns...).From("news_records")
}

func (s *PostgresStore) query(ctx context.Context, b sq.SelectBuilder) ([]document, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (document, error) {
	var (
		d                                                  document
		recordID, title, content, url, cover, source       sql.NullString
		groupID, repTitle, category, week, raw, short, lng sql.NullString
		articles                                           []byte
		published                                          sql.NullTime
	)

	err := rows.Scan(&d.Kind, &d.TitleKey, &recordID,
		&title, &content, &url, &cover, &source,
		&groupID, &repTitle, &articles,
		&category, &week, &published, &raw,
		&short, &lng, &d.InsertedAt)
	if err != nil {
		return d, err
	}

	d.RecordID, d.Title, d.Content, d.URL = recordID.String, title.String, content.String, url.String
	d.CoverImage, d.Source, d.GroupID = cover.String, source.String, groupID.String
	d.RepresentativeTitle, d.Category, d.Week = repTitle.String, category.String, week.String
	d.DatePublishedRaw, d.ShortSummary, d.LongSummary = raw.String, short.String, lng.String
	if published.Valid {
		t := published.Time.UTC()
		d.DatePublished = &t
	}
	if len(articles) > 0 {
		if err := json.Unmarshal(articles, &d.Articles); err != nil {
			return d, fmt.Errorf("decode group members: %w", err)
		}
	}
	return d, nil
}

func (s *PostgresStore) GetByCategory(ctx context.Context, category string) ([]news.Record, error) {
	docs, err := s.query(ctx, s.selectRecords().
		Where(sq.Eq{"partition": category}).
		OrderBy("date_published DESC NULLS LAST", "pk"))
	if err != nil {
		return nil, fmt.Errorf("get by category: %w", err)
	}
	return decodeAll(docs), nil
}

func (s *PostgresStore) GetByID(ctx context.Context, category, id string) (news.Record, error) {
	b := s.selectRecords().Where(sq.Eq{"record_id": id}).OrderBy("pk").Limit(1)
	if category != "" {
		b = b.Where(sq.Eq{"partition": category})
	}

	docs, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0].decode(), nil
}

func (s *PostgresStore) TextSearch(ctx context.Context, query string) ([]news.Record, error) {
	docs, err := s.query(ctx, s.selectRecords().
		Where(sq.Expr(ftsExpr+" @@ plainto_tsquery('simple', ?)", query)).
		Where(sq.NotEq{"long_summary": news.SummaryUnavailable}).
		OrderByClause("ts_rank("+ftsExpr+", plainto_tsquery('simple', ?)) DESC", query))
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return dedupeByTitle(decodeAll(docs)), nil
}

func (s *PostgresStore) GetRecent(ctx context.Context, limitPerPartition int) ([]news.Record, error) {
	var out []news.Record
	for _, p := range news.Partitions() {
		b := s.selectRecords().
			Where(sq.Eq{"partition": p}).
			OrderBy("date_published DESC NULLS LAST", "pk DESC")
		if limitPerPartition > 0 {
			b = b.Limit(uint64(limitPerPartition))
		}

		docs, err := s.query(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("get recent %s: %w", p, err)
		}
		out = append(out, decodeAll(docs)...)
	}
	return out, nil
}

func (s *PostgresStore) GetWeek(ctx context.Context, week string) (*WeekDigest, error) {
	docs, err := s.query(ctx, s.selectRecords().
		Where(sq.Eq{"week": week}).
		OrderBy("partition", "pk"))
	if err != nil {
		return nil, fmt.Errorf("get week: %w", err)
	}

	digest := newWeekDigest(week)
	for _, d := range docs {
		digest.add(d.decode())
	}
	return digest, nil
}

func (s *PostgresStore) Weeks(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.Select("DISTINCT week").
		From("news_records").
		Where(sq.And{sq.NotEq{"week": nil}, sq.NotEq{"week": ""}}).
		OrderBy("week").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	defer rows.Close()

	var weeks []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func (s *PostgresStore) ReplaceFeatureSet(ctx context.Context, set FeatureSet) error {
	articles, err := json.Marshal(set.FeatureArticles)
	if err != nil {
		return fmt.Errorf("encode feature articles: %w", err)
	}
	if set.GeneratedAt.IsZero() {
		set.GeneratedAt = s.now().UTC()
	}
	if set.ImageURLs == nil {
		set.ImageURLs = []string{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del, delArgs, err := s.sb.Delete("feature_sets").Where(sq.Eq{"week": set.Week}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("delete feature set %s: %w", set.Week, err)
	}

	ins, insArgs, err := s.sb.Insert("feature_sets").
		Columns("week", "feature_articles", "image_urls", "generated_at").
		Values(set.Week, string(articles), pq.StringArray(set.ImageURLs), set.GeneratedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ins, insArgs...); err != nil {
		return fmt.Errorf("insert feature set %s: %w", set.Week, err)
	}

	return tx.Commit()
}

func (s *PostgresStore) GetFeatureSet(ctx context.Context, week string) (*FeatureSet, error) {
	query, args, err := s.sb.Select("week", "feature_articles", "image_urls", "generated_at").
		From("feature_sets").
		Where(sq.Eq{"week": week}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		set      FeatureSet
		articles []byte
		images   pq.StringArray
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&set.Week, &articles, &images, &set.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feature set: %w", err)
	}

	if err := json.Unmarshal(articles, &set.FeatureArticles); err != nil {
		return nil, fmt.Errorf("decode feature articles: %w", err)
	}
	set.ImageURLs = []string(images)
	return &set, nil
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
