package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/services/sentiment"
)

// BuiltinLexicon serves the compiled-in keyword table.
type BuiltinLexicon struct{}

func (BuiltinLexicon) Load(context.Context) (*models.KeywordLexicon, error) {
	return sentiment.DefaultLexicon(), nil
}

// FileLexicon reads a YAML lexicon: a version and a list of entries.
type FileLexicon struct {
	Path string
}

func (f FileLexicon) Load(ctx context.Context) (*models.KeywordLexicon, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", f.Path, err)
	}
	return ParseLexicon(b)
}

// ParseLexicon decodes and validates a YAML lexicon.
func ParseLexicon(b []byte) (*models.KeywordLexicon, error) {
	var lex models.KeywordLexicon
	if err := yaml.Unmarshal(b, &lex); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidLexicon, err)
	}
	lex.LoadedAt = time.Now().UTC()
	if err := sentiment.ValidateLexicon(&lex); err != nil {
		return nil, err
	}
	return &lex, nil
}

// PGLexicon loads the newest lexicon version from Postgres.
//
//	CREATE TABLE sentiment_lexicon (
//	    version    text        NOT NULL,
//	    keyword    text        NOT NULL,
//	    category   text        NOT NULL,
//	    weight     double precision NOT NULL,
//	    created_at timestamptz NOT NULL DEFAULT now()
//	);
type PGLexicon struct {
	db *sqlx.DB
}

func NewPGLexicon(db *sqlx.DB) *PGLexicon {
	return &PGLexicon{db: db}
}

var (
	_ domrepo.LexiconSource = BuiltinLexicon{}
	_ domrepo.LexiconSource = FileLexicon{}
	_ domrepo.LexiconSource = (*PGLexicon)(nil)
)

const (
	latestLexiconVersionQuery = `
		SELECT version FROM sentiment_lexicon
		GROUP BY version
		ORDER BY max(created_at) DESC
		LIMIT 1`
	lexiconEntriesQuery = `
		SELECT keyword, category, weight FROM sentiment_lexicon
		WHERE version = $1
		ORDER BY keyword`
)

func (p *PGLexicon) Load(ctx context.Context) (*models.KeywordLexicon, error) {
	var version string
	if err := p.db.GetContext(ctx, &version, latestLexiconVersionQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no lexicon rows", models.ErrInvalidLexicon)
		}
		return nil, fmt.Errorf("lexicon version: %w", err)
	}
	var entries []models.LexiconEntry
	if err := p.db.SelectContext(ctx, &entries, lexiconEntriesQuery, version); err != nil {
		return nil, fmt.Errorf("lexicon entries: %w", err)
	}
	lex := &models.KeywordLexicon{Version: version, Entries: entries, LoadedAt: time.Now().UTC()}
	if err := sentiment.ValidateLexicon(lex); err != nil {
		return nil, err
	}
	return lex, nil
}
