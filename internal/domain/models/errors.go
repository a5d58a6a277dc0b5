package models

import "errors"

var (
	// ErrInsufficientData means the input has fewer rows than the method needs.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNotApplicable reports a metric whose denominator is zero.
	ErrNotApplicable = errors.New("not applicable")
	// ErrUnknownSubject means an asset or user has no data at all.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrInvalidLexicon is a configuration error: the lexicon is empty or malformed.
	ErrInvalidLexicon = errors.New("invalid lexicon")
	ErrEmptyPortfolio = errors.New("empty portfolio")
	// ErrInvalidConfidence is returned for VaR confidence levels outside (0, 1).
	ErrInvalidConfidence = errors.New("confidence must be in (0, 1)")
)
