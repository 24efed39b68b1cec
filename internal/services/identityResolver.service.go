package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	fuzzyMatchThreshold  = 0.92
	titleExactConfidence = 0.95
)

// editionSuffixes is stripped from the end of a normalized title (only the
// first entry in list order that matches), so "the witcher 3 wild hunt
// goty" and "the witcher 3 wild hunt" normalize to the same key.
var editionSuffixes = []string{
	"game of the year edition",
	"definitive edition",
	"complete edition",
	"ultimate edition",
	"deluxe edition",
	"premium edition",
	"directors cut",
	"remastered",
	"goty",
	"hd",
}

var nonWordRunRE = regexp.MustCompile(`[^\w\s]`)
var whitespaceRunRE = regexp.MustCompile(`\s+`)

// NormalizeTitle implements GIR's normalization step: lowercase, NFKD,
// strip punctuation/trademark glyphs, collapse whitespace, then drop a
// known edition suffix.
func NormalizeTitle(title string) string {
	folded := strings.ToLower(title)
	folded = norm.NFKD.String(folded)
	folded = nonWordRunRE.ReplaceAllString(folded, "")
	folded = whitespaceRunRE.ReplaceAllString(folded, " ")
	folded = strings.TrimSpace(folded)

	for _, suffix := range editionSuffixes {
		if strings.HasSuffix(folded, suffix) {
			folded = strings.TrimSpace(strings.TrimSuffix(folded, suffix))
			break
		}
	}

	return folded
}

// IdentityResolverService decides, for an incoming normalized game from a
// platform adapter, which catalog Game row it refers to — inserting a new
// one only when every matching strategy misses.
type IdentityResolverService struct {
	log       logger.Logger
	games     repositories.GameRepository
	matches   repositories.GameMatchRepository
}

func NewIdentityResolverService(games repositories.GameRepository, matches repositories.GameMatchRepository) *IdentityResolverService {
	return &IdentityResolverService{
		log:     logger.New("IdentityResolverService"),
		games:   games,
		matches: matches,
	}
}

// ResolveInput is the subset of a platform's normalized game relevant to
// matching; CatalogService fills in the rest of the Game row once the
// identity is decided.
type ResolveInput struct {
	Title       string
	Developer   *string
	Publisher   *string
	ExternalIDs map[string]string
}

// PendingGameMatch is a GameMatch edge Resolve has decided to write but
// cannot yet, because the new Game row it references has not been persisted:
// CS upserts the returned Game first, then asks GIR to record the match.
type PendingGameMatch struct {
	PrimaryGameID uuid.UUID
	Method        MatchMethod
	Confidence    float64
}

// Resolve returns the catalog Game the input refers to, creating one if no
// strategy matches. isNew reports whether a Game row was just inserted.
//
// A TitleExact or TitleFuzzy hit does not reuse the existing row directly:
// it inserts a new Game (preserving this platform's own reported fields)
// and returns a PendingGameMatch linking it back to the existing row with
// verified=false, so a human can confirm or reject the merge rather than
// having two platforms' reports silently collapse into one row on a
// probabilistic match. An ExternalId hit is exact by construction and
// reuses the existing row with no match to review.
func (s *IdentityResolverService) Resolve(ctx context.Context, input ResolveInput) (game *Game, isNew bool, pendingMatch *PendingGameMatch, err error) {
	log := s.log.Function("Resolve")

	normalized := NormalizeTitle(input.Title)

	if match, err := s.resolveByExternalID(ctx, input); err != nil {
		return nil, false, nil, log.Err("failed external id resolution", err, "title", input.Title)
	} else if match != nil {
		return match, false, nil, nil
	}

	exactMatches, err := s.games.FindByNormalizedTitle(ctx, normalized)
	if err != nil {
		return nil, false, nil, log.Err("failed exact title lookup", err, "normalizedTitle", normalized)
	}
	if len(exactMatches) > 0 {
		created := newGameFromInput(input, normalized)
		pending := &PendingGameMatch{
			PrimaryGameID: exactMatches[0].ID,
			Method:        MatchMethodTitleExact,
			Confidence:    titleExactConfidence,
		}
		return created, true, pending, nil
	}

	fuzzyMatches, err := s.games.FindFuzzyByTitle(ctx, normalized, fuzzyMatchThreshold, 5)
	if err != nil {
		return nil, false, nil, log.Err("failed fuzzy title lookup", err, "normalizedTitle", normalized)
	}
	for _, candidate := range fuzzyMatches {
		if !samePublisherOrDeveloper(candidate.Game, input) {
			continue
		}
		created := newGameFromInput(input, normalized)
		pending := &PendingGameMatch{
			PrimaryGameID: candidate.Game.ID,
			Method:        MatchMethodTitleFuzzy,
			Confidence:    candidate.Score,
		}
		return created, true, pending, nil
	}

	return newGameFromInput(input, normalized), true, nil, nil
}

func newGameFromInput(input ResolveInput, normalized string) *Game {
	return &Game{
		Title:           input.Title,
		NormalizedTitle: normalized,
		Developer:       input.Developer,
		Publisher:       input.Publisher,
	}
}

// resolveByExternalID matches purely on storefront identifier, independent
// of title: this is the strategy that exists specifically to catch a game
// whose title changed between platforms, so it must never be gated by a
// title-based pre-filter.
func (s *IdentityResolverService) resolveByExternalID(ctx context.Context, input ResolveInput) (*Game, error) {
	if len(input.ExternalIDs) == 0 {
		return nil, nil
	}

	candidates, err := s.games.FindByExternalIDs(ctx, input.ExternalIDs)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	return candidates[0], nil
}

func samePublisherOrDeveloper(existing *Game, input ResolveInput) bool {
	if existing.Publisher != nil && input.Publisher != nil {
		return strings.EqualFold(*existing.Publisher, *input.Publisher)
	}
	if existing.Developer != nil && input.Developer != nil {
		return strings.EqualFold(*existing.Developer, *input.Developer)
	}
	return existing.Publisher == nil && existing.Developer == nil
}

// MergeGames links two genuinely distinct catalog Game rows discovered to
// be the same title. CS calls this once a Resolve-returned PendingGameMatch's
// new Game row has been persisted; an ad-hoc catalog-deduplication job can
// also call it directly (MatchMethodManual) to link two existing rows a
// human has confirmed are duplicates.
func (s *IdentityResolverService) MergeGames(ctx context.Context, primaryGameID, duplicateGameID uuid.UUID, method MatchMethod, confidence float64) (*GameMatch, error) {
	log := s.log.Function("MergeGames")

	match := &GameMatch{
		PrimaryGameID: primaryGameID,
		MatchedGameID: duplicateGameID,
		Confidence:    confidence,
		Method:        method,
		Verified:      false,
	}

	stored, err := s.matches.Upsert(ctx, match)
	if err != nil {
		return nil, log.Err("failed to merge games", err, "primaryGameID", primaryGameID, "duplicateGameID", duplicateGameID)
	}

	return stored, nil
}
