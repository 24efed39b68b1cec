// Package steam implements platforms.Adapter against the Steam Web API.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gamedjinn/sync/internal/constants"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"
	"github.com/gamedjinn/sync/internal/platforms"

	"github.com/sony/gobreaker/v2"
)

const (
	baseURL = "https://api.steampowered.com"

	platformSlug = "steam"

	// steamCDNIconURLFormat is Steam's documented pattern for an app's
	// library icon, keyed by appid and the img_icon_url hash GetOwnedGames
	// returns alongside it.
	steamCDNIconURLFormat = "https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg"
)

type credentials struct {
	SteamAPIKey string `json:"steamApiKey"`
}

type Adapter struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	cache      database.CacheClient
	log        logger.Logger
}

// New builds a Steam adapter. cache backs the owned-games snapshot
// CountGames/FetchBatch slice into pages; it should be the General cache
// partition, since the snapshot is platform-scoped rather than sync-scoped.
func New(cache database.CacheClient) *Adapter {
	settings := gobreaker.Settings{
		Name:        "steam-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
		cache:      cache,
		log:        logger.New("steamAdapter"),
	}
}

func (a *Adapter) PlatformSlug() string { return platformSlug }
func (a *Adapter) RequiresAuth() bool   { return true }

func (a *Adapter) get(ctx context.Context, endpoint string, params url.Values, apiKey string) ([]byte, error) {
	log := a.log.Function("get")

	params.Set("key", apiKey)
	params.Set("format", "json")

	reqURL := fmt.Sprintf("%s/%s?%s", baseURL, endpoint, params.Encode())

	body, err := a.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, platforms.NewTransientError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, platforms.NewRateLimitError(fmt.Errorf("steam API rate limit exceeded"), 60*time.Second)
		case resp.StatusCode == http.StatusForbidden:
			return nil, platforms.NewAuthError(fmt.Errorf("steam API access forbidden, check API key"))
		case resp.StatusCode == http.StatusNotFound:
			return nil, platforms.NewNotFoundError(fmt.Errorf("steam resource not found"))
		case resp.StatusCode != http.StatusOK:
			return nil, platforms.NewPermanentError(fmt.Errorf("steam API error: %d", resp.StatusCode))
		}

		buf := make([]byte, 0, 4096)
		readBuf := make([]byte, 4096)
		for {
			n, rerr := resp.Body.Read(readBuf)
			if n > 0 {
				buf = append(buf, readBuf[:n]...)
			}
			if rerr != nil {
				break
			}
		}

		return buf, nil
	})
	if err != nil {
		return nil, log.Err("steam request failed", err, "endpoint", endpoint)
	}

	return body, nil
}

func (a *Adapter) parseCredentials(raw []byte) (credentials, error) {
	var creds credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return credentials{}, platforms.NewAuthError(fmt.Errorf("invalid steam credentials payload: %w", err))
	}
	if creds.SteamAPIKey == "" {
		return credentials{}, platforms.NewAuthError(fmt.Errorf("steam API key is required"))
	}
	return creds, nil
}

func (a *Adapter) ValidateCredentials(ctx context.Context, raw []byte) error {
	creds, err := a.parseCredentials(raw)
	if err != nil {
		return err
	}

	_, err = a.get(ctx, "ISteamApps/GetAppList/v2", url.Values{}, creds.SteamAPIKey)
	return err
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
			AvatarFull  string `json:"avatarfull"`
		} `json:"players"`
	} `json:"response"`
}

func (a *Adapter) GetUserProfile(ctx context.Context, raw []byte, userIdentifier string) (*platforms.UserProfileData, error) {
	creds, err := a.parseCredentials(raw)
	if err != nil {
		return nil, err
	}

	body, err := a.get(ctx, "ISteamUser/GetPlayerSummaries/v2", url.Values{"steamids": {userIdentifier}}, creds.SteamAPIKey)
	if err != nil {
		return nil, err
	}

	var parsed playerSummariesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, platforms.NewPermanentError(fmt.Errorf("decoding steam player summary: %w", err))
	}
	if len(parsed.Response.Players) == 0 {
		return nil, platforms.NewNotFoundError(fmt.Errorf("steam user not found: %s", userIdentifier))
	}

	player := parsed.Response.Players[0]
	avatar := player.AvatarFull

	return &platforms.UserProfileData{
		UserIdentifier: player.SteamID,
		DisplayName:    player.PersonaName,
		AvatarURL:      &avatar,
	}, nil
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int `json:"game_count"`
		Games     []struct {
			AppID           int    `json:"appid"`
			Name            string `json:"name"`
			PlaytimeForever int    `json:"playtime_forever"`
			ImgIconURL      string `json:"img_icon_url"`
			Playtime2Weeks  int    `json:"playtime_2weeks"`
			RtimeLastPlayed int64  `json:"rtime_last_played"`
		} `json:"games"`
	} `json:"response"`
}

func libraryCacheKey(userIdentifier string) string {
	return fmt.Sprintf("%s:%s:%s", constants.PlatformLibraryCachePrefix, platformSlug, userIdentifier)
}

// loadLibrary fetches the user's full owned-games list and caches it for
// PlatformLibraryCacheTTL, so CountGames and FetchBatch present a stable,
// paginated view over a Steam API that only ever returns the whole library
// in one call. A later page of the same sync sees the same snapshot even if
// the user's library changes mid-sync.
func (a *Adapter) loadLibrary(ctx context.Context, creds credentials, userIdentifier string) ([]platforms.UserGameData, error) {
	log := a.log.Function("loadLibrary")

	var cached []platforms.UserGameData
	if found, err := database.NewCacheBuilder(a.cache, libraryCacheKey(userIdentifier)).WithContext(ctx).Get(&cached); err == nil && found {
		return cached, nil
	}

	params := url.Values{
		"steamid":                   {userIdentifier},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
	}

	body, err := a.get(ctx, "IPlayerService/GetOwnedGames/v1", params, creds.SteamAPIKey)
	if err != nil {
		return nil, err
	}

	var parsed ownedGamesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, platforms.NewPermanentError(fmt.Errorf("decoding steam owned games: %w", err))
	}

	results := make([]platforms.UserGameData, 0, len(parsed.Response.Games))
	for _, g := range parsed.Response.Games {
		appIDStr := fmt.Sprintf("%d", g.AppID)

		var lastPlayed *time.Time
		if g.RtimeLastPlayed > 0 {
			t := time.Unix(g.RtimeLastPlayed, 0).UTC()
			lastPlayed = &t
		}

		var coverImageURL *string
		if g.ImgIconURL != "" {
			url := fmt.Sprintf(steamCDNIconURLFormat, g.AppID, g.ImgIconURL)
			coverImageURL = &url
		}

		results = append(results, platforms.UserGameData{
			Game: platforms.GameData{
				Title:          g.Name,
				PlatformGameID: appIDStr,
				ExternalIDs:    map[string]string{"steamAppId": appIDStr},
				CoverImageURL:  coverImageURL,
			},
			Owned:                true,
			TotalPlaytimeMinutes: g.PlaytimeForever,
			LastPlayedAt:         lastPlayed,
		})
	}

	if err := database.NewCacheBuilder(a.cache, libraryCacheKey(userIdentifier)).
		WithContext(ctx).
		WithTTL(constants.PlatformLibraryCacheTTL).
		WithStruct(results).
		Set(); err != nil {
		log.Warn("failed to cache owned games snapshot, subsequent pages will re-fetch", "error", err, "userIdentifier", userIdentifier)
	}

	return results, nil
}

func (a *Adapter) CountGames(ctx context.Context, raw []byte, userIdentifier string) (int, error) {
	creds, err := a.parseCredentials(raw)
	if err != nil {
		return 0, err
	}

	library, err := a.loadLibrary(ctx, creds, userIdentifier)
	if err != nil {
		return 0, err
	}

	return len(library), nil
}

func (a *Adapter) FetchBatch(ctx context.Context, raw []byte, userIdentifier string, offset, limit int) ([]platforms.UserGameData, error) {
	creds, err := a.parseCredentials(raw)
	if err != nil {
		return nil, err
	}

	library, err := a.loadLibrary(ctx, creds, userIdentifier)
	if err != nil {
		return nil, err
	}

	if offset >= len(library) {
		return []platforms.UserGameData{}, nil
	}

	end := offset + limit
	if end > len(library) {
		end = len(library)
	}

	return library[offset:end], nil
}

// GetGameAchievements and GetUserAchievements are implemented against
// ISteamUserStats; Steam exposes schema and per-user unlock state as two
// separate endpoints keyed by appid.

func (a *Adapter) GetGameAchievements(ctx context.Context, raw []byte, platformGameID string) ([]platforms.AchievementData, error) {
	creds, err := a.parseCredentials(raw)
	if err != nil {
		return nil, err
	}

	body, err := a.get(ctx, "ISteamUserStats/GetSchemaForGame/v2", url.Values{"appid": {platformGameID}}, creds.SteamAPIKey)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Game struct {
			AvailableGameStats struct {
				Achievements []struct {
					Name        string `json:"name"`
					DisplayName string `json:"displayName"`
					Description string `json:"description"`
					Icon        string `json:"icon"`
					Hidden      int    `json:"hidden"`
				} `json:"achievements"`
			} `json:"availableGameStats"`
		} `json:"game"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, platforms.NewPermanentError(fmt.Errorf("decoding steam achievement schema: %w", err))
	}

	achievements := make([]platforms.AchievementData, 0, len(parsed.Game.AvailableGameStats.Achievements))
	for _, ach := range parsed.Game.AvailableGameStats.Achievements {
		desc := ach.Description
		icon := ach.Icon
		achievements = append(achievements, platforms.AchievementData{
			PlatformAchievementID: ach.Name,
			Title:                 ach.DisplayName,
			Description:           &desc,
			IconURL:               &icon,
			Hidden:                ach.Hidden == 1,
		})
	}

	return achievements, nil
}

func (a *Adapter) GetUserAchievements(ctx context.Context, raw []byte, userIdentifier, platformGameID string) ([]platforms.UserAchievementData, error) {
	creds, err := a.parseCredentials(raw)
	if err != nil {
		return nil, err
	}

	params := url.Values{"steamid": {userIdentifier}, "appid": {platformGameID}}
	body, err := a.get(ctx, "ISteamUserStats/GetPlayerAchievements/v1", params, creds.SteamAPIKey)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		PlayerStats struct {
			Achievements []struct {
				APIName    string `json:"apiname"`
				Achieved   int    `json:"achieved"`
				UnlockTime int64  `json:"unlocktime"`
			} `json:"achievements"`
		} `json:"playerstats"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, platforms.NewPermanentError(fmt.Errorf("decoding steam player achievements: %w", err))
	}

	results := make([]platforms.UserAchievementData, 0, len(parsed.PlayerStats.Achievements))
	for _, ach := range parsed.PlayerStats.Achievements {
		if ach.Achieved != 1 {
			continue
		}

		var unlockedAt *time.Time
		if ach.UnlockTime > 0 {
			t := time.Unix(ach.UnlockTime, 0).UTC()
			unlockedAt = &t
		}

		results = append(results, platforms.UserAchievementData{
			Achievement:     platforms.AchievementData{PlatformAchievementID: ach.APIName},
			UnlockedAt:      unlockedAt,
			ProgressPercent: 100,
		})
	}

	return results, nil
}
