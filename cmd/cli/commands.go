package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	matchID    string
	gameID     string
	playerID   string
	sessionID  string
	discipline string
	winnerID   string
	scoreP1    int
	scoreP2    int
	limit      int
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(startMatchCmd)
	rootCmd.AddCommand(submitMatchCmd)
	rootCmd.AddCommand(forfeitMatchCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(submitGameCmd)
	rootCmd.AddCommand(editGameCmd)
	rootCmd.AddCommand(deleteGameCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(announceLeaderboardCmd)
	rootCmd.AddCommand(ratingCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(metricsCmd)

	matchesCmd.Flags().StringVar(&sessionID, "session", "", "Limit the listing to one session")

	for _, cmd := range []*cobra.Command{startMatchCmd, submitMatchCmd, forfeitMatchCmd, lockCmd} {
		cmd.Flags().StringVar(&matchID, "match", "", "The match id")
		cmd.MarkFlagRequired("match")
	}
	forfeitMatchCmd.Flags().StringVar(&playerID, "player", "", "The forfeiting player id")
	forfeitMatchCmd.MarkFlagRequired("player")

	for _, cmd := range []*cobra.Command{submitGameCmd, editGameCmd, deleteGameCmd} {
		cmd.Flags().StringVar(&matchID, "match", "", "The match id")
		cmd.MarkFlagRequired("match")
	}
	for _, cmd := range []*cobra.Command{submitGameCmd, editGameCmd} {
		cmd.Flags().StringVar(&discipline, "discipline", "8ball", "The discipline (8ball or 9ball)")
		cmd.Flags().StringVar(&winnerID, "winner", "", "The game winner's player id")
		cmd.Flags().IntVar(&scoreP1, "score-p1", 0, "Points for player 1")
		cmd.Flags().IntVar(&scoreP2, "score-p2", 0, "Points for player 2")
		cmd.MarkFlagRequired("winner")
	}
	for _, cmd := range []*cobra.Command{editGameCmd, deleteGameCmd} {
		cmd.Flags().StringVar(&gameID, "game", "", "The game id")
		cmd.MarkFlagRequired("game")
	}

	for _, cmd := range []*cobra.Command{leaderboardCmd, announceLeaderboardCmd} {
		cmd.Flags().StringVar(&sessionID, "session", "", "The session id")
		cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows (0 = server default)")
		cmd.MarkFlagRequired("session")
	}

	for _, cmd := range []*cobra.Command{ratingCmd, historyCmd} {
		cmd.Flags().StringVar(&playerID, "player", "", "The player id")
		cmd.MarkFlagRequired("player")
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health", nil)
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List matches, optionally for one session",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if sessionID != "" {
			params.Set("sessionID", sessionID)
		}
		return performGetRequest("/matches", params)
	},
}

var startMatchCmd = &cobra.Command{
	Use:   "start-match",
	Short: "Start a match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/matches/start", map[string]any{"match_id": matchID})
	},
}

var submitMatchCmd = &cobra.Command{
	Use:   "submit-match",
	Short: "Submit a match's score sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/matches/submit", map[string]any{"match_id": matchID})
	},
}

var forfeitMatchCmd = &cobra.Command{
	Use:   "forfeit-match",
	Short: "Forfeit a match on behalf of a player",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/matches/forfeit", map[string]any{"match_id": matchID, "player_id": playerID})
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Check the schedule lock of a match",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("matchID", matchID)
		return performGetRequest("/matches/lock", params)
	},
}

var submitGameCmd = &cobra.Command{
	Use:   "submit-game",
	Short: "Record one rack result for a match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/games/submit", map[string]any{
			"match_id":   matchID,
			"discipline": discipline,
			"winner_id":  winnerID,
			"score_p1":   scoreP1,
			"score_p2":   scoreP2,
		})
	},
}

var editGameCmd = &cobra.Command{
	Use:   "edit-game",
	Short: "Overwrite a recorded game in place",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/games/edit", map[string]any{
			"match_id":   matchID,
			"game_id":    gameID,
			"discipline": discipline,
			"winner_id":  winnerID,
			"score_p1":   scoreP1,
			"score_p2":   scoreP2,
		})
	},
}

var deleteGameCmd = &cobra.Command{
	Use:   "delete-game",
	Short: "Remove a game from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/games/delete", map[string]any{"match_id": matchID, "game_id": gameID})
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the ranked leaderboard for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("sessionID", sessionID)
		if limit > 0 {
			params.Set("limit", fmt.Sprint(limit))
		}
		return performGetRequest("/leaderboard", params)
	},
}

var announceLeaderboardCmd = &cobra.Command{
	Use:   "announce-leaderboard",
	Short: "Post a session's leaderboard to the notification channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{"session_id": sessionID}
		if limit > 0 {
			body["limit"] = limit
		}
		return performPostRequest("/leaderboard/announce", body)
	},
}

var ratingCmd = &cobra.Command{
	Use:   "rating",
	Short: "Show a player's rating and level",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("playerID", playerID)
		return performGetRequest("/players/rating", params)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a player's replayed rating history",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("playerID", playerID)
		return performGetRequest("/players/history", params)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics", nil)
	},
}

func buildURL(endpoint string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if dryRun {
		params.Set("dry_run", "true")
	}
	u := host + endpoint
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func performGetRequest(endpoint string, params url.Values) error {
	url := buildURL(endpoint, params)
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string, body map[string]any) error {
	url := buildURL(endpoint, nil)
	fmt.Printf("Making request to %s\n", url)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
