package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFault(cfg *Config, w http.ResponseWriter, err error) {
	writeJSON(cfg, w, httpStatusFor(err), map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validationFault("invalid request body: %v", err)
	}
	return nil
}

func serveGameState(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, game.State())
	}
}

func serveBuzzQueue(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		entries, err := game.Queue()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, entries)
	}
}

func serveBoard(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		board, err := game.Board()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, board)
	}
}

func serveScoreboard(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		players, err := game.Scoreboard()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, players)
	}
}

func handleBuzz(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			PlayerID string `json:"player_id"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFault(cfg, w, err)
			return
		}

		result, err := game.Buzz(body.PlayerID)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Buzz from %q (locked=%t queued=%t) via %s", body.PlayerID, result.Locked, result.Queued, realIP(r))
		writeJSON(cfg, w, http.StatusOK, result)
	}
}

func handleResolve(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			PlayerID string `json:"player_id"`
			Correct  *bool  `json:"correct"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFault(cfg, w, err)
			return
		}
		if body.Correct == nil {
			writeFault(cfg, w, validationFault("correct must be provided"))
			return
		}

		result, err := game.Resolve(body.PlayerID, *body.Correct)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Resolved clue for %q (correct=%t)", body.PlayerID, *body.Correct)
		writeJSON(cfg, w, http.StatusOK, result)
	}
}

func handleSkip(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		st, err := game.Skip()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, st)
	}
}

func handleSelectCard(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req SelectCardRequest
		if err := decodeBody(r, &req); err != nil {
			writeFault(cfg, w, err)
			return
		}

		st, err := game.SelectCard(req)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Selected %q for %d points", req.Category, req.Points)
		writeJSON(cfg, w, http.StatusOK, st)
	}
}

func handleUnlock(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		st, err := game.Unlock()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, st)
	}
}

func handleReading(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Reading *bool `json:"reading"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFault(cfg, w, err)
			return
		}
		if body.Reading == nil {
			writeFault(cfg, w, validationFault("reading must be provided"))
			return
		}

		st, err := game.SetReading(*body.Reading)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, st)
	}
}

func handleLifecycle(cfg *Config, op func() (GameState, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		st, err := op()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, st)
	}
}

func handleCreatePlayer(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFault(cfg, w, err)
			return
		}

		p, err := game.RegisterPlayer(body.Name)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Player %q registered as %s", p.Name, p.ID)
		writeJSON(cfg, w, http.StatusCreated, p)
	}
}

func serveListPlayers(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		players, err := game.Players()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, players)
	}
}

func handleDeletePlayer(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		if err := game.RemovePlayer(id); err != nil {
			writeFault(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Player %s removed", id)
		writeJSON(cfg, w, http.StatusOK, map[string]string{"deleted": id})
	}
}

func handleSetScore(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Score *int `json:"score"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFault(cfg, w, err)
			return
		}
		if body.Score == nil {
			writeFault(cfg, w, validationFault("score must be provided"))
			return
		}

		p, err := game.SetPlayerScore(ps.ByName("id"), *body.Score)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, p)
	}
}

func handleCreateQuestion(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req SubmitQuestionRequest
		if err := decodeBody(r, &req); err != nil {
			writeFault(cfg, w, err)
			return
		}

		q, err := game.SubmitQuestion(req)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Question submitted in %q for %d points", q.Category, q.Points)
		writeJSON(cfg, w, http.StatusCreated, q)
	}
}

func serveListQuestions(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		questions, err := game.Questions()
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, questions)
	}
}

func handleSelectQuestion(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Selected *bool `json:"selected"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeFault(cfg, w, err)
			return
		}
		if body.Selected == nil {
			writeFault(cfg, w, validationFault("selected must be provided"))
			return
		}

		q, err := game.SelectQuestion(ps.ByName("id"), *body.Selected)
		if err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, q)
	}
}

func handleDeleteQuestion(cfg *Config, game *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		if err := game.DeleteQuestion(id); err != nil {
			writeFault(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, map[string]string{"deleted": id})
	}
}

// QR handler: generates a PNG QR code for the join URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at $prefix/qr; strip trailing "/qr" to get the join URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		_, _ = w.Write(png)
	}
}

// registerBuzzerGame sets up the game API:
//   - $prefix/ws                     → websocket broadcast stream (+ buzzing)
//   - $prefix/qr                     → PNG QR code for the join URL
//   - $prefix/api/...                → request/response operations
func registerBuzzerGame(cfg *Config, game *Game, hub *Hub, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, hub))
	mux.GET(cfg.prefix+"/qr", qrHandler(cfg))

	mux.GET(cfg.prefix+"/api/state", serveGameState(cfg, game))
	mux.GET(cfg.prefix+"/api/queue", serveBuzzQueue(cfg, game))
	mux.GET(cfg.prefix+"/api/board", serveBoard(cfg, game))
	mux.GET(cfg.prefix+"/api/scoreboard", serveScoreboard(cfg, game))

	mux.POST(cfg.prefix+"/api/buzz", handleBuzz(cfg, game))
	mux.POST(cfg.prefix+"/api/resolve", handleResolve(cfg, game))
	mux.POST(cfg.prefix+"/api/skip", handleSkip(cfg, game))
	mux.POST(cfg.prefix+"/api/select", handleSelectCard(cfg, game))
	mux.POST(cfg.prefix+"/api/unlock", handleUnlock(cfg, game))
	mux.POST(cfg.prefix+"/api/reading", handleReading(cfg, game))

	mux.POST(cfg.prefix+"/api/game/start", handleLifecycle(cfg, game.StartGame))
	mux.POST(cfg.prefix+"/api/game/end", handleLifecycle(cfg, game.EndGame))
	mux.POST(cfg.prefix+"/api/game/reset", handleLifecycle(cfg, game.ResetGame))
	mux.POST(cfg.prefix+"/api/game/reset-board", handleLifecycle(cfg, game.ResetBoard))

	mux.POST(cfg.prefix+"/api/players", handleCreatePlayer(cfg, game))
	mux.GET(cfg.prefix+"/api/players", serveListPlayers(cfg, game))
	mux.DELETE(cfg.prefix+"/api/players/:id", handleDeletePlayer(cfg, game))
	mux.PUT(cfg.prefix+"/api/players/:id/score", handleSetScore(cfg, game))

	mux.POST(cfg.prefix+"/api/questions", handleCreateQuestion(cfg, game))
	mux.GET(cfg.prefix+"/api/questions", serveListQuestions(cfg, game))
	mux.PUT(cfg.prefix+"/api/questions/:id/select", handleSelectQuestion(cfg, game))
	mux.DELETE(cfg.prefix+"/api/questions/:id", handleDeleteQuestion(cfg, game))
}
