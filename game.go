package main

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle"
)

const qrSize = 320

func serveWS(cfg *Config, engine *mathpuzzle.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		remote := realIP(r)
		logf(cfg, "SERVE: WebSocket client from %s", remote)
		engine.ServeWS(w, r, remote)
	}
}

// joinURL is the WebSocket address clients reach this server on.
func joinURL(cfg *Config, r *http.Request) string {
	scheme := "ws"
	if r.TLS != nil || cfg.scheme() == "https" {
		scheme = "wss"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		scheme = "wss"
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr") + "/ws"
}

func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		png, err := qrcode.Encode(joinURL(cfg, r), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}

// registerMathPuzzleGame sets up the game routes:
//   - /ws    → WebSocket bridge to the line protocol
//   - /qr    → PNG QR code of the WebSocket address
//   - /rooms → JSON list of open rooms
func registerMathPuzzleGame(cfg *Config, engine *mathpuzzle.Engine, errs chan<- error, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, engine))
	mux.GET(cfg.prefix+"/qr", serveQR(cfg))
	mux.GET(cfg.prefix+"/rooms", serveRooms(cfg, engine, errs))
}
