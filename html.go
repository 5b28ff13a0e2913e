/*
Copyright © 2026 HexDino
*/

package main

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle"
)

func serveHomePage(cfg *Config, engine *mathpuzzle.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		var body strings.Builder

		body.WriteString("<h1>Math Puzzle</h1>")
		body.WriteString(fmt.Sprintf("<p>Line clients connect to TCP port %d. Browsers use the WebSocket at <code>%s</code>.</p>",
			cfg.gamePort, html.EscapeString(cfg.prefix+"/ws")))
		body.WriteString(fmt.Sprintf(`<p><img src="%s" alt="join code"></p>`, html.EscapeString(cfg.prefix+"/qr")))

		rooms := engine.Lobby().Rooms()
		if len(rooms) == 0 {
			body.WriteString("<p>No rooms are open.</p>")
		} else {
			body.WriteString("<table><tr><th>ID</th><th>Name</th><th>Players</th><th>Status</th></tr>")
			for _, room := range rooms {
				status := "forming"
				if room.Started {
					status = "playing"
				}
				body.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td><td>%d/4</td><td>%s</td></tr>",
					room.ID, html.EscapeString(room.Name), room.Players, status))
			}
			body.WriteString("</table>")
		}

		_, _ = w.Write([]byte(newPage("Math Puzzle", body.String())))
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRooms(cfg *Config, engine *mathpuzzle.Engine, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		data, err := json.Marshal(engine.Lobby().Rooms())
		if err != nil {
			errs <- err

			http.Error(w, "could not list rooms", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room list (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := "User-agent: *\nDisallow: /\n"

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
