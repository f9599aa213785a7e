package common

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type StatusResponse struct {
	InternalServerLatency string `json:"internal_server_latency"`
	Database              string `json:"database"`
	Uptime                string `json:"uptime"`
}

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusHandler reports uptime and database reachability
type StatusHandler struct {
	db        Pinger
	startedAt time.Time
}

func NewStatusHandler(db Pinger) *StatusHandler {
	return &StatusHandler{db: db, startedAt: time.Now()}
}

// Status
// GET /status
func (h *StatusHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	dbState := "ok"
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		dbState = "unreachable"
		status = http.StatusServiceUnavailable
	}

	data := StatusResponse{
		InternalServerLatency: time.Since(start).String(),
		Database:              dbState,
		Uptime:                time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	Respond(c, status, data)
}

// RegisterRoutes registers the routes that need no authentication
func RegisterRoutes(rg *gin.RouterGroup, h *StatusHandler) {
	rg.GET("/status", h.Status)
}

//   Book-A-Meal API. Backend for caterers publishing daily menus and customers ordering from them.
//   API Copyright (C) 2025 The Book-A-Meal Authors
//       This program is free software: you can redistribute it and/or modify
//       it under the terms of the GNU General Public License as published by
//       the Free Software Foundation, either version 3 of the License, or
//       (at your option) any later version.

//       This program is distributed in the hope that it will be useful,
//       but WITHOUT ANY WARRANTY; without even the implied warranty of
//       MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//       GNU General Public License for more details.

//       You should have received a copy of the GNU General Public License
//       along with this program.  If not, see <https://www.gnu.org/licenses/>.
