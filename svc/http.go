package svc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bankops/infra"
)

func RegisterRoutes(app *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/banks", app.HandleListBanks)
	mux.HandleFunc("/taillog", app.HandleTailRetrievalEvents)

	return mux
}

type BankInfo struct {
	BankID   string `json:"bankId"`
	BankName string `json:"bankName"`
}

func (app *App) HandleListBanks(w http.ResponseWriter, r *http.Request) {
	var banks []BankInfo
	for _, a := range app.Registry.All() {
		banks = append(banks, BankInfo{BankID: a.BankID(), BankName: a.BankName()})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(banks); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var DefaultTailStages = []string{
	infra.StageSession,
	infra.StageProfile,
	infra.StageAccounts,
	infra.StageStatements,
	infra.StageDownload,
}

// HandleTailRetrievalEvents streams retrieval progress as server-sent events,
// optionally filtered to a comma-separated list of stages.
func (app *App) HandleTailRetrievalEvents(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	var stages []string
	if raw := values.Get("stages"); raw != "" {
		stages = strings.Split(raw, ",")
	} else {
		stages = DefaultTailStages
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	subChan := app.Subscribe(stages)

	go func() {
		// user-initiated close. stop listening.
		defer app.Unsubscribe(subChan)
		<-r.Context().Done()
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-subChan:
			if !ok {
				// stop listening when the channel is closed (this could be a system or user-initiated event)
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", "log", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", "meta", "ping")
			flusher.Flush()
		}
	}
}
